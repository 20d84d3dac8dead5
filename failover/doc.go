// Package failover decides what a channel does after it loses its server.
//
// A channel reports three kinds of events to a Manager:
//
//   - OnServerConnected: the server answered the handshake; failure history is reset.
//   - OnServerFailed: bookkeeping for every failure, whatever its cause.
//   - OnFailover: a request for a Decision, made only when the failure is specific to the
//     server and not a general network outage.
//
// A Decision is one of NoOp, Retry (with a delay) or Failure. The channel schedules a single
// reconnect attempt for Retry and notifies its failure listener for Failure.
//
// DefaultManager implements a configurable policy:
//
//	mgr, err := failover.NewDefaultManager(
//	    failover.WithRetryDelay(2*time.Second),
//	    failover.WithMaxRetryDelay(time.Minute),
//	    failover.WithMaxRetries(10),
//	)
//
// A Manager may be shared by several channels; DefaultManager serializes its decisions.
package failover
