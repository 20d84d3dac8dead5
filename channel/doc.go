// Package channel implements the operations TCP channel of an IoT endpoint.
//
// A Channel keeps a single socket to the current operations server. It moves through four
// states:
//
//	Closed ──first sync response──▶ Opened
//	Opened ──close / failure──────▶ Closed
//	any    ──Pause────────────────▶ Pause ──Resume──▶ Closed
//	any    ──Shutdown─────────────▶ Shutdown (terminal)
//
// Connecting:
// SetServer schedules a reconnect attempt on the channel's background worker. The attempt
// dials the server, sends a Connect frame carrying the sync request for every supported data
// type, and starts a reader goroutine for the new socket. The first sync response received on
// that socket opens the channel, reports the server as connected to the failover manager, and
// triggers SyncAll.
//
// Failures:
// Dial, read, write and decode errors, connection refusals and server disconnects all go
// through one failure path. It closes the socket and records the failure with the failover
// manager. When a ConnectivityChecker reports the network reachable, the manager's decision
// is applied: Retry schedules exactly one reconnect attempt, Failure notifies the
// FailureListener.
//
// Example:
//
//	cfg, err := channel.NewChannelConfig(channel.WithPingInterval(30 * time.Second))
//	if err != nil {
//	    // handle error
//	}
//
//	mgr, _ := failover.NewDefaultManager()
//	ch, err := channel.NewChannel(ctx, cfg, state, mgr, channel.FailureListenerFunc(func() {
//	    // failover gave up
//	}))
//	if err != nil {
//	    // handle error
//	}
//
//	ch.SetSyncCodec(codec)
//	ch.SetConnectivityChecker(checker)
//	ch.SetServer(transport.NewServerInfo("ops.example.com", 9888, serverKey))
//	defer ch.Shutdown()
package channel
