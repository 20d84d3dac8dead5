package channel

import "github.com/arloliu/go-iotlink/transport"

// SyncCodec bridges the channel and the application's sync protocol.
//
// CompileRequest builds a sync request body for the given directions. The map is owned by
// the codec once passed. PreProcess and PostProcess bracket the handling of one response;
// ProcessResponse consumes a response body and returns the data types the server asks the
// endpoint to sync again.
type SyncCodec interface {
	CompileRequest(directions map[transport.DataType]transport.Direction) ([]byte, error)
	PreProcess()
	ProcessResponse(body []byte) ([]transport.DataType, error)
	PostProcess()
}

// FailureListener is notified when the failover policy gives up on the channel.
//
// OnFailure is called without the channel lock held; it may call Shutdown.
type FailureListener interface {
	OnFailure()
}

// FailureListenerFunc is an adapter to allow the use of ordinary functions as FailureListener.
type FailureListenerFunc func()

func (f FailureListenerFunc) OnFailure() { f() }

// ConnectivityChecker tells a general network outage apart from a failing server.
//
// CheckConnectivity returns true if the network itself is reachable.
type ConnectivityChecker interface {
	CheckConnectivity() bool
}

// ConnectivityCheckerFunc is an adapter to allow the use of ordinary functions as ConnectivityChecker.
type ConnectivityCheckerFunc func() bool

func (f ConnectivityCheckerFunc) CheckConnectivity() bool { return f() }

// ClientState is the endpoint's local session store.
type ClientState interface {
	// PublicKey returns the endpoint's public key.
	PublicKey() []byte
	// Clean drops the cached session state. It is called when the server refuses the endpoint.
	Clean()
}
