package channel

import "sync/atomic"

// State is the lifecycle state of a Channel.
type State uint32

const (
	// ShutdownState is terminal; the channel accepts no further transitions.
	ShutdownState State = iota
	// PauseState keeps the channel disconnected until Resume.
	PauseState
	// ClosedState has no handshaken connection; a socket may be connecting.
	ClosedState
	// OpenedState has received the first sync response on the current socket.
	OpenedState
)

func (s State) String() string {
	switch s {
	case ShutdownState:
		return "Shutdown"
	case PauseState:
		return "Pause"
	case ClosedState:
		return "Closed"
	case OpenedState:
		return "Opened"
	default:
		return "Unknown"
	}
}

// atomicState holds a State readable without the channel lock.
// Writes happen only while the channel lock is held.
type atomicState struct {
	state atomic.Uint32
}

func newAtomicState(s State) *atomicState {
	st := &atomicState{}
	st.set(s)

	return st
}

func (st *atomicState) get() State {
	return State(st.state.Load())
}

func (st *atomicState) set(s State) {
	st.state.Store(uint32(s))
}

func (st *atomicState) String() string {
	return st.get().String()
}

func (st *atomicState) isShutdown() bool {
	return st.get() == ShutdownState
}

func (st *atomicState) isPaused() bool {
	return st.get() == PauseState
}

func (st *atomicState) isClosed() bool {
	return st.get() == ClosedState
}

func (st *atomicState) isOpened() bool {
	return st.get() == OpenedState
}
