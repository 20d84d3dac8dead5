package failover

import (
	"fmt"
	"time"
)

// Status is the cause of a server failure reported by a channel.
type Status uint8

const (
	// NoConnectivity means the socket could not be opened, read or written.
	NoConnectivity Status = iota
	// EndpointVerificationFailed means the server refused the endpoint's credentials.
	EndpointVerificationFailed
	// EndpointCredentialsRevoked means the server revoked the endpoint's credentials.
	EndpointCredentialsRevoked
	// Generic covers every other server side refusal or disconnect.
	Generic
)

func (s Status) String() string {
	switch s {
	case NoConnectivity:
		return "no-connectivity"
	case EndpointVerificationFailed:
		return "endpoint-verification-failed"
	case EndpointCredentialsRevoked:
		return "endpoint-credentials-revoked"
	case Generic:
		return "generic"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Action tells a channel what to do after a failure.
type Action uint8

const (
	// NoOp leaves the channel closed without retrying or escalating.
	NoOp Action = iota
	// Retry schedules exactly one reconnect attempt after Decision.RetryDelay.
	Retry
	// Failure escalates to the channel's failure listener.
	Failure
)

func (a Action) String() string {
	switch a {
	case NoOp:
		return "noop"
	case Retry:
		return "retry"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// Decision is the outcome of a failover request.
// RetryDelay is only meaningful when Action is Retry.
type Decision struct {
	Action     Action
	RetryDelay time.Duration
}

// NoOpDecision returns a NoOp decision.
func NoOpDecision() Decision {
	return Decision{Action: NoOp}
}

// RetryDecision returns a Retry decision with the given delay. Negative delays are clamped to zero.
func RetryDecision(delay time.Duration) Decision {
	return Decision{Action: Retry, RetryDelay: max(delay, 0)}
}

// FailureDecision returns a Failure decision.
func FailureDecision() Decision {
	return Decision{Action: Failure}
}

func (d Decision) String() string {
	if d.Action == Retry {
		return fmt.Sprintf("retry(%s)", d.RetryDelay)
	}

	return d.Action.String()
}
