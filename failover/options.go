package failover

import (
	"errors"
	"time"

	"github.com/arloliu/go-iotlink/logger"
	"github.com/arloliu/go-iotlink/transport"
)

// Strategy replaces the built-in decision policy of DefaultManager.
//
// attempt is the number of consecutive failover requests since the last successful
// connection, starting at 1.
type Strategy func(status Status, attempt int) Decision

// ServerFailedHandler observes every failure reported through OnServerFailed.
// It runs on its own goroutine.
type ServerFailedHandler func(server transport.ServerInfo, status Status)

// Option represents a functional option for configuring a DefaultManager.
type Option interface {
	apply(*DefaultManager) error
}

type optFunc struct {
	name      string
	applyFunc func(*DefaultManager) error
}

func (o *optFunc) apply(m *DefaultManager) error { return o.applyFunc(m) }

func newOptFunc(name string, f func(*DefaultManager) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithNoConnectivityDelay sets the retry delay used after a NoConnectivity failure.
// An error is returned if the delay is outside the valid range (0-10 minutes).
//
// The default value is 5 seconds.
func WithNoConnectivityDelay(val time.Duration) Option {
	return newOptFunc("WithNoConnectivityDelay", func(m *DefaultManager) error {
		if val < 0 || val > 10*time.Minute {
			return errors.New("no connectivity delay out of range [0, 10m]")
		}
		m.noConnectivityDelay = val

		return nil
	})
}

// WithRetryDelay sets the initial retry delay used after a Generic failure.
// An error is returned if the delay is outside the valid range (1 millisecond-10 minutes).
//
// The default value is 2 seconds.
func WithRetryDelay(val time.Duration) Option {
	return newOptFunc("WithRetryDelay", func(m *DefaultManager) error {
		if val < time.Millisecond || val > 10*time.Minute {
			return errors.New("retry delay out of range [1ms, 10m]")
		}
		m.retryDelay = val

		return nil
	})
}

// WithMaxRetryDelay caps the exponential backoff of Generic failures.
// Zero disables the cap. An error is returned if the value is negative.
//
// The default value is 60 seconds.
func WithMaxRetryDelay(val time.Duration) Option {
	return newOptFunc("WithMaxRetryDelay", func(m *DefaultManager) error {
		if val < 0 {
			return errors.New("max retry delay must not be negative")
		}
		m.maxRetryDelay = val

		return nil
	})
}

// WithBackoffFactor sets the growth factor of the Generic failure backoff.
// An error is returned if the factor is less than 1.
//
// The default value is 2.
func WithBackoffFactor(val float64) Option {
	return newOptFunc("WithBackoffFactor", func(m *DefaultManager) error {
		if val < 1 {
			return errors.New("backoff factor must be at least 1")
		}
		m.backoffFactor = val

		return nil
	})
}

// WithJitter enables or disables randomization of the Generic failure backoff.
//
// Jitter is disabled by default.
func WithJitter(val bool) Option {
	return newOptFunc("WithJitter", func(m *DefaultManager) error {
		m.jitter = val
		return nil
	})
}

// WithVerificationRetryDelay sets the retry delay used after an EndpointVerificationFailed failure.
// An error is returned if the delay is outside the valid range (0-1 hour).
//
// The default value is 10 seconds.
func WithVerificationRetryDelay(val time.Duration) Option {
	return newOptFunc("WithVerificationRetryDelay", func(m *DefaultManager) error {
		if val < 0 || val > time.Hour {
			return errors.New("verification retry delay out of range [0, 1h]")
		}
		m.verificationRetryDelay = val

		return nil
	})
}

// WithMaxRetries sets how many consecutive failover requests may be answered with Retry.
// The next request after the budget is spent is answered with Failure. Zero means unlimited.
// An error is returned if the value is negative.
//
// The default value is 0.
func WithMaxRetries(val int) Option {
	return newOptFunc("WithMaxRetries", func(m *DefaultManager) error {
		if val < 0 {
			return errors.New("max retries must not be negative")
		}
		m.maxRetries = val

		return nil
	})
}

// WithStrategy replaces the built-in policy. The retry budget set by WithMaxRetries still applies.
func WithStrategy(s Strategy) Option {
	return newOptFunc("WithStrategy", func(m *DefaultManager) error {
		if s == nil {
			return errors.New("strategy must not be nil")
		}
		m.strategy = s

		return nil
	})
}

// WithServerFailedHandler registers a handler notified of every OnServerFailed call.
func WithServerFailedHandler(h ServerFailedHandler) Option {
	return newOptFunc("WithServerFailedHandler", func(m *DefaultManager) error {
		m.failedHandler = h
		return nil
	})
}

// WithLogger sets the logger.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(m *DefaultManager) error {
		if l == nil {
			return errors.New("logger must not be nil")
		}
		m.logger = l

		return nil
	})
}
