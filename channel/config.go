package channel

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/arloliu/go-iotlink/frame"
	"github.com/arloliu/go-iotlink/logger"
)

// DefaultChannelID is the identifier of the operations TCP channel.
const DefaultChannelID = "default_operations_tcp_channel"

// DialFunc opens a stream connection to address.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ChannelConfig represents the configuration parameters of a Channel.
type ChannelConfig struct {
	// id is the channel identifier reported by Channel.ID.
	// Defaults to DefaultChannelID.
	id string

	// connectTimeout bounds one socket dial. It should be between 100 milliseconds and 30 seconds.
	// Defaults to 3 seconds.
	connectTimeout time.Duration

	// writeTimeout bounds one frame write. It should be between 1 and 120 seconds.
	// Defaults to 5 seconds.
	writeTimeout time.Duration

	// pingInterval is the period of keep-alive ping requests while the channel is opened.
	// Defaults to 100 seconds.
	pingInterval time.Duration

	// keepAlive is the keep-alive period in seconds announced in the connect frame.
	// Defaults to 200 seconds.
	keepAlive uint16

	// readBufferSize is the size of the socket read buffer. It should be between 64 bytes and 1 MiB.
	// Defaults to 1024 bytes.
	readBufferSize int

	// maxFrameSize is the largest inbound frame accepted, fixed header included.
	// Defaults to 1 MiB.
	maxFrameSize int

	// closeTimeout bounds the wait for background goroutines in Pause and Shutdown.
	// It should be between 1 and 30 seconds.
	// Defaults to 3 seconds.
	closeTimeout time.Duration

	// dialer opens sockets. Defaults to net.Dialer.DialContext.
	dialer DialFunc

	// logger provides a logger instance for logging channel events and errors.
	logger logger.Logger
}

// NewChannelConfig creates a channel configuration with default values and applies the given options.
//
// Returns the configuration and an error if any option is invalid.
func NewChannelConfig(opts ...ChannelOption) (*ChannelConfig, error) {
	cfg := &ChannelConfig{
		id:             DefaultChannelID,
		connectTimeout: 3 * time.Second,
		writeTimeout:   5 * time.Second,
		pingInterval:   100 * time.Second,
		keepAlive:      200,
		readBufferSize: 1024,
		maxFrameSize:   frame.DefaultMaxFrameSize,
		closeTimeout:   3 * time.Second,
		dialer:         (&net.Dialer{}).DialContext,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func (cfg *ChannelConfig) ID() string { return cfg.id }

func (cfg *ChannelConfig) ConnectTimeout() time.Duration { return cfg.connectTimeout }

func (cfg *ChannelConfig) WriteTimeout() time.Duration { return cfg.writeTimeout }

func (cfg *ChannelConfig) PingInterval() time.Duration { return cfg.pingInterval }

func (cfg *ChannelConfig) KeepAlive() uint16 { return cfg.keepAlive }

func (cfg *ChannelConfig) CloseTimeout() time.Duration { return cfg.closeTimeout }

// ChannelOption represents a functional option for configuring a ChannelConfig.
type ChannelOption interface {
	apply(*ChannelConfig) error
}

type channelOptFunc struct {
	name      string
	applyFunc func(*ChannelConfig) error
}

func (c *channelOptFunc) apply(cfg *ChannelConfig) error { return c.applyFunc(cfg) }

func newChannelOptFunc(name string, f func(*ChannelConfig) error) *channelOptFunc {
	return &channelOptFunc{
		name:      name,
		applyFunc: f,
	}
}

// WithID sets the channel identifier.
// An error is returned if the identifier is empty.
func WithID(id string) ChannelOption {
	return newChannelOptFunc("WithID", func(cfg *ChannelConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if id == "" {
			return errors.New("channel id is empty")
		}
		cfg.id = id

		return nil
	})
}

// WithConnectTimeout sets the timeout of one socket dial.
// An error is returned if the timeout is outside the valid range (100 milliseconds-30 seconds).
//
// The default value is 3 seconds.
func WithConnectTimeout(val time.Duration) ChannelOption {
	return newChannelOptFunc("WithConnectTimeout", func(cfg *ChannelConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < 100*time.Millisecond || val > 30*time.Second {
			return errors.New("connect timeout out of range [100ms, 30s]")
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithWriteTimeout sets the timeout of one frame write.
// An error is returned if the timeout is outside the valid range (1-120 seconds).
//
// The default value is 5 seconds.
func WithWriteTimeout(val time.Duration) ChannelOption {
	return newChannelOptFunc("WithWriteTimeout", func(cfg *ChannelConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < time.Second || val > 120*time.Second {
			return errors.New("write timeout out of range [1, 120]")
		}
		cfg.writeTimeout = val

		return nil
	})
}

// WithPingInterval sets the interval between keep-alive ping requests.
// An error is returned if the interval is not positive.
//
// The default value is 100 seconds.
func WithPingInterval(interval time.Duration) ChannelOption {
	return newChannelOptFunc("WithPingInterval", func(cfg *ChannelConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if interval <= 0 {
			return errors.New("ping interval must be positive")
		}
		cfg.pingInterval = interval

		return nil
	})
}

// WithKeepAlive sets the keep-alive period, in seconds, announced to the server.
// An error is returned if the value is zero.
//
// The default value is 200.
func WithKeepAlive(seconds uint16) ChannelOption {
	return newChannelOptFunc("WithKeepAlive", func(cfg *ChannelConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if seconds == 0 {
			return errors.New("keep-alive must be positive")
		}
		cfg.keepAlive = seconds

		return nil
	})
}

// WithReadBufferSize sets the size of the socket read buffer.
// An error is returned if the size is outside the valid range (64 bytes-1 MiB).
//
// The default value is 1024.
func WithReadBufferSize(size int) ChannelOption {
	return newChannelOptFunc("WithReadBufferSize", func(cfg *ChannelConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if size < 64 || size > 1<<20 {
			return errors.New("read buffer size out of range [64, 1048576]")
		}
		cfg.readBufferSize = size

		return nil
	})
}

// WithMaxFrameSize sets the largest inbound frame accepted.
// An error is returned if the size is outside the valid range (16 bytes-frame.MaxRemainingLength).
//
// The default value is 1 MiB.
func WithMaxFrameSize(size int) ChannelOption {
	return newChannelOptFunc("WithMaxFrameSize", func(cfg *ChannelConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if size < 16 || size > frame.MaxRemainingLength {
			return errors.New("max frame size out of range")
		}
		cfg.maxFrameSize = size

		return nil
	})
}

// WithCloseTimeout sets how long Pause and Shutdown wait for background goroutines.
// An error is returned if the timeout is outside the valid range (1-30 seconds).
//
// The default value is 3 seconds.
func WithCloseTimeout(val time.Duration) ChannelOption {
	return newChannelOptFunc("WithCloseTimeout", func(cfg *ChannelConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < time.Second || val > 30*time.Second {
			return errors.New("close timeout out of range [1, 30]")
		}
		cfg.closeTimeout = val

		return nil
	})
}

// WithDialer replaces the function used to open sockets.
// An error is returned if the dialer is nil.
func WithDialer(dialer DialFunc) ChannelOption {
	return newChannelOptFunc("WithDialer", func(cfg *ChannelConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if dialer == nil {
			return errors.New("dialer is nil")
		}
		cfg.dialer = dialer

		return nil
	})
}

// WithLogger sets the logger.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) ChannelOption {
	return newChannelOptFunc("WithLogger", func(cfg *ChannelConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
