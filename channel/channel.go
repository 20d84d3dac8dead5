package channel

import (
	"context"
	"sync"

	"github.com/arloliu/go-iotlink/failover"
	"github.com/arloliu/go-iotlink/logger"
	"github.com/arloliu/go-iotlink/transport"
)

// Channel is the operations TCP channel of an endpoint.
//
// It keeps one socket to the current operations server, performs the connect handshake,
// exchanges sync frames and reconnects according to the failover manager's decisions.
// All state transitions happen under one mutex; the public methods are safe for concurrent use
// and never return transport errors to the caller.
type Channel struct {
	mu sync.Mutex

	pctx   context.Context
	cfg    *ChannelConfig
	logger logger.Logger

	clientState     ClientState
	failoverMgr     failover.Manager
	failureListener FailureListener
	codec           SyncCodec
	checker         ConnectivityChecker

	server *transport.ServerInfo
	sock   *socket
	sched  *retryScheduler
	state  *atomicState

	metrics ChannelMetrics
}

// NewChannel creates a Channel in the Closed state.
//
// The channel doesn't connect until a server is set with SetServer. clientState may be nil.
// Returns an error if cfg, failoverMgr or listener is nil.
func NewChannel(
	ctx context.Context,
	cfg *ChannelConfig,
	clientState ClientState,
	failoverMgr failover.Manager,
	listener FailureListener,
) (*Channel, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if failoverMgr == nil {
		return nil, ErrFailoverManagerNil
	}
	if listener == nil {
		return nil, ErrFailureListenerNil
	}

	return &Channel{
		pctx:            ctx,
		cfg:             cfg,
		logger:          cfg.logger.With("channel", cfg.id),
		clientState:     clientState,
		failoverMgr:     failoverMgr,
		failureListener: listener,
		state:           newAtomicState(ClosedState),
	}, nil
}

// ID returns the channel identifier.
func (c *Channel) ID() string { return c.cfg.id }

// ProtocolID returns the transport protocol implemented by the channel.
func (c *Channel) ProtocolID() transport.ProtocolID { return transport.TCPProtocolID }

// ServerType returns the role of the servers the channel talks to.
func (c *Channel) ServerType() transport.ServerType { return transport.Operations }

// SupportedTypes returns a copy of the supported data types and their directions.
func (c *Channel) SupportedTypes() map[transport.DataType]transport.Direction {
	return configuredDirections()
}

// State returns the current channel state.
func (c *Channel) State() State { return c.state.get() }

// GetLogger returns the logger of the channel.
func (c *Channel) GetLogger() logger.Logger { return c.logger }

// GetMetrics returns the metrics of the channel.
func (c *Channel) GetMetrics() *ChannelMetrics { return &c.metrics }

// Server returns the current server and whether one is set.
func (c *Channel) Server() (transport.ServerInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.server == nil {
		return transport.ServerInfo{}, false
	}

	return *c.server, true
}

// ReconnectPending reports whether a reconnect attempt is scheduled and not started yet.
func (c *Channel) ReconnectPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sched != nil && c.sched.pending()
}

// SetSyncCodec sets the codec used to build sync requests and process sync responses.
// A nil codec is ignored.
func (c *Channel) SetSyncCodec(codec SyncCodec) {
	if codec == nil {
		c.logger.Warn("ignore nil sync codec")
		return
	}

	c.mu.Lock()
	c.codec = codec
	c.mu.Unlock()
}

// SetConnectivityChecker sets the checker that separates network outages from server failures.
// A nil checker removes the current one; without a checker every failure is treated as a
// network outage and no failover decision is requested.
func (c *Channel) SetConnectivityChecker(checker ConnectivityChecker) {
	c.mu.Lock()
	c.checker = checker
	c.mu.Unlock()
}

// SetServer sets the operations server.
//
// It is a no-op after Shutdown. While paused, the server is recorded and the connection is
// deferred until Resume. Otherwise, if no socket exists or the host and port differ from the
// current server, the current connection is closed and an immediate reconnect is scheduled.
func (c *Channel) SetServer(server transport.ServerInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.isShutdown() {
		c.logger.Debug("channel is shut down, ignore server", "server", server)
		return
	}

	prev := c.server
	srv := transport.NewServerInfo(server.Host, server.Port, server.PublicKey)
	c.server = &srv

	if c.state.isPaused() {
		c.logger.Info("channel is paused, defer connecting", "server", srv)
		return
	}

	if c.sched == nil {
		c.sched = c.newSchedulerLocked()
	}

	if c.sock == nil || prev == nil || !prev.SameEndpoint(srv) {
		c.logger.Info("server changed, reconnect", "server", srv)
		c.closeConnectionLocked()
		c.scheduleLocked(0)
	}
}

// Sync sends a sync request for the given data types.
//
// Requested types keep their configured direction and every other type is sent as Down.
// The call is a no-op unless the channel is opened and a codec is set.
func (c *Channel) Sync(types ...transport.DataType) {
	dirs, matched, unsupported := syncDirections(types)
	if len(unsupported) > 0 {
		c.logger.Warn("ignore unsupported data types", "types", unsupported)
	}
	if !matched {
		c.logger.Debug("no supported data type to sync")
		return
	}

	c.withLock(func() bool {
		return c.syncLocked(dirs)
	})
}

// SyncAll sends a sync request for every supported data type with its configured direction.
//
// The call is a no-op unless the channel is opened and a codec is set.
func (c *Channel) SyncAll() {
	c.withLock(func() bool {
		return c.syncLocked(configuredDirections())
	})
}

// SyncAck acknowledges a sync response that asks for the given data types.
//
// The first acknowledgement on a handshaken socket opens the channel and syncs every type.
// Afterwards one type is synced alone and several types trigger SyncAll.
func (c *Channel) SyncAck(types ...transport.DataType) {
	c.withLock(func() bool {
		return c.ackLocked(types)
	})
}

// Pause closes the connection and stops the background worker until Resume.
// It has no effect if the channel is paused or shut down.
func (c *Channel) Pause() {
	c.mu.Lock()
	if c.state.isPaused() || c.state.isShutdown() {
		c.mu.Unlock()
		return
	}

	c.logger.Info("pause channel")
	c.closeConnectionLocked()
	sched := c.stopSchedulerLocked()
	c.state.set(PauseState)
	c.mu.Unlock()

	c.waitScheduler(sched)
}

// Resume leaves the Pause state and reconnects to the current server immediately.
// It has no effect unless the channel is paused.
func (c *Channel) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.isPaused() {
		return
	}

	c.logger.Info("resume channel")
	c.state.set(ClosedState)
	c.sched = c.newSchedulerLocked()
	if c.server != nil {
		c.scheduleLocked(0)
	}
}

// Shutdown closes the connection and stops the background worker permanently.
// Every later operation is a no-op.
func (c *Channel) Shutdown() {
	c.mu.Lock()
	if c.state.isShutdown() {
		c.mu.Unlock()
		return
	}

	c.logger.Info("shutdown channel")
	c.closeConnectionLocked()
	sched := c.stopSchedulerLocked()
	c.state.set(ShutdownState)
	c.mu.Unlock()

	c.waitScheduler(sched)
}
