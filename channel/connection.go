package channel

import (
	"context"
	"net"
	"time"

	"github.com/arloliu/go-iotlink/failover"
	"github.com/arloliu/go-iotlink/frame"
	"github.com/arloliu/go-iotlink/transport"
)

// withLock runs fn under the channel lock and notifies the failure listener after the lock
// is released when fn reports a fatal failure.
func (c *Channel) withLock(fn func() (fatal bool)) {
	c.mu.Lock()
	fatal := fn()
	c.mu.Unlock()

	if fatal {
		c.notifyFailure()
	}
}

func (c *Channel) notifyFailure() {
	c.metrics.incFailureCount()
	c.logger.Error("failover gave up, notify failure listener")
	c.failureListener.OnFailure()
}

// newSchedulerLocked creates the worker of a new channel generation and starts its
// keep-alive task.
func (c *Channel) newSchedulerLocked() *retryScheduler {
	sched := newRetryScheduler(c.pctx, c.logger)
	if _, err := sched.worker.StartInterval("ping", c.pingTask(sched), c.cfg.pingInterval, false); err != nil {
		c.logger.Error("failed to start ping task", "error", err)
	}

	return sched
}

func (c *Channel) stopSchedulerLocked() *retryScheduler {
	sched := c.sched
	c.sched = nil
	if sched != nil {
		sched.stop()
	}

	return sched
}

// waitScheduler waits for the goroutines of a stopped scheduler. It must be called without
// the channel lock held.
func (c *Channel) waitScheduler(sched *retryScheduler) {
	if sched == nil {
		return
	}
	if !sched.wait(c.cfg.closeTimeout) {
		c.logger.Warn("background tasks still running after close timeout", "timeout", c.cfg.closeTimeout)
	}
}

func (c *Channel) scheduleLocked(delay time.Duration) {
	if c.sched == nil {
		c.logger.Debug("no background worker, skip reconnect", "state", c.state)
		return
	}

	sched := c.sched
	if sched.schedule(delay, func(ctx context.Context) { c.openConnection(ctx, sched) }) {
		c.metrics.incReconnectScheduleCount()
		c.logger.Debug("reconnect scheduled", "delay", delay)
	}
}

// openConnection dials the current server and sends the connect frame.
//
// The dial runs without the lock. The new socket is discarded if the channel moved on in the
// meantime: a newer generation, a state other than Closed, a live socket or another server.
func (c *Channel) openConnection(ctx context.Context, sched *retryScheduler) {
	c.mu.Lock()
	if c.sched != sched || !c.state.isClosed() || c.sock != nil || c.server == nil {
		c.mu.Unlock()
		return
	}
	server := *c.server
	c.mu.Unlock()

	c.metrics.incConnectAttemptCount()
	c.logger.Debug("connect to server", "server", server)

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.connectTimeout)
	conn, err := c.cfg.dialer(dialCtx, "tcp", server.Address())
	cancel()

	c.withLock(func() bool {
		if c.sched != sched || !c.state.isClosed() || c.sock != nil || c.server == nil || !c.server.SameEndpoint(server) {
			c.logger.Debug("connection outdated, discard", "server", server)
			if conn != nil {
				_ = conn.Close()
			}

			return false
		}

		if err != nil {
			c.metrics.incConnectErrCount()
			c.logger.Warn("failed to connect to server", "server", server, "error", err)

			return c.failLocked(failover.NoConnectivity)
		}

		return c.startSocketLocked(conn, server)
	})
}

func (c *Channel) startSocketLocked(conn net.Conn, server transport.ServerInfo) bool {
	s := &socket{conn: conn, server: server}
	s.framer = frame.NewFramer(frame.Handlers{
		ConnAck:      func(f *frame.ConnAck) { c.onConnAck(s, f) },
		SyncResponse: func(f *frame.Sync) { c.onSyncResponse(s, f) },
		Disconnect:   func(f *frame.Disconnect) { c.onDisconnect(s, f) },
		PingResponse: func(f *frame.PingResponse) { c.onPingResponse(s, f) },
	}, frame.WithMaxFrameSize(c.cfg.maxFrameSize))
	c.sock = s

	if err := c.sched.worker.Start("reader", c.readerTask(s)); err != nil {
		c.logger.Error("failed to start reader task", "error", err)
		return c.failLocked(failover.NoConnectivity)
	}

	var body []byte
	if c.codec != nil {
		var err error
		if body, err = c.codec.CompileRequest(configuredDirections()); err != nil {
			c.metrics.incSyncErrCount()
			c.logger.Warn("failed to compile connect request, send empty body", "error", err)
			body = nil
		}
	}

	if err := s.write(frame.NewConnect(c.cfg.keepAlive, body), c.cfg.writeTimeout); err != nil {
		c.metrics.incConnectErrCount()
		c.logger.Warn("failed to send connect frame", "server", server, "error", err)

		return c.failLocked(failover.NoConnectivity)
	}

	c.logger.Info("connected to server, wait for handshake", "server", server)

	return false
}

// closeConnectionLocked closes the current socket. Opened falls back to Closed; Pause and
// Shutdown are kept.
func (c *Channel) closeConnectionLocked() {
	if c.sock != nil {
		s := c.sock
		c.sock = nil
		if err := s.close(); err != nil {
			c.logger.Debug("close socket", "error", err)
		}
	}

	if c.state.isOpened() {
		c.state.set(ClosedState)
		c.metrics.setOpened(false)
		c.logger.Info("channel closed")
	}
}

// failLocked is the failure path shared by every failure trigger.
//
// The failover manager records every failure. A decision is requested only when a
// connectivity checker reports the network reachable, so general outages don't consume the
// server's retry policy. It returns true when the failure listener must be notified.
func (c *Channel) failLocked(status failover.Status) bool {
	c.closeConnectionLocked()

	if c.server != nil {
		c.failoverMgr.OnServerFailed(*c.server, status)
	}

	if c.checker == nil || !c.checker.CheckConnectivity() {
		c.logger.Info("network unreachable, skip failover", "status", status)
		return false
	}

	c.metrics.incFailoverCount()
	decision := c.failoverMgr.OnFailover(status)
	c.logger.Info("failover decision", "status", status, "decision", decision)

	switch decision.Action {
	case failover.Retry:
		c.scheduleLocked(decision.RetryDelay)
	case failover.Failure:
		return true
	default:
		c.logger.Debug("failover noop", "status", status)
	}

	return false
}

// syncLocked sends one sync request with the given directions.
func (c *Channel) syncLocked(dirs map[transport.DataType]transport.Direction) bool {
	if !c.state.isOpened() || c.codec == nil || c.server == nil || c.sock == nil {
		c.logger.Debug("channel not ready, ignore sync", "state", c.state, "has_codec", c.codec != nil)
		return false
	}

	body, err := c.codec.CompileRequest(dirs)
	if err != nil {
		c.metrics.incSyncErrCount()
		c.logger.Error("failed to compile sync request", "error", err)

		return false
	}

	if err := c.sock.write(frame.NewSyncRequest(body), c.cfg.writeTimeout); err != nil {
		c.logger.Warn("failed to send sync request", "error", err)
		return c.failLocked(failover.NoConnectivity)
	}
	c.metrics.incSyncSendCount()

	return false
}

// ackLocked acts on the data types acknowledged by a sync response.
func (c *Channel) ackLocked(types []transport.DataType) bool {
	if c.sock == nil || c.server == nil {
		return false
	}

	if !c.state.isOpened() {
		if !c.state.isClosed() {
			return false
		}

		c.state.set(OpenedState)
		c.metrics.setOpened(true)
		c.logger.Info("channel opened", "server", *c.server)
		c.failoverMgr.OnServerConnected(*c.server)

		return c.syncLocked(configuredDirections())
	}

	switch len(types) {
	case 0:
		return false
	case 1:
		dirs, matched, _ := syncDirections(types)
		if !matched {
			c.logger.Warn("ignore unsupported data type", "type", types[0])
			return false
		}

		return c.syncLocked(dirs)
	default:
		return c.syncLocked(configuredDirections())
	}
}

func (c *Channel) pingTask(sched *retryScheduler) func() bool {
	return func() bool {
		stale := false
		c.withLock(func() bool {
			if c.sched != sched {
				stale = true
				return false
			}
			if !c.state.isOpened() || c.sock == nil {
				return false
			}

			if err := c.sock.write(&frame.PingRequest{}, c.cfg.writeTimeout); err != nil {
				c.logger.Warn("failed to send ping request", "error", err)
				return c.failLocked(failover.NoConnectivity)
			}
			c.metrics.incPingSendCount()

			return false
		})

		return !stale
	}
}
