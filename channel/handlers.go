package channel

import (
	"github.com/arloliu/go-iotlink/failover"
	"github.com/arloliu/go-iotlink/frame"
	"github.com/arloliu/go-iotlink/transport"
)

// Frame handlers run on the reader goroutine of socket s. A handler of a socket that is no
// longer current does nothing.

func (c *Channel) onConnAck(s *socket, f *frame.ConnAck) {
	c.withLock(func() bool {
		if c.sock != s {
			return false
		}

		if f.ReturnCode == frame.ReturnAccepted {
			c.logger.Debug("connack accepted", "server", s.server)
			return false
		}

		c.logger.Warn("connection refused by server", "server", s.server, "return_code", f.ReturnCode)
		if c.clientState != nil {
			c.clientState.Clean()
		}

		if f.ReturnCode == frame.ReturnRefuseVerificationFailed {
			return c.failLocked(failover.EndpointVerificationFailed)
		}

		return c.failLocked(failover.Generic)
	})
}

func (c *Channel) onSyncResponse(s *socket, f *frame.Sync) {
	c.metrics.incSyncRecvCount()

	c.mu.Lock()
	current := c.sock == s
	codec := c.codec
	c.mu.Unlock()

	if !current {
		return
	}

	var acked []transport.DataType
	if codec != nil {
		acked = c.processResponse(codec, f.Body)
	} else {
		c.logger.Warn("no sync codec, drop sync response body", "size", len(f.Body))
	}

	c.withLock(func() bool {
		if c.sock != s {
			return false
		}

		return c.ackLocked(acked)
	})
}

func (c *Channel) processResponse(codec SyncCodec, body []byte) []transport.DataType {
	codec.PreProcess()
	defer codec.PostProcess()

	acked, err := codec.ProcessResponse(body)
	if err != nil {
		c.metrics.incSyncErrCount()
		c.logger.Error("failed to process sync response", "error", err)

		return nil
	}

	return acked
}

func (c *Channel) onDisconnect(s *socket, f *frame.Disconnect) {
	c.withLock(func() bool {
		if c.sock != s {
			return false
		}

		switch f.Reason {
		case frame.DisconnectNone:
			c.logger.Info("server closed the connection", "server", s.server)
			c.closeConnectionLocked()

			return false
		case frame.DisconnectCredentialsRevoked:
			c.logger.Warn("server revoked endpoint credentials", "server", s.server)
			return c.failLocked(failover.EndpointCredentialsRevoked)
		default:
			c.logger.Warn("server disconnected", "server", s.server, "reason", f.Reason)
			return c.failLocked(failover.Generic)
		}
	})
}

func (c *Channel) onPingResponse(_ *socket, _ *frame.PingResponse) {
	c.metrics.incPingRecvCount()
	c.logger.Debug("ping response received")
}
