package channel

import (
	"errors"
	"io"
	"net"

	"github.com/arloliu/go-iotlink/failover"
)

// readerTask returns the read loop body of socket s.
//
// Each call blocks in one Read and feeds the bytes to the socket's framer, which dispatches
// complete frames to the handlers. The lock is never held while reading. The task ends on
// the first read or decode error.
func (c *Channel) readerTask(s *socket) func() bool {
	buf := make([]byte, c.cfg.readBufferSize)

	return func() bool {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if _, perr := s.framer.Push(buf[:n]); perr != nil {
				c.metrics.incDecodeErrCount()
				c.onReadFailure(s, perr)

				return false
			}
		}

		if err != nil {
			c.onReadFailure(s, err)
			return false
		}

		return true
	}
}

func (c *Channel) onReadFailure(s *socket, err error) {
	c.withLock(func() bool {
		if c.sock != s {
			c.logger.Debug("reader of outdated socket exits", "error", err)
			return false
		}

		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			c.logger.Info("connection closed by server", "server", s.server)
		} else {
			c.logger.Warn("failed to read from server", "server", s.server, "error", err)
		}

		return c.failLocked(failover.NoConnectivity)
	})
}
