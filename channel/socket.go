package channel

import (
	"net"
	"time"

	"github.com/arloliu/go-iotlink/frame"
	"github.com/arloliu/go-iotlink/transport"
)

// disconnectTimeout bounds the best-effort Disconnect write on close.
const disconnectTimeout = 500 * time.Millisecond

// socket is one connection generation. The channel replaces it wholesale on reconnect.
//
// Writes are serialized by the channel lock; the framer is used by the socket's reader only.
type socket struct {
	conn   net.Conn
	server transport.ServerInfo
	framer *frame.Framer
}

func (s *socket) write(f frame.Frame, timeout time.Duration) error {
	data, err := f.ToBytes()
	if err != nil {
		return err
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}

	_, err = s.conn.Write(data)

	return err
}

// close sends a Disconnect frame, ignoring any error, and closes the connection.
func (s *socket) close() error {
	_ = s.write(frame.NewDisconnect(frame.DisconnectNone), disconnectTimeout)

	return s.conn.Close()
}
