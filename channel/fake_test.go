package channel

import (
	"bufio"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-iotlink/failover"
	"github.com/arloliu/go-iotlink/frame"
	"github.com/arloliu/go-iotlink/transport"
	"github.com/stretchr/testify/require"
)

// fakeServer is a loopback operations server that records the frames it receives.
type fakeServer struct {
	ln          net.Listener
	frames      chan frame.Frame
	disconnects chan struct{}

	mu    sync.Mutex
	conns []net.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{
		ln:          ln,
		frames:      make(chan frame.Frame, 128),
		disconnects: make(chan struct{}, 16),
	}
	go s.acceptLoop()
	t.Cleanup(s.close)

	return s
}

func (s *fakeServer) info() transport.ServerInfo {
	addr, _ := s.ln.Addr().(*net.TCPAddr)
	return transport.NewServerInfo("127.0.0.1", addr.Port, []byte{0x0A, 0x0B})
}

func (s *fakeServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		go s.serve(conn)
	}
}

func (s *fakeServer) serve(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		f, err := readFrame(r)
		if err != nil {
			select {
			case s.disconnects <- struct{}{}:
			default:
			}

			return
		}

		select {
		case s.frames <- f:
		default:
		}
	}
}

func (s *fakeServer) close() {
	_ = s.ln.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
}

func (s *fakeServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.conns)
}

func (s *fakeServer) lastConn(t *testing.T) net.Conn {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns)

	return s.conns[len(s.conns)-1]
}

func (s *fakeServer) send(t *testing.T, f frame.Frame) {
	t.Helper()

	data, err := f.ToBytes()
	require.NoError(t, err)
	s.sendRaw(t, data)
}

func (s *fakeServer) sendRaw(t *testing.T, data []byte) {
	t.Helper()

	_, err := s.lastConn(t).Write(data)
	require.NoError(t, err)
}

// expect waits for the next frame of type typ, skipping frames of other types.
func (s *fakeServer) expect(t *testing.T, typ frame.Type) frame.Frame {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-s.frames:
			if f.Type() == typ {
				return f
			}
		case <-timeout:
			t.Fatalf("no %s frame received", typ)
			return nil
		}
	}
}

// expectNone fails if a frame of type typ arrives within d.
func (s *fakeServer) expectNone(t *testing.T, typ frame.Type, d time.Duration) {
	t.Helper()

	timeout := time.After(d)
	for {
		select {
		case f := <-s.frames:
			require.NotEqual(t, typ, f.Type(), "unexpected %s frame", typ)
		case <-timeout:
			return
		}
	}
}

func (s *fakeServer) expectDisconnect(t *testing.T) {
	t.Helper()

	select {
	case <-s.disconnects:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed")
	}
}

// readFrame reads one endpoint frame from r.
func readFrame(r *bufio.Reader) (frame.Frame, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	header := []byte{b0}

	length, multiplier := 0, 1
	for range 4 {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		header = append(header, b)
		length += int(b&0x7F) * multiplier
		if b&0x80 == 0 {
			break
		}
		multiplier <<= 7
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	return frame.Decode(append(header, payload...))
}

// fakeFailover records every call and answers with a fixed decision.
type fakeFailover struct {
	mu        sync.Mutex
	decision  failover.Decision
	connected []transport.ServerInfo
	failed    []failover.Status
	failovers []failover.Status
}

var _ failover.Manager = (*fakeFailover)(nil)

func (f *fakeFailover) OnServerConnected(server transport.ServerInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = append(f.connected, server)
}

func (f *fakeFailover) OnServerFailed(_ transport.ServerInfo, status failover.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, status)
}

func (f *fakeFailover) OnFailover(status failover.Status) failover.Decision {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failovers = append(f.failovers, status)

	return f.decision
}

func (f *fakeFailover) setDecision(d failover.Decision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decision = d
}

func (f *fakeFailover) connectedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.connected)
}

func (f *fakeFailover) failedStatuses() []failover.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]failover.Status(nil), f.failed...)
}

func (f *fakeFailover) failoverStatuses() []failover.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]failover.Status(nil), f.failovers...)
}

// fakeCodec records compiled requests and acknowledges a configurable set of types.
type fakeCodec struct {
	mu        sync.Mutex
	requests  []map[transport.DataType]transport.Direction
	acks      []transport.DataType
	err       error
	pre, post int
}

var _ SyncCodec = (*fakeCodec)(nil)

func (c *fakeCodec) CompileRequest(dirs map[transport.DataType]transport.Direction) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, dirs)

	return []byte{byte(len(c.requests))}, nil
}

func (c *fakeCodec) PreProcess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pre++
}

func (c *fakeCodec) ProcessResponse(_ []byte) ([]transport.DataType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.acks, c.err
}

func (c *fakeCodec) PostProcess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.post++
}

func (c *fakeCodec) setAcks(acks ...transport.DataType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acks = acks
}

func (c *fakeCodec) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeCodec) requestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.requests)
}

func (c *fakeCodec) lastRequest() map[transport.DataType]transport.Direction {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.requests) == 0 {
		return nil
	}

	return c.requests[len(c.requests)-1]
}

func (c *fakeCodec) processed() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pre, c.post
}

type fakeClientState struct {
	mu      sync.Mutex
	cleaned int
}

func (s *fakeClientState) PublicKey() []byte { return []byte{0x01, 0x02} }

func (s *fakeClientState) Clean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleaned++
}

func (s *fakeClientState) cleanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cleaned
}
