package frame

import (
	"fmt"
	"slices"
)

// DefaultMaxFrameSize is the default upper bound of a single frame, fixed header included.
const DefaultMaxFrameSize = 1 << 20

// Handlers is the fixed table of callbacks a Framer dispatches decoded frames to.
//
// A nil handler means the frame kind is not expected from the peer.
type Handlers struct {
	ConnAck      func(f *ConnAck)
	SyncResponse func(f *Sync)
	Disconnect   func(f *Disconnect)
	PingResponse func(f *PingResponse)
}

// FramerOption configures a Framer.
type FramerOption func(*Framer)

// WithMaxFrameSize sets the maximum frame size accepted by the Framer.
// Non-positive values are ignored.
func WithMaxFrameSize(size int) FramerOption {
	return func(f *Framer) {
		if size > 0 {
			f.maxFrameSize = size
		}
	}
}

// Framer decodes a byte stream into frames and dispatches them.
//
// A Framer is not safe for concurrent use; each socket owns one.
type Framer struct {
	handlers     Handlers
	maxFrameSize int
	buf          []byte
}

// NewFramer creates a Framer dispatching to h.
func NewFramer(h Handlers, opts ...FramerOption) *Framer {
	f := &Framer{
		handlers:     h,
		maxFrameSize: DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Push appends data to the pending bytes, decodes every complete frame, and dispatches it.
//
// It returns the number of frames dispatched. Incomplete trailing bytes are kept for the
// next call. On error the pending bytes are dropped, since the stream can't be
// resynchronized; frames dispatched before the error stay dispatched.
func (f *Framer) Push(data []byte) (int, error) {
	f.buf = append(f.buf, data...)

	count := 0
	offset := 0
	for {
		t, payloadLen, headerLen, complete, err := readFixedHeader(f.buf[offset:])
		if err != nil {
			f.Reset()
			return count, err
		}
		if !complete {
			break
		}

		frameLen := headerLen + payloadLen
		if frameLen > f.maxFrameSize {
			f.Reset()
			return count, fmt.Errorf("%w: %s frame of %d bytes, limit %d", ErrFrameTooLarge, t, frameLen, f.maxFrameSize)
		}
		if offset+frameLen > len(f.buf) {
			break
		}

		fr, err := decodePayload(t, f.buf[offset+headerLen:offset+frameLen])
		if err != nil {
			f.Reset()
			return count, err
		}
		offset += frameLen

		if err := f.dispatch(fr); err != nil {
			f.Reset()
			return count, err
		}
		count++
	}

	f.compact(offset)

	return count, nil
}

// Buffered returns the number of bytes waiting for the rest of their frame.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset drops all pending bytes.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}

func (f *Framer) compact(offset int) {
	if offset == 0 {
		return
	}
	if offset == len(f.buf) {
		f.buf = f.buf[:0]
		return
	}

	f.buf = slices.Delete(f.buf, 0, offset)
}

func (f *Framer) dispatch(fr Frame) error {
	switch v := fr.(type) {
	case *ConnAck:
		if f.handlers.ConnAck != nil {
			f.handlers.ConnAck(v)
			return nil
		}
	case *Sync:
		if !v.IsRequest() && f.handlers.SyncResponse != nil {
			f.handlers.SyncResponse(v)
			return nil
		}
	case *Disconnect:
		if f.handlers.Disconnect != nil {
			f.handlers.Disconnect(v)
			return nil
		}
	case *PingResponse:
		if f.handlers.PingResponse != nil {
			f.handlers.PingResponse(v)
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrUnexpectedFrame, fr.Type())
}
