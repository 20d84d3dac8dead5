package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	frames []Frame
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		ConnAck:      func(f *ConnAck) { r.frames = append(r.frames, f) },
		SyncResponse: func(f *Sync) { r.frames = append(r.frames, f) },
		Disconnect:   func(f *Disconnect) { r.frames = append(r.frames, f) },
		PingResponse: func(f *PingResponse) { r.frames = append(r.frames, f) },
	}
}

func mustBytes(t *testing.T, f Frame) []byte {
	t.Helper()
	data, err := f.ToBytes()
	require.NoError(t, err)

	return data
}

func TestFramer_PartialFrames(t *testing.T) {
	require := require.New(t)

	rec := &recorder{}
	framer := NewFramer(rec.handlers())

	data := mustBytes(t, NewSyncResponse(9, []byte("hello")))
	for i := 0; i < len(data)-1; i++ {
		n, err := framer.Push(data[i : i+1])
		require.NoError(err)
		require.Equal(0, n)
		require.Equal(i+1, framer.Buffered())
	}

	n, err := framer.Push(data[len(data)-1:])
	require.NoError(err)
	require.Equal(1, n)
	require.Equal(0, framer.Buffered())

	require.Len(rec.frames, 1)
	sf, ok := rec.frames[0].(*Sync)
	require.True(ok)
	require.Equal(uint16(9), sf.MessageID)
	require.Equal([]byte("hello"), sf.Body)
}

func TestFramer_MultipleFrames(t *testing.T) {
	require := require.New(t)

	rec := &recorder{}
	framer := NewFramer(rec.handlers())

	var stream []byte
	stream = append(stream, mustBytes(t, NewConnAck(ReturnAccepted))...)
	stream = append(stream, mustBytes(t, NewSyncResponse(1, []byte{0x01}))...)
	stream = append(stream, mustBytes(t, &PingResponse{})...)
	stream = append(stream, mustBytes(t, NewDisconnect(DisconnectNone))...)

	// leave the last byte of the disconnect frame for a second push
	n, err := framer.Push(stream[:len(stream)-1])
	require.NoError(err)
	require.Equal(3, n)
	require.Equal(3, framer.Buffered())

	n, err = framer.Push(stream[len(stream)-1:])
	require.NoError(err)
	require.Equal(1, n)
	require.Equal(0, framer.Buffered())

	require.Len(rec.frames, 4)
	require.Equal(ConnAckType, rec.frames[0].Type())
	require.Equal(SyncType, rec.frames[1].Type())
	require.Equal(PingRespType, rec.frames[2].Type())
	require.Equal(DisconnectType, rec.frames[3].Type())
}

func TestFramer_UnexpectedFrames(t *testing.T) {
	tests := []struct {
		description string
		frame       Frame
	}{
		{"sync request", NewSyncRequest([]byte{0x01})},
		{"connect", NewConnect(10, nil)},
		{"ping request", &PingRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			require := require.New(t)

			rec := &recorder{}
			framer := NewFramer(rec.handlers())

			n, err := framer.Push(mustBytes(t, tt.frame))
			require.ErrorIs(err, ErrUnexpectedFrame)
			require.Equal(0, n)
			require.Equal(0, framer.Buffered())
			require.Empty(rec.frames)
		})
	}

	t.Run("Missing Handler", func(t *testing.T) {
		require := require.New(t)

		framer := NewFramer(Handlers{})
		_, err := framer.Push(mustBytes(t, &PingResponse{}))
		require.ErrorIs(err, ErrUnexpectedFrame)
	})
}

func TestFramer_Errors(t *testing.T) {
	t.Run("Frame Too Large", func(t *testing.T) {
		require := require.New(t)

		rec := &recorder{}
		framer := NewFramer(rec.handlers(), WithMaxFrameSize(16))

		// only the fixed header is needed to reject the frame
		data := mustBytes(t, NewSyncResponse(1, make([]byte, 64)))
		n, err := framer.Push(data[:3])
		require.ErrorIs(err, ErrFrameTooLarge)
		require.Equal(0, n)
		require.Equal(0, framer.Buffered())
	})

	t.Run("Malformed Length", func(t *testing.T) {
		require := require.New(t)

		framer := NewFramer(Handlers{})
		_, err := framer.Push([]byte{0xF0, 0x80, 0x80, 0x80, 0x80})
		require.ErrorIs(err, ErrMalformedLength)
		require.Equal(0, framer.Buffered())
	})

	t.Run("Frames Before Error Stay Dispatched", func(t *testing.T) {
		require := require.New(t)

		rec := &recorder{}
		framer := NewFramer(rec.handlers())

		stream := mustBytes(t, &PingResponse{})
		stream = append(stream, 0x30, 0x00)

		n, err := framer.Push(stream)
		require.ErrorIs(err, ErrUnknownFrameType)
		require.Equal(1, n)
		require.Len(rec.frames, 1)
		require.Equal(0, framer.Buffered())

		// the framer is usable after a reset
		n, err = framer.Push(mustBytes(t, &PingResponse{}))
		require.NoError(err)
		require.Equal(1, n)
	})

	t.Run("Reset", func(t *testing.T) {
		require := require.New(t)

		framer := NewFramer(Handlers{})
		_, err := framer.Push([]byte{0xD0})
		require.NoError(err)
		require.Equal(1, framer.Buffered())

		framer.Reset()
		require.Equal(0, framer.Buffered())
	})
}

func TestFramer_DefaultMaxFrameSize(t *testing.T) {
	framer := NewFramer(Handlers{}, WithMaxFrameSize(0))
	require.Equal(t, DefaultMaxFrameSize, framer.maxFrameSize)
}
