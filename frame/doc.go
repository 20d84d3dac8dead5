// Package frame implements the binary wire protocol spoken between an endpoint and an
// operations server.
//
// Every frame starts with a fixed header: one byte carrying the frame type in its high
// nibble, followed by the length of the rest of the frame encoded as a base-128 varint of
// at most four bytes.
//
// Frame Types:
//   - ConnectType: endpoint handshake, carries the first sync request body.
//   - ConnAckType: server verdict on the handshake (ReturnCode).
//   - SyncType: sync request (endpoint to server) or sync response (server to endpoint).
//   - DisconnectType: either side closes the session (DisconnectReason).
//   - PingReqType, PingRespType: keep-alive.
//
// Request and response bodies are opaque to this package; they are produced and consumed
// by the sync codec of the application layer.
//
// Stream Decoding:
// A Framer consumes bytes as they arrive from a socket, which may deliver partial frames or
// several frames at once. It keeps unconsumed bytes between calls, decodes every complete
// frame and dispatches it to the handler registered for the frame kind:
//
//	framer := frame.NewFramer(frame.Handlers{
//	    ConnAck:      func(f *frame.ConnAck) { ... },
//	    SyncResponse: func(f *frame.Sync) { ... },
//	    Disconnect:   func(f *frame.Disconnect) { ... },
//	    PingResponse: func(f *frame.PingResponse) { ... },
//	})
//
//	n, err := conn.Read(buf)
//	if _, err := framer.Push(buf[:n]); err != nil {
//	    // decode failure, the stream can't be resynchronized
//	}
package frame
