package frame

import "errors"

var (
	// ErrUnknownFrameType indicates that the fixed header carries an undefined frame type.
	ErrUnknownFrameType = errors.New("unknown frame type")

	// ErrMalformedLength indicates that the remaining length varint is longer than four bytes.
	ErrMalformedLength = errors.New("malformed remaining length")

	// ErrMalformedFrame indicates that a frame payload is shorter than its layout requires.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrInvalidProtocol indicates a protocol name or version mismatch.
	ErrInvalidProtocol = errors.New("invalid protocol name or version")

	// ErrFrameTooLarge indicates that a frame exceeds the configured maximum size.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrUnexpectedFrame indicates a well-formed frame that has no registered handler.
	ErrUnexpectedFrame = errors.New("unexpected frame")

	// ErrFieldTooLong indicates that a length-prefixed field doesn't fit into 16 bits.
	ErrFieldTooLong = errors.New("field exceeds 65535 bytes")
)
