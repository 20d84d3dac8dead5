package frame

import (
	"encoding/binary"
	"fmt"
)

// maxVarintBytes is the longest allowed encoding of the remaining length.
const maxVarintBytes = 4

// Decode decodes exactly one complete frame, fixed header included.
//
// It returns ErrMalformedFrame if data holds less or more than one frame.
func Decode(data []byte) (Frame, error) {
	t, payloadLen, headerLen, complete, err := readFixedHeader(data)
	if err != nil {
		return nil, err
	}
	if !complete || headerLen+payloadLen > len(data) {
		return nil, fmt.Errorf("%w: incomplete %s frame", ErrMalformedFrame, t)
	}
	if headerLen+payloadLen < len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedFrame, len(data)-headerLen-payloadLen)
	}

	return decodePayload(t, data[headerLen:])
}

// readFixedHeader parses the fixed header at the start of data.
//
// complete is false when data is too short to hold the whole fixed header; in that case
// the other results are meaningless and err is nil.
func readFixedHeader(data []byte) (t Type, payloadLen int, headerLen int, complete bool, err error) {
	if len(data) < 2 {
		return 0, 0, 0, false, nil
	}

	t = Type(data[0] >> 4)
	if !t.valid() {
		return t, 0, 0, false, fmt.Errorf("%w: %d", ErrUnknownFrameType, uint8(t))
	}

	multiplier := 1
	for i := 1; ; i++ {
		if i > maxVarintBytes {
			return t, 0, 0, false, ErrMalformedLength
		}
		if i >= len(data) {
			return t, 0, 0, false, nil
		}

		b := data[i]
		payloadLen += int(b&0x7F) * multiplier
		if b&0x80 == 0 {
			return t, payloadLen, i + 1, true, nil
		}
		multiplier <<= 7
	}
}

func (t Type) valid() bool {
	switch t {
	case ConnectType, ConnAckType, PingReqType, PingRespType, DisconnectType, SyncType:
		return true
	default:
		return false
	}
}

// decodePayload decodes the variable part of a frame of type t.
func decodePayload(t Type, payload []byte) (Frame, error) {
	d := &decoder{input: payload}

	switch t {
	case ConnectType:
		return d.decodeConnect()
	case ConnAckType:
		code, err := d.decodeCodeByte()
		if err != nil {
			return nil, err
		}
		return &ConnAck{ReturnCode: ReturnCode(code)}, nil
	case DisconnectType:
		reason, err := d.decodeCodeByte()
		if err != nil {
			return nil, err
		}
		return &Disconnect{Reason: DisconnectReason(reason)}, nil
	case SyncType:
		return d.decodeSync()
	case PingReqType:
		if err := d.expectEmpty(t); err != nil {
			return nil, err
		}
		return &PingRequest{}, nil
	case PingRespType:
		if err := d.expectEmpty(t); err != nil {
			return nil, err
		}
		return &PingResponse{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFrameType, uint8(t))
	}
}

// decoder is a helper struct for decoding frame payloads.
// It maintains the current position in the input byte array.
type decoder struct {
	input []byte
	pos   int
}

// remaining returns the number of bytes remaining in the input buffer.
func (d *decoder) remaining() int {
	return len(d.input) - d.pos
}

// read reads a specified number of bytes from the input and advances the current position.
func (d *decoder) read(length int) ([]byte, error) {
	if d.pos+length > len(d.input) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedFrame, length, d.remaining())
	}
	result := d.input[d.pos : d.pos+length]
	d.pos += length

	return result, nil
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.input) {
		return 0, fmt.Errorf("%w: need 1 byte", ErrMalformedFrame)
	}
	result := d.input[d.pos]
	d.pos++

	return result, nil
}

func (d *decoder) readUint16() (uint16, error) {
	b, err := d.read(2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(b), nil
}

// readField reads a uint16 length-prefixed field and returns a copy of it.
func (d *decoder) readField() ([]byte, error) {
	size, err := d.readUint16()
	if err != nil {
		return nil, err
	}
	field, err := d.read(int(size))
	if err != nil {
		return nil, err
	}

	return cloneBytes(field), nil
}

// readRest returns a copy of all remaining bytes.
func (d *decoder) readRest() []byte {
	rest := d.input[d.pos:]
	d.pos = len(d.input)

	return cloneBytes(rest)
}

func (d *decoder) readProtocolHeader() error {
	name, err := d.readField()
	if err != nil {
		return err
	}
	version, err := d.readByte()
	if err != nil {
		return err
	}
	if string(name) != ProtocolName || version != ProtocolVersion {
		return fmt.Errorf("%w: %q v%d", ErrInvalidProtocol, name, version)
	}

	return nil
}

func (d *decoder) decodeConnect() (*Connect, error) {
	if err := d.readProtocolHeader(); err != nil {
		return nil, err
	}

	// connect flags are informational only
	if _, err := d.readByte(); err != nil {
		return nil, err
	}

	keepAlive, err := d.readUint16()
	if err != nil {
		return nil, err
	}

	keyFlags, err := d.readByte()
	if err != nil {
		return nil, err
	}

	f := &Connect{KeepAlive: keepAlive}
	if keyFlags&keyFlagSessionKey != 0 {
		if f.SessionKey, err = d.readField(); err != nil {
			return nil, err
		}
	}
	if keyFlags&keyFlagSignature != 0 {
		if f.Signature, err = d.readField(); err != nil {
			return nil, err
		}
	}
	f.Body = d.readRest()

	return f, nil
}

func (d *decoder) decodeSync() (*Sync, error) {
	if err := d.readProtocolHeader(); err != nil {
		return nil, err
	}

	id, err := d.readUint16()
	if err != nil {
		return nil, err
	}

	flags, err := d.readByte()
	if err != nil {
		return nil, err
	}

	return &Sync{
		MessageID: id,
		Request:   flags&syncFlagRequest != 0,
		Zipped:    flags&syncFlagZipped != 0,
		Encrypted: flags&syncFlagEncrypted != 0,
		Body:      d.readRest(),
	}, nil
}

// decodeCodeByte decodes the two byte payload shared by ConnAck and Disconnect.
func (d *decoder) decodeCodeByte() (byte, error) {
	if d.remaining() != 2 {
		return 0, fmt.Errorf("%w: expect 2 bytes payload, got %d", ErrMalformedFrame, d.remaining())
	}
	b, _ := d.read(2)

	return b[1], nil
}

func (d *decoder) expectEmpty(t Type) error {
	if d.remaining() != 0 {
		return fmt.Errorf("%w: %s frame carries %d unexpected bytes", ErrMalformedFrame, t, d.remaining())
	}

	return nil
}

// cloneBytes returns a copy of b that doesn't alias the input buffer, or nil if b is empty.
func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}

	return append([]byte(nil), b...)
}
