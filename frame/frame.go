package frame

import (
	"encoding/binary"
	"fmt"
)

// Type is the frame type carried in the high nibble of the first header byte.
type Type uint8

// Frame types.
const (
	ConnectType    Type = 1
	ConnAckType    Type = 2
	PingReqType    Type = 12
	PingRespType   Type = 13
	DisconnectType Type = 14
	SyncType       Type = 15
)

func (t Type) String() string {
	switch t {
	case ConnectType:
		return "connect"
	case ConnAckType:
		return "connack"
	case PingReqType:
		return "pingreq"
	case PingRespType:
		return "pingresp"
	case DisconnectType:
		return "disconnect"
	case SyncType:
		return "sync"
	default:
		return fmt.Sprintf("undefined(%d)", uint8(t))
	}
}

const (
	// ProtocolName is written at the start of connect and sync variable headers.
	ProtocolName = "IOTLNK"
	// ProtocolVersion is the only supported protocol version.
	ProtocolVersion byte = 1

	// MaxRemainingLength is the largest value the four byte remaining length can hold.
	MaxRemainingLength = 268_435_455

	protocolHeaderSize = 2 + len(ProtocolName) + 1
)

// Connect flags.
const (
	connectFlagCleanSession byte = 0x02

	keyFlagSessionKey byte = 0x01
	keyFlagSignature  byte = 0x02
)

// Sync flags.
const (
	syncFlagRequest   byte = 0x01
	syncFlagZipped    byte = 0x02
	syncFlagEncrypted byte = 0x04
)

// Frame is one self-delimited unit of the wire protocol.
type Frame interface {
	// Type returns the frame type.
	Type() Type
	// ToBytes serializes the frame including its fixed header.
	ToBytes() ([]byte, error)
}

// ReturnCode is the server verdict carried by a ConnAck frame.
type ReturnCode byte

const (
	ReturnUndefined ReturnCode = iota
	ReturnAccepted
	ReturnRefuseBadProtocol
	ReturnRefuseIDRejected
	ReturnRefuseServerUnavailable
	ReturnRefuseBadCredentials
	ReturnRefuseNoAuth
	ReturnRefuseVerificationFailed
)

func (c ReturnCode) String() string {
	switch c {
	case ReturnAccepted:
		return "accepted"
	case ReturnRefuseBadProtocol:
		return "refuse-bad-protocol"
	case ReturnRefuseIDRejected:
		return "refuse-id-rejected"
	case ReturnRefuseServerUnavailable:
		return "refuse-server-unavailable"
	case ReturnRefuseBadCredentials:
		return "refuse-bad-credentials"
	case ReturnRefuseNoAuth:
		return "refuse-no-auth"
	case ReturnRefuseVerificationFailed:
		return "refuse-verification-failed"
	default:
		return "undefined"
	}
}

// DisconnectReason is the cause carried by a Disconnect frame.
type DisconnectReason byte

const (
	DisconnectNone DisconnectReason = iota
	DisconnectBadRequest
	DisconnectInternalError
	DisconnectCredentialsRevoked
)

func (r DisconnectReason) String() string {
	switch r {
	case DisconnectNone:
		return "none"
	case DisconnectBadRequest:
		return "bad-request"
	case DisconnectInternalError:
		return "internal-error"
	case DisconnectCredentialsRevoked:
		return "credentials-revoked"
	default:
		return fmt.Sprintf("undefined(%d)", uint8(r))
	}
}

// Connect is the handshake frame sent by the endpoint right after the socket opens.
//
// SessionKey and Signature are optional; they are only written when non-empty.
type Connect struct {
	KeepAlive  uint16
	SessionKey []byte
	Signature  []byte
	Body       []byte
}

// NewConnect creates a Connect frame with the keep-alive period in seconds and the sync request body.
func NewConnect(keepAlive uint16, body []byte) *Connect {
	return &Connect{KeepAlive: keepAlive, Body: body}
}

func (f *Connect) Type() Type { return ConnectType }

func (f *Connect) ToBytes() ([]byte, error) {
	if len(f.SessionKey) > 0xFFFF || len(f.Signature) > 0xFFFF {
		return nil, ErrFieldTooLong
	}

	size := protocolHeaderSize + 4 + len(f.Body)
	var keyFlags byte
	if len(f.SessionKey) > 0 {
		keyFlags |= keyFlagSessionKey
		size += 2 + len(f.SessionKey)
	}
	if len(f.Signature) > 0 {
		keyFlags |= keyFlagSignature
		size += 2 + len(f.Signature)
	}

	buf, err := newFrameBuffer(ConnectType, size)
	if err != nil {
		return nil, err
	}
	buf = appendProtocolHeader(buf)
	buf = append(buf, connectFlagCleanSession)
	buf = binary.BigEndian.AppendUint16(buf, f.KeepAlive)
	buf = append(buf, keyFlags)
	if keyFlags&keyFlagSessionKey != 0 {
		buf = appendField(buf, f.SessionKey)
	}
	if keyFlags&keyFlagSignature != 0 {
		buf = appendField(buf, f.Signature)
	}
	buf = append(buf, f.Body...)

	return buf, nil
}

// ConnAck is the server response to Connect.
type ConnAck struct {
	ReturnCode ReturnCode
}

// NewConnAck creates a ConnAck frame.
func NewConnAck(code ReturnCode) *ConnAck {
	return &ConnAck{ReturnCode: code}
}

func (f *ConnAck) Type() Type { return ConnAckType }

func (f *ConnAck) ToBytes() ([]byte, error) {
	buf, err := newFrameBuffer(ConnAckType, 2)
	if err != nil {
		return nil, err
	}

	return append(buf, 0, byte(f.ReturnCode)), nil
}

// Sync carries an opaque sync body in either direction.
type Sync struct {
	MessageID uint16
	Request   bool
	Zipped    bool
	Encrypted bool
	Body      []byte
}

// NewSyncRequest creates an endpoint to server sync frame with a fresh message id.
func NewSyncRequest(body []byte) *Sync {
	return &Sync{MessageID: NextMessageID(), Request: true, Body: body}
}

// NewSyncResponse creates a server to endpoint sync frame answering message id.
func NewSyncResponse(id uint16, body []byte) *Sync {
	return &Sync{MessageID: id, Body: body}
}

func (f *Sync) Type() Type { return SyncType }

// IsRequest reports whether the frame is a sync request.
func (f *Sync) IsRequest() bool { return f.Request }

func (f *Sync) ToBytes() ([]byte, error) {
	buf, err := newFrameBuffer(SyncType, protocolHeaderSize+3+len(f.Body))
	if err != nil {
		return nil, err
	}

	var flags byte
	if f.Request {
		flags |= syncFlagRequest
	}
	if f.Zipped {
		flags |= syncFlagZipped
	}
	if f.Encrypted {
		flags |= syncFlagEncrypted
	}

	buf = appendProtocolHeader(buf)
	buf = binary.BigEndian.AppendUint16(buf, f.MessageID)
	buf = append(buf, flags)
	buf = append(buf, f.Body...)

	return buf, nil
}

// Disconnect closes the session.
type Disconnect struct {
	Reason DisconnectReason
}

// NewDisconnect creates a Disconnect frame.
func NewDisconnect(reason DisconnectReason) *Disconnect {
	return &Disconnect{Reason: reason}
}

func (f *Disconnect) Type() Type { return DisconnectType }

func (f *Disconnect) ToBytes() ([]byte, error) {
	buf, err := newFrameBuffer(DisconnectType, 2)
	if err != nil {
		return nil, err
	}

	return append(buf, 0, byte(f.Reason)), nil
}

// PingRequest is the endpoint keep-alive probe.
type PingRequest struct{}

func (f *PingRequest) Type() Type { return PingReqType }

func (f *PingRequest) ToBytes() ([]byte, error) { return newFrameBuffer(PingReqType, 0) }

// PingResponse answers PingRequest.
type PingResponse struct{}

func (f *PingResponse) Type() Type { return PingRespType }

func (f *PingResponse) ToBytes() ([]byte, error) { return newFrameBuffer(PingRespType, 0) }

// newFrameBuffer allocates a buffer for a frame of the given payload size and writes the fixed header.
func newFrameBuffer(t Type, size int) ([]byte, error) {
	if size > MaxRemainingLength {
		return nil, ErrFrameTooLarge
	}

	buf := make([]byte, 0, 1+varintSize(size)+size)
	buf = append(buf, byte(t)<<4)

	return appendVarint(buf, size), nil
}

func appendProtocolHeader(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(ProtocolName)))
	buf = append(buf, ProtocolName...)

	return append(buf, ProtocolVersion)
}

func appendField(buf []byte, field []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(field))) //nolint:gosec // checked by caller

	return append(buf, field...)
}

func appendVarint(buf []byte, v int) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

func varintSize(v int) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}

	return n
}
