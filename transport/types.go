// Package transport defines the value types shared by the frame codec, the failover
// policy and the channel: data types and their sync directions, server descriptors,
// server roles and transport protocol identifiers.
package transport

import (
	"net"
	"strconv"
)

// DataType identifies one stream of endpoint data carried by a sync exchange.
type DataType uint8

const (
	Profile DataType = iota
	Configuration
	Notification
	User
	Event
	Logging
)

// AllDataTypes lists every DataType in declaration order.
var AllDataTypes = [...]DataType{Profile, Configuration, Notification, User, Event, Logging}

func (t DataType) String() string {
	switch t {
	case Profile:
		return "profile"
	case Configuration:
		return "configuration"
	case Notification:
		return "notification"
	case User:
		return "user"
	case Event:
		return "event"
	case Logging:
		return "logging"
	default:
		return "unknown"
	}
}

// Direction tells the sync codec which way data of a type flows in one exchange.
type Direction uint8

const (
	// Up carries data from the endpoint to the server only.
	Up Direction = iota
	// Down suppresses the type's outbound data for this exchange.
	Down
	// Bidirectional carries data both ways.
	Bidirectional
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Bidirectional:
		return "bidirectional"
	default:
		return "unknown"
	}
}

// ServerType is the role of the server a channel talks to.
type ServerType uint8

const (
	Bootstrap ServerType = iota
	Operations
)

func (t ServerType) String() string {
	switch t {
	case Bootstrap:
		return "bootstrap"
	case Operations:
		return "operations"
	default:
		return "unknown"
	}
}

// ProtocolID identifies a transport protocol implementation and its version.
type ProtocolID struct {
	ID      int32
	Version int32
}

// TCPProtocolID is the identifier of the binary TCP protocol implemented by this module.
var TCPProtocolID = ProtocolID{ID: 0xfb9a3cf0 - 1<<32, Version: 1}

func (p ProtocolID) String() string {
	return strconv.FormatInt(int64(uint32(p.ID)), 16) + "/v" + strconv.Itoa(int(p.Version))
}

// ServerInfo describes a reconnect target.
type ServerInfo struct {
	Host      string
	Port      int
	PublicKey []byte
}

// NewServerInfo returns a ServerInfo holding a private copy of publicKey.
func NewServerInfo(host string, port int, publicKey []byte) ServerInfo {
	info := ServerInfo{Host: host, Port: port}
	if len(publicKey) > 0 {
		info.PublicKey = append([]byte(nil), publicKey...)
	}

	return info
}

// Address returns the "host:port" dial address.
func (s ServerInfo) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SameEndpoint reports whether s and other point at the same host and port.
// The public key does not take part in the comparison.
func (s ServerInfo) SameEndpoint(other ServerInfo) bool {
	return s.Host == other.Host && s.Port == other.Port
}

func (s ServerInfo) String() string {
	return s.Address()
}
