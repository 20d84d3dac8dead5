package frame

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
)

// msgIDGenerator generates process-wide unique sync message ids.
//
// The starting id is drawn from a cryptographically secure random source and atomically
// incremented afterwards; ids wrap around after 65535.
type msgIDGenerator struct {
	id atomic.Uint32
}

func newMsgIDGenerator() *msgIDGenerator {
	inst := &msgIDGenerator{}
	var buf [2]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		return inst
	}
	inst.id.Store(uint32(binary.BigEndian.Uint16(buf[:])))

	return inst
}

func (m *msgIDGenerator) next() uint16 {
	return uint16(m.id.Add(1)) //nolint:gosec // wrap around is intended
}

var (
	genInst *msgIDGenerator
	genOnce sync.Once
)

// NextMessageID returns the next sync message id.
func NextMessageID() uint16 {
	genOnce.Do(func() {
		genInst = newMsgIDGenerator()
	})

	return genInst.next()
}
