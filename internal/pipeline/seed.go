package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed returns a cryptographically random run seed.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
