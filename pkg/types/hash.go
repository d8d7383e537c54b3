// Package types defines the value types shared by the wallet engine:
// currency amounts, digests and raw addresses.
package types

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the length of a digest in bytes.
const HashSize = 32

// Hash is a 256-bit digest. Spend proposals are signed over one.
type Hash [HashSize]byte

// ParseHash decodes a 64-character hex digest.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != 2*HashSize {
		return h, fmt.Errorf("digest must be %d hex chars, got %d", 2*HashSize, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("invalid digest hex: %w", err)
	}
	return h, nil
}

// IsZero reports whether every byte is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}
