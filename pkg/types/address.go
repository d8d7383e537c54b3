package types

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Address HRP (human-readable part) constants for bech32 encoding.
const (
	MainnetHRP = "trd"
	TestnetHRP = "ttrd"
)

// Address represents a 160-bit address (public key hash).
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Encode returns the bech32 encoding of the address under hrp.
func (a Address) Encode(hrp string) (string, error) {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32: convert bits: %w", err)
	}
	s, err := bech32.Encode(hrp, conv)
	if err != nil {
		return "", fmt.Errorf("bech32: %w", err)
	}
	return s, nil
}

// Hex returns the raw hex-encoded address without prefix.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// DecodeAddress parses a bech32 address and returns its HRP and payload.
func DecodeAddress(s string) (string, Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", Address{}, fmt.Errorf("bech32: %w", err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", Address{}, fmt.Errorf("bech32: convert bits: %w", err)
	}
	if len(raw) != AddressSize {
		return "", Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(raw))
	}
	var a Address
	copy(a[:], raw)
	return hrp, a, nil
}
