// Package crypto provides hashing and signing primitives for the wallet engine.
package crypto

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/trd-wallet/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// AddressFromPubKey derives an address from a compressed public key.
// Address = BLAKE3(compressed_pubkey)[:20].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}

// DigestJSON hashes the JSON encoding of v. encoding/json sorts map keys,
// so equal values always produce equal digests.
func DigestJSON(v interface{}) (types.Hash, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return types.Hash{}, fmt.Errorf("encode digest input: %w", err)
	}
	return Hash(data), nil
}
