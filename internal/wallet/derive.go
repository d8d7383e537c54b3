package wallet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/trd-wallet/pkg/crypto"
	"github.com/tyler-smith/go-bip32"
)

// Derivation schemes selectable in config.
const (
	DerivationReference = "reference"
	DerivationBIP32     = "bip32"
)

// PreloadedSuffix marks index 0 of a reference wallet as carrying preloaded
// funds on reference indexers.
const PreloadedSuffix = "__600000"

// ChainExternal is the BIP-32 chain receiving addresses are derived on.
const ChainExternal = 0

// Deriver maps a derivation index to an address. Implementations must be
// deterministic and collision-free for a fixed key.
type Deriver interface {
	Derive(index int) (string, error)
}

var errNegativeIndex = errors.New("negative derivation index")

// NewDeriver returns the deriver for scheme.
func NewDeriver(scheme, masterPublicKey, hrp string) (Deriver, error) {
	switch scheme {
	case DerivationReference, "":
		return NewReferenceDeriver(masterPublicKey)
	case DerivationBIP32:
		return NewBIP32Deriver(masterPublicKey, hrp)
	default:
		return nil, fmt.Errorf("unknown derivation scheme %q", scheme)
	}
}

// ReferenceDeriver produces "<index>_<key>" addresses understood by
// reference indexers.
type ReferenceDeriver struct {
	key string
}

// NewReferenceDeriver returns a reference deriver for key.
func NewReferenceDeriver(key string) (*ReferenceDeriver, error) {
	if key == "" {
		return nil, fmt.Errorf("empty master public key")
	}
	return &ReferenceDeriver{key: key}, nil
}

// Derive implements Deriver.
func (d *ReferenceDeriver) Derive(index int) (string, error) {
	if index < 0 {
		return "", errNegativeIndex
	}
	addr := fmt.Sprintf("%d_%s", index, d.key)
	if index == 0 {
		addr += PreloadedSuffix
	}
	return addr, nil
}

// BIP32Deriver derives bech32 addresses from an extended public key along
// m/0/i. Results are memoized.
type BIP32Deriver struct {
	hrp   string
	chain *bip32.Key

	mu    sync.Mutex
	cache map[int]string
}

// NewBIP32Deriver parses xpub and prepares the external chain.
func NewBIP32Deriver(xpub, hrp string) (*BIP32Deriver, error) {
	if hrp == "" {
		return nil, fmt.Errorf("empty address prefix")
	}
	master, err := bip32.B58Deserialize(xpub)
	if err != nil {
		return nil, fmt.Errorf("parse extended key: %w", err)
	}
	chain, err := master.NewChildKey(ChainExternal)
	if err != nil {
		return nil, fmt.Errorf("derive external chain: %w", err)
	}
	return &BIP32Deriver{hrp: hrp, chain: chain, cache: make(map[int]string)}, nil
}

// Derive implements Deriver.
func (d *BIP32Deriver) Derive(index int) (string, error) {
	if index < 0 || uint64(index) >= uint64(bip32.FirstHardenedChild) {
		return "", fmt.Errorf("derivation index %d out of range", index)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr, ok := d.cache[index]; ok {
		return addr, nil
	}
	child, err := d.chain.NewChildKey(uint32(index))
	if err != nil {
		return "", fmt.Errorf("derive child %d: %w", index, err)
	}
	addr, err := crypto.AddressFromPubKey(child.PublicKey().Key).Encode(d.hrp)
	if err != nil {
		return "", err
	}
	d.cache[index] = addr
	return addr, nil
}
