package engine

import (
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/crypto"
	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

// Signer signs a spend proposal in place.
type Signer interface {
	Sign(tx *wallet.Transaction) error
}

// SchnorrSigner signs the BLAKE3 digest of a proposal's chain params with a
// secp256k1 Schnorr key.
type SchnorrSigner struct {
	key *crypto.PrivateKey
}

// NewSchnorrSigner returns a signer using key.
func NewSchnorrSigner(key *crypto.PrivateKey) *SchnorrSigner {
	return &SchnorrSigner{key: key}
}

// Sign implements Signer.
func (s *SchnorrSigner) Sign(tx *wallet.Transaction) error {
	digest, err := SpendDigest(tx)
	if err != nil {
		return err
	}
	sig, err := s.key.SignDigest(digest)
	if err != nil {
		return fmt.Errorf("schnorr sign: %w", err)
	}
	tx.Signature = hex.EncodeToString(sig)
	tx.SigningStatus = wallet.SigningStatusSigned
	return nil
}

// PublicKey returns the signer's compressed public key.
func (s *SchnorrSigner) PublicKey() []byte {
	return s.key.PublicKey()
}

// SpendDigest is the message a signer commits to.
func SpendDigest(tx *wallet.Transaction) (types.Hash, error) {
	return crypto.DigestJSON(tx.ChainParams)
}
