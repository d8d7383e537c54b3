package wallet

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed snapshot layout:
//
//	magic(8) | salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext
const (
	SaltSize   = 32
	headerSize = len(sealMagic) + SaltSize + 4 + 4 + 1
)

var sealMagic = [8]byte{'T', 'R', 'D', 'S', 'E', 'A', 'L', '1'}

var (
	// ErrSealed is returned when a sealed snapshot is read without a passphrase.
	ErrSealed = errors.New("snapshot is encrypted")
	// ErrBadPassphrase is returned when a sealed snapshot fails to open.
	ErrBadPassphrase = errors.New("wrong passphrase or corrupt snapshot")
)

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns recommended Argon2id parameters.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

func deriveKey(passphrase, salt []byte, params EncryptionParams) []byte {
	return argon2.IDKey(passphrase, salt, params.Iterations, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// IsSealed reports whether data starts with the sealed snapshot header.
func IsSealed(data []byte) bool {
	return len(data) >= len(sealMagic) && bytes.Equal(data[:len(sealMagic)], sealMagic[:])
}

// Seal encrypts a snapshot with Argon2id + XChaCha20-Poly1305.
func Seal(data, passphrase []byte, params EncryptionParams) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt, params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	header := make([]byte, 0, headerSize+len(nonce))
	header = append(header, sealMagic[:]...)
	header = append(header, salt...)
	header = binary.LittleEndian.AppendUint32(header, params.Memory)
	header = binary.LittleEndian.AppendUint32(header, params.Iterations)
	header = append(header, params.Parallelism)
	header = append(header, nonce...)

	// The header is authenticated so tampered KDF params fail to open.
	return aead.Seal(header, nonce, data, header[:headerSize]), nil
}

// Open decrypts a snapshot produced by Seal.
func Open(sealed, passphrase []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	if !IsSealed(sealed) || len(sealed) < headerSize+nonceSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("sealed snapshot too short or missing header: %d bytes", len(sealed))
	}

	off := len(sealMagic)
	salt := sealed[off : off+SaltSize]
	off += SaltSize
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(sealed[off:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[off+4:]),
		Parallelism: sealed[off+8],
	}
	nonce := sealed[headerSize : headerSize+nonceSize]
	ciphertext := sealed[headerSize+nonceSize:]

	key := deriveKey(passphrase, salt, params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, sealed[:headerSize])
	if err != nil {
		return nil, ErrBadPassphrase
	}
	return plaintext, nil
}
