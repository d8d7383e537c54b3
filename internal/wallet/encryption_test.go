package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastParams returns low-cost Argon2 params for fast tests.
func fastParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64, // 64 KiB (minimal)
		Iterations:  1,
		Parallelism: 1,
	}
}

func TestSealOpen_Roundtrip(t *testing.T) {
	plaintext := []byte(`{"blockHeight":7}`)

	sealed, err := Seal(plaintext, []byte("pw"), fastParams())
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, string(sealed), "blockHeight")

	opened, err := Open(sealed, []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSealOpen_EmptyData(t *testing.T) {
	sealed, err := Seal([]byte{}, []byte("pw"), fastParams())
	require.NoError(t, err)

	opened, err := Open(sealed, []byte("pw"))
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestSealOpen_WrongPassphrase(t *testing.T) {
	sealed, err := Seal([]byte("data"), []byte("right"), fastParams())
	require.NoError(t, err)

	_, err = Open(sealed, []byte("wrong"))
	assert.ErrorIs(t, err, ErrBadPassphrase)
}

func TestSealOpen_TamperedHeader(t *testing.T) {
	sealed, err := Seal([]byte("data"), []byte("pw"), fastParams())
	require.NoError(t, err)

	// Flip a bit in the iteration count.
	sealed[len(sealMagic)+SaltSize+4] ^= 0x01
	_, err = Open(sealed, []byte("pw"))
	assert.Error(t, err)
}

func TestSealOpen_UniqueCiphertexts(t *testing.T) {
	a, err := Seal([]byte("same"), []byte("pw"), fastParams())
	require.NoError(t, err)
	b, err := Seal([]byte("same"), []byte("pw"), fastParams())
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "salt and nonce must differ per seal")
}

func TestOpen_TooShort(t *testing.T) {
	_, err := Open(sealMagic[:], []byte("pw"))
	assert.Error(t, err)

	_, err = Open([]byte("{}"), []byte("pw"))
	assert.Error(t, err)
}

func TestIsSealed_PlainJSON(t *testing.T) {
	assert.False(t, IsSealed([]byte(`{"addresses":[]}`)))
	assert.False(t, IsSealed(nil))
}
