package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash_Deterministic(t *testing.T) {
	a := Hash([]byte("trd"))
	b := Hash([]byte("trd"))
	require.Equal(t, a, b)
	require.False(t, a.IsZero())
}

func TestHash_DifferentInputs(t *testing.T) {
	require.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}

func TestHash_KnownVector(t *testing.T) {
	// BLAKE3 of the empty input.
	require.Equal(t,
		"af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		Hash(nil).String())
}

func TestAddressFromPubKey(t *testing.T) {
	pub := make([]byte, 33)
	pub[0] = 0x02
	addr := AddressFromPubKey(pub)
	h := Hash(pub)
	require.Equal(t, h[:20], addr[:])
}

func TestDigestJSON_KeyOrderIndependent(t *testing.T) {
	a, err := DigestJSON(map[string]string{"x": "1", "y": "2"})
	require.NoError(t, err)
	b, err := DigestJSON(map[string]string{"y": "2", "x": "1"})
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := DigestJSON(map[string]string{"x": "1", "y": "3"})
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestDigestJSON_Unencodable(t *testing.T) {
	_, err := DigestJSON(make(chan int))
	require.Error(t, err)
}
