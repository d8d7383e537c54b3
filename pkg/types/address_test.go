package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddress_IsZero(t *testing.T) {
	var zero Address
	require.True(t, zero.IsZero())
	require.False(t, Address{0x01}.IsZero())
}

func TestAddress_EncodeDecode(t *testing.T) {
	var a Address
	a[0] = 0xab
	a[19] = 0xcd

	s, err := a.Encode(MainnetHRP)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(s, "trd1"), "got %s", s)

	hrp, got, err := DecodeAddress(s)
	require.NoError(t, err)
	require.Equal(t, MainnetHRP, hrp)
	require.Equal(t, a, got)
}

func TestAddress_TestnetHRP(t *testing.T) {
	s, err := Address{0x01}.Encode(TestnetHRP)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(s, "ttrd1"))
}

func TestDecodeAddress_Invalid(t *testing.T) {
	_, _, err := DecodeAddress("not-an-address")
	require.Error(t, err)

	s, err := Address{0x01}.Encode(MainnetHRP)
	require.NoError(t, err)
	// Corrupt the checksum.
	bad := s[:len(s)-1] + "q"
	if bad == s {
		bad = s[:len(s)-1] + "p"
	}
	_, _, err = DecodeAddress(bad)
	require.Error(t, err)
}

func TestAddress_Hex(t *testing.T) {
	a := Address{0x0a}
	require.Equal(t, "0a"+strings.Repeat("00", 19), a.Hex())
}
