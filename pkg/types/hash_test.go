package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash_IsZero(t *testing.T) {
	var zero Hash
	require.True(t, zero.IsZero())
	require.False(t, Hash{0x01}.IsZero())
}

func TestHash_StringRoundTrip(t *testing.T) {
	h := Hash{0xab}
	h[31] = 0xcd
	s := h.String()
	require.Len(t, s, 64)
	require.True(t, strings.HasPrefix(s, "ab"))
	require.True(t, strings.HasSuffix(s, "cd"))

	got, err := ParseHash(s)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestParseHash_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":     "",
		"short":     "abcd",
		"long":      strings.Repeat("0", 66),
		"not hex":   strings.Repeat("zz", 32),
		"odd chars": strings.Repeat("0", 63) + "g",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHash(in)
			require.Error(t, err)
		})
	}
}
