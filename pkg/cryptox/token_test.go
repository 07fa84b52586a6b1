package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43) // 32 bytes base64url, no padding

	other, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)
}

func TestGenerateTokenRejectsBadSize(t *testing.T) {
	_, err := GenerateToken(0)
	require.Error(t, err)
	_, err = GenerateToken(-5)
	require.Error(t, err)
}

func TestFingerprintTokenDeterministic(t *testing.T) {
	a := FingerprintToken("session-token")
	b := FingerprintToken("session-token")
	c := FingerprintToken("other-token")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 43)
}

func TestRandomString(t *testing.T) {
	s, err := RandomString(128, CharsetAlphanumeric)
	require.NoError(t, err)
	require.Len(t, s, 128)
	for _, c := range s {
		require.Contains(t, CharsetAlphanumeric, string(c))
	}

	noise, err := RandomString(64, CharsetLowerAlphanumeric)
	require.NoError(t, err)
	require.Len(t, noise, 64)
	for _, c := range noise {
		require.Contains(t, CharsetLowerAlphanumeric, string(c))
	}

	_, err = RandomString(0, CharsetDigits)
	require.Error(t, err)
}
