package domain

import (
	"strings"
	"testing"

	"github.com/halcyonlabs/keywarden/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyRoundTrip(t *testing.T) {
	keyID := idx.New()
	userID := idx.New()

	raw, err := EncodeAPIKey(keyID, userID)
	require.NoError(t, err)
	require.Len(t, raw, APIKeyLength)

	gotKey, gotUser, err := DecodeAPIKey(raw)
	require.NoError(t, err)
	require.Equal(t, keyID, gotKey)
	require.Equal(t, userID, gotUser)

	// Fresh noise produces a different wire form for the same ids
	other, err := EncodeAPIKey(keyID, userID)
	require.NoError(t, err)
	require.NotEqual(t, raw, other)
}

func TestAPIKeyInterleaving(t *testing.T) {
	keyID := idx.ID(strings.Repeat("A", idx.Length))
	userID := idx.ID(strings.Repeat("B", idx.Length))
	noise := strings.Repeat("C", APIKeyNoiseLength)

	raw, err := encodeAPIKeyWithNoise(keyID, userID, noise)
	require.NoError(t, err)
	require.Len(t, raw, APIKeyLength)

	// First 64 chars alternate A,C; last 64 alternate B,C
	require.Equal(t, strings.Repeat("AC", 32), raw[:64])
	require.Equal(t, strings.Repeat("BC", 32), raw[64:])

	gotKey, gotUser, err := DecodeAPIKey(raw)
	require.NoError(t, err)
	require.Equal(t, keyID, gotKey)
	require.Equal(t, userID, gotUser)
}

func TestDecodeAPIKeyMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"too short":        strings.Repeat("a", APIKeyLength-1),
		"too long":         strings.Repeat("a", APIKeyLength+1),
		"non-alphanumeric": strings.Repeat("$", APIKeyLength),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeAPIKey(raw)
			require.ErrorIs(t, err, ErrMalformedAPIKey)
		})
	}
}

func TestEncodeAPIKeyRejectsBadIDs(t *testing.T) {
	_, err := EncodeAPIKey("short", idx.New())
	require.ErrorIs(t, err, ErrMalformedAPIKey)

	_, err = EncodeAPIKey(idx.New(), idx.ID(strings.Repeat("!", idx.Length)))
	require.ErrorIs(t, err, ErrMalformedAPIKey)
}
