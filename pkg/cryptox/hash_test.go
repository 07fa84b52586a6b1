package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashSecretRoundTrip(t *testing.T) {
	hash, err := HashSecret("S3cret!pass")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifySecret("S3cret!pass", hash))
	require.ErrorIs(t, VerifySecret("wrong", hash), ErrMismatch)
}

func TestHashSecretUniqueSalts(t *testing.T) {
	a, err := HashSecret("same")
	require.NoError(t, err)
	b, err := HashSecret("same")
	require.NoError(t, err)

	// Same input, different salt, different encoding
	require.NotEqual(t, a, b)
	require.NoError(t, VerifySecret("same", a))
	require.NoError(t, VerifySecret("same", b))
}

func TestVerifySecretMalformedHash(t *testing.T) {
	err := VerifySecret("x", "$argon2id$v=19$broken")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMismatch)

	err = VerifySecret("x", "$bcrypt$whatever$salt$hash$extra")
	require.Error(t, err)
}

func TestVerifyAnySecret(t *testing.T) {
	h1, err := HashSecret("111111")
	require.NoError(t, err)
	h2, err := HashSecret("222222")
	require.NoError(t, err)

	require.NoError(t, VerifyAnySecret("222222", []string{h1, h2}))
	require.ErrorIs(t, VerifyAnySecret("333333", []string{h1, h2}), ErrMismatch)
	require.ErrorIs(t, VerifyAnySecret("anything", nil), ErrMismatch)
}
