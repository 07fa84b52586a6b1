package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadPrivateKeyPEMPlain(t *testing.T) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	raw := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, raw, 0600))

	got, err := LoadPrivateKeyPEM(path, "")
	require.NoError(t, err)

	_, err = NewSigner("EdDSA", "k1", got)
	require.NoError(t, err)
}

func TestLoadPrivateKeyPEMEncrypted(t *testing.T) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	//nolint:staticcheck // producing the legacy format the loader must accept
	block, err := x509.EncryptPEMBlock(rand.Reader, "PRIVATE KEY", der, []byte("hunter2"), x509.PEMCipherAES256)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))

	// Wrong or missing password fails
	_, err = LoadPrivateKeyPEM(path, "")
	require.ErrorIs(t, err, ErrKeyUnavailable)
	_, err = LoadPrivateKeyPEM(path, "nope")
	require.ErrorIs(t, err, ErrKeyUnavailable)

	got, err := LoadPrivateKeyPEM(path, "hunter2")
	require.NoError(t, err)

	_, err = NewSigner("EdDSA", "k1", got)
	require.NoError(t, err)
}

func TestLoadPrivateKeyPEMMissingFile(t *testing.T) {
	_, err := LoadPrivateKeyPEM(filepath.Join(t.TempDir(), "nope.pem"), "")
	require.ErrorIs(t, err, ErrKeyUnavailable)
}
