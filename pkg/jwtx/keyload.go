package jwtx

import (
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	//nolint:staticcheck // legacy RFC 1423 PEM encryption is what ships in key files
	"crypto/x509"
)

// ErrKeyUnavailable reports that the signing key could not be loaded. This is
// fatal at startup; the service cannot issue tokens without it.
var ErrKeyUnavailable = errors.New("jwtx: signing key unavailable")

// LoadPrivateKeyPEM reads a PEM private key from disk, decrypting it with
// password when the block is encrypted. The returned bytes are a plaintext
// PEM block suitable for NewSigner.
//
// The key is loaded exactly once at process start and the resulting Signer
// is immutable, so it can be shared by reference across concurrent forging
// calls without locking.
func LoadPrivateKeyPEM(path, password string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrKeyUnavailable, path, err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in %s", ErrKeyUnavailable, path)
	}

	//nolint:staticcheck // x509.IsEncryptedPEMBlock is deprecated but still
	// the format password-protected keys arrive in.
	if !x509.IsEncryptedPEMBlock(block) {
		return raw, nil
	}

	if password == "" {
		return nil, fmt.Errorf("%w: key %s is encrypted and no password was provided", ErrKeyUnavailable, path)
	}

	//nolint:staticcheck
	der, err := x509.DecryptPEMBlock(block, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt %s: %v", ErrKeyUnavailable, path, err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
}
