package app

import (
	"fmt"
	"log/slog"

	"github.com/halcyonlabs/keywarden/pkg/jwtx"
)

// InitSigningKeys loads the private signing key from disk and builds the
// signer, the public key set, and a verifier for the service's own
// authenticated endpoints.
//
// The key is loaded exactly once at startup. Any failure here wraps
// jwtx.ErrKeyUnavailable and is fatal: a forge that cannot sign must refuse
// to start rather than limp along issuing nothing.
func InitSigningKeys(cfg Config, logger *slog.Logger) (*jwtx.KeySet, jwtx.Signer, jwtx.Verifier, error) {
	pemKey, err := jwtx.LoadPrivateKeyPEM(cfg.SigningKeyFile, cfg.SigningKeyPassword)
	if err != nil {
		return nil, nil, nil, err
	}

	signer, err := jwtx.NewSigner(cfg.Algorithm, cfg.SigningKeyID, pemKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", jwtx.ErrKeyUnavailable, err)
	}
	if err := signer.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", jwtx.ErrKeyUnavailable, err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", jwtx.ErrKeyUnavailable, err)
	}

	logger.Info("signing key loaded",
		"algorithm", signer.Alg(),
		"kid", signer.KID(),
		"issuer", cfg.Issuer,
	)

	// The verifier accepts any tenant audience; only issuer and expiry are
	// pinned here. Tenant audience enforcement happens per request.
	verifier := jwtx.NewVerifier(keys, cfg.Algorithm, cfg.Issuer, nil)
	return keys, signer, verifier, nil
}
