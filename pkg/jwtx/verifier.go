package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// KeySetVerifier validates tokens against a KeySet, selecting the public key
// by the token's kid header. One verifier handles all supported algorithms;
// the signer's algorithm is pinned at construction.
type KeySetVerifier struct {
	keys   *KeySet
	alg    string
	issuer string
	aud    []string
}

// NewVerifier creates a verifier that accepts tokens signed with alg whose
// kid resolves in keys.
func NewVerifier(keys *KeySet, alg, issuer string, aud []string) *KeySetVerifier {
	return &KeySetVerifier{keys: keys, alg: alg, issuer: issuer, aud: aud}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *KeySetVerifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{v.alg}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		// Need the kid to know which key to use
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("jwtx: missing kid")
		}

		pub, err := v.keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("jwtx: unknown kid %q: %w", kid, ErrUnknownKID)
		}

		// Make sure the key type matches the pinned algorithm
		switch v.alg {
		case "RS256":
			if _, ok := pub.(*rsa.PublicKey); !ok {
				return nil, ErrAlgMismatch
			}
		case "ES256":
			if _, ok := pub.(*ecdsa.PublicKey); !ok {
				return nil, ErrAlgMismatch
			}
		case "EdDSA":
			if _, ok := pub.(ed25519.PublicKey); !ok {
				return nil, ErrAlgMismatch
			}
		}
		return pub, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	// Now check all the claim requirements
	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.aud); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}
