package jwtx

import "fmt"

// Signer is our interface for anything that can sign access tokens.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
	Validate() error
}

// NewSigner creates a Signer for the given algorithm from PEM bytes.
// Supported algorithms: RS256, ES256, EdDSA.
func NewSigner(alg, kid string, pemKey []byte) (Signer, error) {
	switch alg {
	case "RS256":
		return newRS256Signer(kid, pemKey)
	case "ES256":
		return newES256Signer(kid, pemKey)
	case "EdDSA":
		return newEdDSASigner(kid, pemKey)
	default:
		return nil, fmt.Errorf("jwtx: unsupported signing algorithm %q", alg)
	}
}
