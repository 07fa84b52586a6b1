package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the default lifetime for access tokens. They are
// deliberately short-lived; callers re-mint from the long-lived session
// identity token instead of extending these.
const DefaultAccessTokenTTL = 5 * time.Minute

// Claims are the access-token claims. The custom fields are a snapshot of
// the user's identity at issuance time, recomputed on every forge call and
// never cached across issuances.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session this token was forged from.
	SID string `json:"sid,omitempty"`

	// Identity snapshot from the user's profile and primary mail.
	Name             string `json:"name,omitempty"`
	GivenName        string `json:"given_name,omitempty"`
	FamilyName       string `json:"family_name,omitempty"`
	Organization     string `json:"organization,omitempty"`
	OrganizationUnit string `json:"organization_unit,omitempty"`
	Mail             string `json:"mail,omitempty"`
	MailVerified     bool   `json:"mail_verified"`

	// Roles held by the user at issuance time.
	Roles []string `json:"roles,omitempty"`

	// MFAVerified mirrors the session's tri-state flag:
	//   nil   - the authenticating factor did not require MFA
	//   false - a second factor is still pending; treat as not fully authenticated
	//   true  - MFA satisfied
	MFAVerified *bool `json:"mfa_verified,omitempty"`
}

// NewAccessClaims builds the registered portion of an access token: issuer,
// audience, jti, subject and the iat/exp window. Identity-snapshot fields
// are filled in by the forge.
func NewAccessClaims(
	subject, sid string,
	issuer string,
	audience []string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID: sid,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryWithLeeway(0)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
