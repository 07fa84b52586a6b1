package service

import (
	"fmt"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/pkg/jwtx"
)

// TokenForge assembles and signs short-lived bearer tokens from a valid
// session plus the current user snapshot. It performs no persistence and
// holds no mutable state: the signer is immutable after startup, so Forge is
// safe to call repeatedly and concurrently for the same session.
type TokenForge struct {
	Signer       jwtx.Signer
	Issuer       string
	CoreAudience string
	AccessTTL    time.Duration
}

// Forge signs a bearer token. Claims are always recomputed from the passed
// user snapshot; nothing is cached across issuances. The audience carries
// the tenant id plus the fixed core audience, and mfa_verified mirrors the
// session's tri-state flag (absent when no second factor was involved).
func (f *TokenForge) Forge(session domain.Session, user domain.User) (domain.AccessToken, error) {
	ttl := f.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.NewAccessClaims(
		user.ID,
		session.ID,
		f.Issuer,
		[]string{user.Tenant, f.CoreAudience},
		ttl,
		time.Now(),
	)
	claims.Name = user.DisplayName
	claims.GivenName = user.GivenName
	claims.FamilyName = user.FamilyName
	claims.Organization = user.Organization
	claims.OrganizationUnit = user.OrganizationUnit
	claims.Mail = user.Mail
	claims.MailVerified = user.MailVerified
	claims.Roles = user.Roles
	claims.MFAVerified = session.MFAVerified

	token, err := f.Signer.Sign(claims)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}

	return domain.AccessToken{
		Token:     token,
		Type:      domain.TokenTypeBearer,
		ExpiresIn: int64(ttl.Seconds()),
	}, nil
}
