package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	now := time.Now().UTC()
	c := NewAccessClaims(
		"user-1", "session-1",
		"keywarden",
		[]string{"acme", "core"},
		5*time.Minute,
		now,
	)

	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "session-1", c.SID)
	require.Equal(t, "keywarden", c.Issuer)
	require.ElementsMatch(t, []string{"acme", "core"}, c.Audience)
	require.NotEmpty(t, c.ID)
	require.Equal(t, now.Add(5*time.Minute).Unix(), c.ExpiresAt.Unix())

	// jti is fresh every time
	c2 := NewAccessClaims("user-1", "session-1", "keywarden", nil, time.Minute, now)
	require.NotEqual(t, c.ID, c2.ID)
}

func TestValidateIssuer(t *testing.T) {
	c := NewAccessClaims("u", "s", "keywarden", nil, time.Minute, time.Now())

	require.NoError(t, c.ValidateIssuer("keywarden"))
	require.NoError(t, c.ValidateIssuer("")) // nothing to enforce
	require.ErrorIs(t, c.ValidateIssuer("someone-else"), ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	c := NewAccessClaims("u", "s", "iss", []string{"acme", "core"}, time.Minute, time.Now())

	require.NoError(t, c.ValidateAudience([]string{"core"}))
	require.NoError(t, c.ValidateAudience(nil))
	require.ErrorIs(t, c.ValidateAudience([]string{"other"}), ErrAudience)
}

func TestValidateExpiry(t *testing.T) {
	expired := NewAccessClaims("u", "s", "iss", nil, -time.Minute, time.Now().Add(-2*time.Minute))
	require.ErrorIs(t, expired.ValidateExpiry(), ErrExpired)

	// Leeway rescues a token that just lapsed
	justLapsed := NewAccessClaims("u", "s", "iss", nil, time.Second, time.Now().Add(-2*time.Second))
	require.ErrorIs(t, justLapsed.ValidateExpiry(), ErrExpired)
	require.NoError(t, justLapsed.ValidateExpiryWithLeeway(time.Minute))

	notYet := NewAccessClaims("u", "s", "iss", nil, time.Hour, time.Now().Add(time.Hour))
	require.ErrorIs(t, notYet.ValidateExpiry(), ErrNotYetValid)
}

func TestMFAVerifiedTriState(t *testing.T) {
	c := NewAccessClaims("u", "s", "iss", nil, time.Minute, time.Now())
	require.Nil(t, c.MFAVerified)

	pending := false
	c.MFAVerified = &pending
	require.NotNil(t, c.MFAVerified)
	require.False(t, *c.MFAVerified)
}
