package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushSecretHistoryEvictsOldest(t *testing.T) {
	c := Credential{Type: CredentialPassword}

	for i := range 7 {
		c.PushSecretHistory()
		c.SecretHash = fmt.Sprintf("hash-%d", i)
	}

	// First push was a no-op (no hash yet), then hash-0..hash-5 were pushed;
	// only the most recent 5 survive.
	require.Len(t, c.SecretHistory, SecretHistorySize)
	require.Equal(t, []string{"hash-1", "hash-2", "hash-3", "hash-4", "hash-5"}, c.SecretHistory)
}

func TestResetTokenExpiredBoundary(t *testing.T) {
	expiry := time.Now()
	c := Credential{ResetTokenExpiresAt: &expiry}

	// Exactly at the expiry instant the token is still valid
	require.False(t, c.ResetTokenExpired(expiry))
	require.True(t, c.ResetTokenExpired(expiry.Add(time.Nanosecond)))

	require.False(t, Credential{}.ResetTokenExpired(time.Now()))
}

func TestSessionMFAPending(t *testing.T) {
	require.False(t, Session{}.MFAPending())

	pending := false
	require.True(t, Session{MFAVerified: &pending}.MFAPending())

	done := true
	require.False(t, Session{MFAVerified: &done}.MFAPending())
}
