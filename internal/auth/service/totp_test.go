package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTOTPEnrollAndVerify(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "acme")
	svc := &TOTPService{Store: st, Issuer: "keywarden-test"}

	enrollment, err := svc.Enroll(ctx, "acme", user.ID, "phone")
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.True(t, strings.HasPrefix(enrollment.URL, "otpauth://totp/"))
	require.Contains(t, enrollment.URL, "keywarden-test")
	require.Equal(t, "phone", enrollment.Credential.Name)

	t.Run("current code verifies", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)

		cred, err := svc.Verify(ctx, "acme", user.ID, code)
		require.NoError(t, err)
		require.Equal(t, enrollment.Credential.ID, cred.ID)
	})

	t.Run("one step of clock drift is tolerated", func(t *testing.T) {
		behind, err := totp.GenerateCode(enrollment.Secret, time.Now().Add(-totpPeriod))
		require.NoError(t, err)
		_, err = svc.Verify(ctx, "acme", user.ID, behind)
		require.NoError(t, err)

		ahead, err := totp.GenerateCode(enrollment.Secret, time.Now().Add(totpPeriod))
		require.NoError(t, err)
		_, err = svc.Verify(ctx, "acme", user.ID, ahead)
		require.NoError(t, err)
	})

	t.Run("two steps of drift is rejected", func(t *testing.T) {
		stale, err := totp.GenerateCode(enrollment.Secret, time.Now().Add(-3*totpPeriod))
		require.NoError(t, err)

		_, err = svc.Verify(ctx, "acme", user.ID, stale)
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("a miss increments every checked counter", func(t *testing.T) {
		second, err := svc.Enroll(ctx, "acme", user.ID, "backup")
		require.NoError(t, err)

		_, err = svc.Verify(ctx, "acme", user.ID, "000000")
		require.ErrorIs(t, err, ErrInvalidCredential)

		for _, id := range []string{enrollment.Credential.ID, second.Credential.ID} {
			got, err := st.Credentials().GetCredentialByID(ctx, "acme", user.ID, id)
			require.NoError(t, err)
			require.Positive(t, got.FailedAttempts)
		}
	})

	t.Run("no enrollment means not found, not invalid", func(t *testing.T) {
		other := seedUser(t, st, "acme")
		_, err := svc.Verify(ctx, "acme", other.ID, "123456")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestTOTPDeleteGuardsEnabledMFA(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "acme")
	totps := &TOTPService{Store: st, Issuer: "keywarden-test"}
	passwords := NewPasswordService(st, &captureNotifier{}, nil)

	_, err := passwords.Create(ctx, "acme", user.ID, "a long password")
	require.NoError(t, err)

	first, err := totps.Enroll(ctx, "acme", user.ID, "phone")
	require.NoError(t, err)
	require.NoError(t, passwords.SetMFA(ctx, "acme", user.ID, true))

	t.Run("the last authenticator cannot go while MFA is on", func(t *testing.T) {
		err := totps.Delete(ctx, "acme", user.ID, first.Credential.ID)
		require.ErrorIs(t, err, store.ErrStillReferenced)
	})

	t.Run("a spare authenticator can go", func(t *testing.T) {
		second, err := totps.Enroll(ctx, "acme", user.ID, "backup")
		require.NoError(t, err)

		require.NoError(t, totps.Delete(ctx, "acme", user.ID, second.Credential.ID))
	})

	t.Run("disabling MFA releases the last one", func(t *testing.T) {
		require.NoError(t, passwords.SetMFA(ctx, "acme", user.ID, false))
		require.NoError(t, totps.Delete(ctx, "acme", user.ID, first.Credential.ID))

		count, err := st.Credentials().CountCredentialsByType(ctx, "acme", user.ID, domain.CredentialTOTP)
		require.NoError(t, err)
		require.Zero(t, count)
	})
}

func TestTOTPDuplicateNameRejected(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "acme")
	svc := &TOTPService{Store: st, Issuer: "keywarden-test"}

	_, err := svc.Enroll(ctx, "acme", user.ID, "phone")
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, "acme", user.ID, "Phone")
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}
