package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/halcyonlabs/keywarden/internal/auth/store/drivers/sqlite"
	"github.com/halcyonlabs/keywarden/pkg/cryptox"
	"github.com/halcyonlabs/keywarden/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Set up a temporary pepper file for testing
	tmpDir := os.TempDir()
	pepperPath := filepath.Join(tmpDir, "test-pepper-service")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedUser(t *testing.T, st store.Store, tenant string) domain.User {
	t.Helper()

	now := time.Now()
	user := domain.User{
		ID:          idx.New().String(),
		Tenant:      tenant,
		Mail:        idx.New().String() + "@example.org",
		DisplayName: "Alice Example",
		GivenName:   "Alice",
		FamilyName:  "Example",
		Roles:       []string{"member"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))
	return user
}

// captureNotifier records the last reset token it was asked to deliver.
type captureNotifier struct {
	destination string
	token       string
}

func (n *captureNotifier) SendResetToken(_ context.Context, destination, rawToken string) error {
	n.destination = destination
	n.token = rawToken
	return nil
}

func TestPasswordLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "acme")
	svc := NewPasswordService(st, &captureNotifier{}, nil)

	cred, err := svc.Create(ctx, "acme", user.ID, "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, domain.CredentialPassword, cred.Type)
	require.NotEmpty(t, cred.SecretHash)

	t.Run("second password for the same user is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, "acme", user.ID, "another one")
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, "acme", idx.New().String(), "whatever")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("mismatch increments the counter, match resets it", func(t *testing.T) {
		_, err := svc.Verify(ctx, "acme", user.ID, "wrong guess")
		require.ErrorIs(t, err, ErrInvalidCredential)
		_, err = svc.Verify(ctx, "acme", user.ID, "wrong again")
		require.ErrorIs(t, err, ErrInvalidCredential)

		got, err := st.Credentials().GetCredentialByID(ctx, "acme", user.ID, cred.ID)
		require.NoError(t, err)
		require.Equal(t, 2, got.FailedAttempts)
		require.Nil(t, got.LastUsedAt)

		_, err = svc.Verify(ctx, "acme", user.ID, "correct horse battery")
		require.NoError(t, err)

		got, err = st.Credentials().GetCredentialByID(ctx, "acme", user.ID, cred.ID)
		require.NoError(t, err)
		require.Zero(t, got.FailedAttempts)
		require.NotNil(t, got.LastUsedAt)
	})

	t.Run("tenant isolation", func(t *testing.T) {
		_, err := svc.Verify(ctx, "other-tenant", user.ID, "correct horse battery")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRotateSecretKeepsLastFive(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "acme")
	svc := NewPasswordService(st, &captureNotifier{}, nil)

	_, err := svc.Create(ctx, "acme", user.ID, "secret-0")
	require.NoError(t, err)

	for i := 1; i <= 6; i++ {
		_, err := svc.RotateSecret(ctx, "acme", user.ID, fmt.Sprintf("secret-%d", i))
		require.NoError(t, err)
	}

	t.Run("current secret cannot be reused", func(t *testing.T) {
		_, err := svc.RotateSecret(ctx, "acme", user.ID, "secret-6")
		require.ErrorIs(t, err, ErrSecretRecentlyUsed)
	})

	t.Run("secrets still in the history are rejected", func(t *testing.T) {
		for i := 1; i <= 5; i++ {
			_, err := svc.RotateSecret(ctx, "acme", user.ID, fmt.Sprintf("secret-%d", i))
			require.ErrorIs(t, err, ErrSecretRecentlyUsed)
		}
	})

	t.Run("the oldest secret has been evicted and is accepted again", func(t *testing.T) {
		_, err := svc.RotateSecret(ctx, "acme", user.ID, "secret-0")
		require.NoError(t, err)

		_, err = svc.Verify(ctx, "acme", user.ID, "secret-0")
		require.NoError(t, err)
	})

	t.Run("history holds at most five entries", func(t *testing.T) {
		cred, err := svc.FindByUser(ctx, "acme", user.ID)
		require.NoError(t, err)
		require.Len(t, cred.SecretHistory, domain.SecretHistorySize)
	})
}

func TestResetFlow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "acme")
	notifier := &captureNotifier{}
	svc := NewPasswordService(st, notifier, nil)

	cred, err := svc.Create(ctx, "acme", user.ID, "original")
	require.NoError(t, err)

	require.NoError(t, svc.TriggerReset(ctx, "acme", user.ID))
	require.Equal(t, user.Mail, notifier.destination)
	require.Len(t, notifier.token, domain.ResetTokenLength)

	raw := notifier.token

	t.Run("wrong token does not consume and increments the counter", func(t *testing.T) {
		_, err := svc.ConsumeReset(ctx, "acme", user.ID, "not-the-token", "fresh secret")
		require.ErrorIs(t, err, ErrInvalidResetToken)

		got, err := st.Credentials().GetCredentialByID(ctx, "acme", user.ID, cred.ID)
		require.NoError(t, err)
		require.Equal(t, 1, got.FailedAttempts)
	})

	t.Run("valid token rotates the secret", func(t *testing.T) {
		rotated, err := svc.ConsumeReset(ctx, "acme", user.ID, raw, "fresh secret")
		require.NoError(t, err)
		require.Empty(t, rotated.ResetTokenHash)
		require.Nil(t, rotated.ResetTokenExpiresAt)
		require.Zero(t, rotated.FailedAttempts)

		_, err = svc.Verify(ctx, "acme", user.ID, "fresh secret")
		require.NoError(t, err)
		_, err = svc.Verify(ctx, "acme", user.ID, "original")
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("a consumed token cannot be replayed", func(t *testing.T) {
		_, err := svc.ConsumeReset(ctx, "acme", user.ID, raw, "yet another")
		require.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("an expired token is reported but not consumed", func(t *testing.T) {
		hash, err := cryptox.HashSecret("expired-token")
		require.NoError(t, err)
		require.NoError(t, st.Credentials().SetResetToken(ctx, cred.ID, hash, time.Now().Add(-time.Minute)))

		_, err = svc.ConsumeReset(ctx, "acme", user.ID, "expired-token", "newer secret")
		require.ErrorIs(t, err, ErrResetTokenExpired)

		got, err := st.Credentials().GetCredentialByID(ctx, "acme", user.ID, cred.ID)
		require.NoError(t, err)
		require.NotEmpty(t, got.ResetTokenHash)
	})

	t.Run("a fresh trigger replaces the outstanding token", func(t *testing.T) {
		require.NoError(t, svc.TriggerReset(ctx, "acme", user.ID))
		require.NotEqual(t, raw, notifier.token)

		_, err := svc.ConsumeReset(ctx, "acme", user.ID, notifier.token, "final secret")
		require.NoError(t, err)
	})
}

func TestSetMFARequiresTOTP(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "acme")
	passwords := NewPasswordService(st, &captureNotifier{}, nil)
	totps := &TOTPService{Store: st, Issuer: "keywarden-test"}

	_, err := passwords.Create(ctx, "acme", user.ID, "hunter2hunter2")
	require.NoError(t, err)

	t.Run("enabling without an authenticator fails", func(t *testing.T) {
		err := passwords.SetMFA(ctx, "acme", user.ID, true)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("enabling after enrollment succeeds", func(t *testing.T) {
		_, err := totps.Enroll(ctx, "acme", user.ID, "phone")
		require.NoError(t, err)

		require.NoError(t, passwords.SetMFA(ctx, "acme", user.ID, true))

		cred, err := passwords.FindByUser(ctx, "acme", user.ID)
		require.NoError(t, err)
		require.True(t, cred.MFAEnabled)
	})

	t.Run("disabling never needs an authenticator", func(t *testing.T) {
		require.NoError(t, passwords.SetMFA(ctx, "acme", user.ID, false))
	})
}

func TestPincodeValidation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "acme")
	svc := NewPincodeService(st, &captureNotifier{}, nil)

	t.Run("digits only", func(t *testing.T) {
		_, err := svc.Create(ctx, "acme", user.ID, "12a456")
		require.ErrorIs(t, err, ErrPincodeNotNumeric)
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, "acme", user.ID, "")
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("numeric pincode accepted alongside a password", func(t *testing.T) {
		passwords := NewPasswordService(st, &captureNotifier{}, nil)
		_, err := passwords.Create(ctx, "acme", user.ID, "a full password")
		require.NoError(t, err)

		_, err = svc.Create(ctx, "acme", user.ID, "123456")
		require.NoError(t, err)

		_, err = svc.Verify(ctx, "acme", user.ID, "123456")
		require.NoError(t, err)
	})

	t.Run("rotation enforces the digit rule too", func(t *testing.T) {
		_, err := svc.RotateSecret(ctx, "acme", user.ID, "98x7")
		require.ErrorIs(t, err, ErrPincodeNotNumeric)
	})
}
