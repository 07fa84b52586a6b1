package service

import (
	"context"
	"testing"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyCreateAndVerify(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "acme")
	svc := &APIKeyService{Store: st}

	raw, cred, err := svc.Create(ctx, "acme", user.ID, "ci-pipeline")
	require.NoError(t, err)
	require.Len(t, raw, domain.APIKeyLength)
	require.Equal(t, domain.CredentialAPIKey, cred.Type)
	require.Equal(t, "ci-pipeline", cred.Name)

	t.Run("the raw key round-trips to its owner", func(t *testing.T) {
		keyID, userID, err := domain.DecodeAPIKey(raw)
		require.NoError(t, err)
		require.Equal(t, cred.ID, keyID.String())
		require.Equal(t, user.ID, userID.String())
	})

	t.Run("verify authenticates the key", func(t *testing.T) {
		gotCred, gotUser, err := svc.Verify(ctx, "acme", raw)
		require.NoError(t, err)
		require.Equal(t, cred.ID, gotCred.ID)
		require.Equal(t, user.ID, gotUser.ID)
		require.NotNil(t, gotCred.LastUsedAt)
	})

	t.Run("a tampered key is invalid, never a lookup error", func(t *testing.T) {
		tampered := []byte(raw)
		if tampered[1] == 'a' {
			tampered[1] = 'b'
		} else {
			tampered[1] = 'a'
		}
		_, _, err := svc.Verify(ctx, "acme", string(tampered))
		require.ErrorIs(t, err, ErrInvalidCredential)

		got, err := st.Credentials().GetCredentialByID(ctx, "acme", user.ID, cred.ID)
		require.NoError(t, err)
		require.Equal(t, 1, got.FailedAttempts)
	})

	t.Run("a malformed key is invalid", func(t *testing.T) {
		_, _, err := svc.Verify(ctx, "acme", "definitely-not-a-key")
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("keys do not cross tenants", func(t *testing.T) {
		_, _, err := svc.Verify(ctx, "other-tenant", raw)
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("several named keys may coexist", func(t *testing.T) {
		_, _, err := svc.Create(ctx, "acme", user.ID, "staging")
		require.NoError(t, err)

		keys, err := svc.FindByUser(ctx, "acme", user.ID)
		require.NoError(t, err)
		require.Len(t, keys, 2)
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		_, _, err := svc.Create(ctx, "acme", user.ID, "CI-Pipeline")
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})
}

func TestAPIKeyDelete(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "acme")
	svc := &APIKeyService{Store: st}

	raw, cred, err := svc.Create(ctx, "acme", user.ID, "short-lived")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "acme", user.ID, cred.ID))

	_, _, err = svc.Verify(ctx, "acme", raw)
	require.ErrorIs(t, err, ErrInvalidCredential)

	err = svc.Delete(ctx, "acme", user.ID, cred.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
