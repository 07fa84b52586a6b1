package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/events"
	"github.com/halcyonlabs/keywarden/internal/auth/notify"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/halcyonlabs/keywarden/pkg/cryptox"
	"github.com/halcyonlabs/keywarden/pkg/idx"
)

// secretStore holds the lifecycle shared by the password and pincode
// factors: a single hashed secret per user, a last-5 rotation history, reset
// tokens, and the MFA flag. PasswordService and PincodeService embed it.
type secretStore struct {
	Store    store.Store
	Notifier notify.Notifier
	Events   events.Publisher

	typ domain.CredentialType

	// validate rejects malformed raw secrets before hashing (e.g. pincodes
	// must be numeric). Nil means any non-empty secret is accepted.
	validate func(secret string) error
}

// Create enrolls the factor for a user. At most one credential of this type
// may exist per user; a second create returns store.ErrAlreadyExists.
func (s *secretStore) Create(ctx context.Context, tenant, userID, secret string) (domain.Credential, error) {
	if err := s.checkSecret(secret); err != nil {
		return domain.Credential{}, err
	}

	if _, err := s.Store.Users().GetUserByID(ctx, tenant, userID); err != nil {
		return domain.Credential{}, err
	}

	hash, err := cryptox.HashSecret(secret)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("hash secret: %w", err)
	}

	cred := domain.Credential{
		ID:         idx.New().String(),
		UserID:     userID,
		Tenant:     tenant,
		Type:       s.typ,
		SecretHash: hash,
	}
	if err := s.Store.Credentials().CreateCredential(ctx, cred); err != nil {
		return domain.Credential{}, err
	}

	s.publish(ctx, tenant, cred.ID, events.ActionCreated)
	return cred, nil
}

// FindByUser returns the user's credential of this type.
func (s *secretStore) FindByUser(ctx context.Context, tenant, userID string) (domain.Credential, error) {
	return s.Store.Credentials().GetCredentialByType(ctx, tenant, userID, s.typ)
}

// Verify compares a presented secret against the stored hash. A mismatch
// increments the failed-attempt counter and returns ErrInvalidCredential; a
// match stamps last-use and zeroes the counter.
func (s *secretStore) Verify(ctx context.Context, tenant, userID, secret string) (domain.Credential, error) {
	cred, err := s.FindByUser(ctx, tenant, userID)
	if err != nil {
		return domain.Credential{}, err
	}

	if err := cryptox.VerifySecret(secret, cred.SecretHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			_ = s.Store.Credentials().IncrementFailedAttempts(ctx, cred.ID)
			return domain.Credential{}, ErrInvalidCredential
		}
		return domain.Credential{}, err
	}

	if err := s.Store.Credentials().RecordSuccess(ctx, cred.ID, time.Now()); err != nil {
		return domain.Credential{}, err
	}
	return cred, nil
}

// RotateSecret installs a new secret: the previous hash moves into the
// last-5 history, the failed-attempt counter resets, and any outstanding
// reset token is cleared. Reusing the current secret or a recent one is
// rejected.
func (s *secretStore) RotateSecret(ctx context.Context, tenant, userID, newSecret string) (domain.Credential, error) {
	if err := s.checkSecret(newSecret); err != nil {
		return domain.Credential{}, err
	}

	var out domain.Credential
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		cred, err := tx.Credentials().GetCredentialByType(ctx, tenant, userID, s.typ)
		if err != nil {
			return err
		}
		rotated, err := rotate(ctx, tx, cred, newSecret)
		if err != nil {
			return err
		}
		out = rotated
		return nil
	})
	if err != nil {
		return domain.Credential{}, err
	}

	s.publish(ctx, tenant, out.ID, events.ActionUpdated)
	return out, nil
}

// TriggerReset issues a fresh reset token: 128 random alphanumeric
// characters, stored hashed with a 2-hour expiry, handed to the notification
// collaborator for out-of-band delivery. The raw token is never persisted.
func (s *secretStore) TriggerReset(ctx context.Context, tenant, userID string) error {
	cred, err := s.FindByUser(ctx, tenant, userID)
	if err != nil {
		return err
	}
	user, err := s.Store.Users().GetUserByID(ctx, tenant, userID)
	if err != nil {
		return err
	}

	raw, err := cryptox.RandomString(domain.ResetTokenLength, cryptox.CharsetAlphanumeric)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	hash, err := cryptox.HashSecret(raw)
	if err != nil {
		return fmt.Errorf("hash reset token: %w", err)
	}

	expiresAt := time.Now().Add(domain.ResetTokenTTL)
	if err := s.Store.Credentials().SetResetToken(ctx, cred.ID, hash, expiresAt); err != nil {
		return err
	}

	if err := s.Notifier.SendResetToken(ctx, user.Mail, raw); err != nil {
		return fmt.Errorf("deliver reset token: %w", err)
	}

	s.publish(ctx, tenant, cred.ID, events.ActionUpdated)
	return nil
}

// ConsumeReset redeems a reset token exactly once: on success the secret
// rotates and the reset fields clear atomically, so presenting the same
// token again fails with ErrInvalidResetToken. An expired token is left in
// place and reported as ErrResetTokenExpired.
func (s *secretStore) ConsumeReset(ctx context.Context, tenant, userID, rawToken, newSecret string) (domain.Credential, error) {
	if err := s.checkSecret(newSecret); err != nil {
		return domain.Credential{}, err
	}

	var out domain.Credential
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		cred, err := tx.Credentials().GetCredentialByType(ctx, tenant, userID, s.typ)
		if err != nil {
			return err
		}

		if cred.ResetTokenHash == "" {
			return ErrInvalidResetToken
		}
		if err := cryptox.VerifySecret(rawToken, cred.ResetTokenHash); err != nil {
			if errors.Is(err, cryptox.ErrMismatch) {
				_ = tx.Credentials().IncrementFailedAttempts(ctx, cred.ID)
				return ErrInvalidResetToken
			}
			return err
		}
		if cred.ResetTokenExpired(time.Now()) {
			return ErrResetTokenExpired
		}

		rotated, err := rotate(ctx, tx, cred, newSecret)
		if err != nil {
			return err
		}
		out = rotated
		return nil
	})
	if err != nil {
		return domain.Credential{}, err
	}

	s.publish(ctx, tenant, out.ID, events.ActionUpdated)
	return out, nil
}

// SetMFA flips the MFA flag. Enabling requires at least one TOTP credential;
// without one the dependency is reported as store.ErrNotFound.
func (s *secretStore) SetMFA(ctx context.Context, tenant, userID string, enabled bool) error {
	cred, err := s.FindByUser(ctx, tenant, userID)
	if err != nil {
		return err
	}

	if enabled {
		count, err := s.Store.Credentials().CountCredentialsByType(ctx, tenant, userID, domain.CredentialTOTP)
		if err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("no TOTP credential enrolled: %w", store.ErrNotFound)
		}
	}

	if err := s.Store.Credentials().SetMFAEnabled(ctx, cred.ID, enabled); err != nil {
		return err
	}

	s.publish(ctx, tenant, cred.ID, events.ActionUpdated)
	return nil
}

// Delete removes the credential.
func (s *secretStore) Delete(ctx context.Context, tenant, userID string) error {
	cred, err := s.FindByUser(ctx, tenant, userID)
	if err != nil {
		return err
	}
	if err := s.Store.Credentials().DeleteCredential(ctx, tenant, userID, cred.ID); err != nil {
		return err
	}

	s.publish(ctx, tenant, cred.ID, events.ActionDeleted)
	return nil
}

func (s *secretStore) checkSecret(secret string) error {
	if secret == "" {
		return ErrInvalidCredential
	}
	if s.validate != nil {
		return s.validate(secret)
	}
	return nil
}

func (s *secretStore) publish(ctx context.Context, tenant, credentialID string, action events.Action) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, events.New(tenant, "credential", credentialID, action))
}

// rotate is the shared rotation step used by RotateSecret and ConsumeReset.
// It must run inside a transaction; the store's compare-and-swap on the
// previous hash makes a stale rotation fail rather than overwrite.
func rotate(ctx context.Context, tx store.Tx, cred domain.Credential, newSecret string) (domain.Credential, error) {
	inUse := append([]string{cred.SecretHash}, cred.SecretHistory...)
	if err := cryptox.VerifyAnySecret(newSecret, inUse); err == nil {
		return domain.Credential{}, ErrSecretRecentlyUsed
	}

	previous := cred.SecretHash
	cred.PushSecretHistory()

	hash, err := cryptox.HashSecret(newSecret)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("hash secret: %w", err)
	}

	if err := tx.Credentials().UpdateCredentialSecret(ctx, cred.ID, previous, hash, cred.SecretHistory); err != nil {
		return domain.Credential{}, err
	}

	cred.SecretHash = hash
	cred.FailedAttempts = 0
	cred.ResetTokenHash = ""
	cred.ResetTokenExpiresAt = nil
	return cred, nil
}
