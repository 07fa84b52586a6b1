package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/events"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/halcyonlabs/keywarden/pkg/cryptox"
	"github.com/halcyonlabs/keywarden/pkg/idx"
)

// APIKeyService manages named API-key credentials. The raw key embeds its
// own credential id and the owner's user id (see domain.EncodeAPIKey), so
// verification needs no directory lookup: decode, fetch, compare hashes.
type APIKeyService struct {
	Store  store.Store
	Events events.Publisher
}

// Create mints a new API key for the user. The raw key is returned exactly
// once; only its hash is stored.
func (s *APIKeyService) Create(ctx context.Context, tenant, userID, name string) (string, domain.Credential, error) {
	if _, err := s.Store.Users().GetUserByID(ctx, tenant, userID); err != nil {
		return "", domain.Credential{}, err
	}

	keyID := idx.New()
	raw, err := domain.EncodeAPIKey(keyID, idx.ID(userID))
	if err != nil {
		return "", domain.Credential{}, fmt.Errorf("encode api key: %w", err)
	}
	hash, err := cryptox.HashSecret(raw)
	if err != nil {
		return "", domain.Credential{}, fmt.Errorf("hash api key: %w", err)
	}

	cred := domain.Credential{
		ID:         keyID.String(),
		UserID:     userID,
		Tenant:     tenant,
		Type:       domain.CredentialAPIKey,
		SecretHash: hash,
		Name:       name,
	}
	if err := s.Store.Credentials().CreateCredential(ctx, cred); err != nil {
		return "", domain.Credential{}, err
	}

	s.publish(ctx, tenant, cred.ID, events.ActionCreated)
	return raw, cred, nil
}

// FindByUser lists the user's API keys, oldest first.
func (s *APIKeyService) FindByUser(ctx context.Context, tenant, userID string) ([]domain.Credential, error) {
	return s.Store.Credentials().ListCredentialsByType(ctx, tenant, userID, domain.CredentialAPIKey)
}

// Verify authenticates a presented raw key. Decoding extracts the routing
// ids; the argon2 comparison against the stored hash is the actual
// authentication step. A mismatch increments the credential's counter.
func (s *APIKeyService) Verify(ctx context.Context, tenant, rawKey string) (domain.Credential, domain.User, error) {
	keyID, userID, err := domain.DecodeAPIKey(rawKey)
	if err != nil {
		return domain.Credential{}, domain.User{}, ErrInvalidCredential
	}

	user, err := s.Store.Users().GetUserByID(ctx, tenant, userID.String())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Credential{}, domain.User{}, ErrInvalidCredential
		}
		return domain.Credential{}, domain.User{}, err
	}

	cred, err := s.Store.Credentials().GetCredentialByID(ctx, tenant, user.ID, keyID.String())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Credential{}, domain.User{}, ErrInvalidCredential
		}
		return domain.Credential{}, domain.User{}, err
	}
	if cred.Type != domain.CredentialAPIKey {
		return domain.Credential{}, domain.User{}, ErrInvalidCredential
	}

	if err := cryptox.VerifySecret(rawKey, cred.SecretHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			_ = s.Store.Credentials().IncrementFailedAttempts(ctx, cred.ID)
			return domain.Credential{}, domain.User{}, ErrInvalidCredential
		}
		return domain.Credential{}, domain.User{}, err
	}

	if err := s.Store.Credentials().RecordSuccess(ctx, cred.ID, time.Now()); err != nil {
		return domain.Credential{}, domain.User{}, err
	}
	return cred, user, nil
}

// Delete revokes one API key.
func (s *APIKeyService) Delete(ctx context.Context, tenant, userID, id string) error {
	cred, err := s.Store.Credentials().GetCredentialByID(ctx, tenant, userID, id)
	if err != nil {
		return err
	}
	if cred.Type != domain.CredentialAPIKey {
		return store.ErrNotFound
	}

	if err := s.Store.Credentials().DeleteCredential(ctx, tenant, userID, id); err != nil {
		return err
	}

	s.publish(ctx, tenant, id, events.ActionDeleted)
	return nil
}

func (s *APIKeyService) publish(ctx context.Context, tenant, credentialID string, action events.Action) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, events.New(tenant, "credential", credentialID, action))
}
