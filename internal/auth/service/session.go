package service

import (
	"context"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/events"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/halcyonlabs/keywarden/pkg/cryptox"
	"github.com/halcyonlabs/keywarden/pkg/idx"
)

// SessionService creates and looks up sessions. The opaque identity token
// naming a session is stored only as a SHA-256 fingerprint; the raw value is
// handed to the caller exactly once at creation.
type SessionService struct {
	Store  store.Store
	Events events.Publisher
}

// Create mints a session. mfaRequired seeds the tri-state flag: true stores
// false (second factor pending), false stores nothing (no second factor
// involved). Returns the session plus the one-time raw identity token.
func (s *SessionService) Create(ctx context.Context, user domain.User, device domain.Device, duration time.Duration, mfaRequired bool) (domain.Session, string, error) {
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Session{}, "", err
	}

	var mfaVerified *bool
	if mfaRequired {
		pending := false
		mfaVerified = &pending
	}

	now := time.Now()
	session := domain.Session{
		ID:          idx.New().String(),
		UserID:      user.ID,
		Tenant:      user.Tenant,
		TokenHash:   cryptox.FingerprintToken(raw),
		MFAVerified: mfaVerified,
		Browser:     device.Browser,
		OS:          device.OS,
		IPv4:        device.IPv4,
		CreatedAt:   now,
		ExpiresAt:   now.Add(duration),
	}
	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.Session{}, "", err
	}

	s.publish(ctx, session.Tenant, session.ID, events.ActionCreated)
	return session, raw, nil
}

// FindByRawToken is the sole re-entry path for turning a long-lived identity
// token into fresh access tokens without re-presenting the original factor.
// Absent or expired sessions come back as store.ErrNotFound.
func (s *SessionService) FindByRawToken(ctx context.Context, raw string) (domain.Session, error) {
	return s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(raw), time.Now())
}

// MarkMFAVerified transitions the session's flag false -> true. Idempotent
// if already true, and irreversible.
func (s *SessionService) MarkMFAVerified(ctx context.Context, session domain.Session) error {
	if err := s.Store.Sessions().MarkMFAVerified(ctx, session.ID); err != nil {
		return err
	}
	s.publish(ctx, session.Tenant, session.ID, events.ActionUpdated)
	return nil
}

// FindByUser lists a user's sessions, newest first.
func (s *SessionService) FindByUser(ctx context.Context, tenant, userID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListSessionsByUser(ctx, tenant, userID)
}

// Delete revokes one session (logout).
func (s *SessionService) Delete(ctx context.Context, tenant, userID, id string) error {
	if err := s.Store.Sessions().DeleteSession(ctx, tenant, userID, id); err != nil {
		return err
	}
	s.publish(ctx, tenant, id, events.ActionDeleted)
	return nil
}

// DeleteAll revokes every session of a user (sign out everywhere).
func (s *SessionService) DeleteAll(ctx context.Context, tenant, userID string) error {
	if err := s.Store.Sessions().DeleteUserSessions(ctx, tenant, userID); err != nil {
		return err
	}
	s.publish(ctx, tenant, userID, events.ActionDeleted)
	return nil
}

func (s *SessionService) publish(ctx context.Context, tenant, resourceID string, action events.Action) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, events.New(tenant, "session", resourceID, action))
}
