package store

import (
	"context"
	"errors"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
)

var (
	ErrNotFound        = errors.New("store: not found")
	ErrAlreadyExists   = errors.New("store: already exists")
	ErrStillReferenced = errors.New("store: still referenced")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and to stop callers from accidentally opening
// transactions within transactions.
type Store interface {
	Users() Users
	Credentials() Credentials
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., secret
	// rotation, reset-token consumption). The caller MUST call Commit() or
	// Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user scoped by tenant.
	GetUserByID(ctx context.Context, tenant, id string) (domain.User, error)

	// GetUserByMail resolves the user presenting a password/pincode login.
	GetUserByMail(ctx context.Context, tenant, mail string) (domain.User, error)

	// CreateUser inserts a new user (id provided by the app via idx).
	CreateUser(ctx context.Context, u domain.User) error

	// DeleteUser cascades to credentials and sessions (per schema).
	DeleteUser(ctx context.Context, tenant, id string) error
}

type Credentials interface {
	// CreateCredential inserts a new credential. Violating the one-per-user
	// rule for PASSWORD/PINCODE or the per-(user, type) name uniqueness
	// returns ErrAlreadyExists.
	CreateCredential(ctx context.Context, c domain.Credential) error

	// GetCredentialByID fetches one credential of a user.
	GetCredentialByID(ctx context.Context, tenant, userID, id string) (domain.Credential, error)

	// GetCredentialByType fetches the single PASSWORD or PINCODE credential
	// of a user.
	GetCredentialByType(ctx context.Context, tenant, userID string, typ domain.CredentialType) (domain.Credential, error)

	// ListCredentialsByType returns all credentials of a type for a user,
	// oldest first.
	ListCredentialsByType(ctx context.Context, tenant, userID string, typ domain.CredentialType) ([]domain.Credential, error)

	// CountCredentialsByType counts a user's credentials of a type.
	CountCredentialsByType(ctx context.Context, tenant, userID string, typ domain.CredentialType) (int, error)

	// UpdateCredentialSecret installs a rotated secret: new hash, updated
	// history, zeroed failed-attempt counter, cleared reset fields. The
	// write is guarded by the previous hash so a stale rotation loses
	// (returns ErrNotFound) instead of silently overwriting.
	UpdateCredentialSecret(ctx context.Context, id, previousHash, newHash string, history []string) error

	// SetResetToken stores a hashed reset token and its expiry.
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error

	// SetMFAEnabled flips the MFA flag on a PASSWORD/PINCODE credential.
	SetMFAEnabled(ctx context.Context, id string, enabled bool) error

	// RecordSuccess stamps last_used_at and zeroes the failed-attempt
	// counter after a successful verification.
	RecordSuccess(ctx context.Context, id string, at time.Time) error

	// IncrementFailedAttempts bumps the counter after a mismatch.
	IncrementFailedAttempts(ctx context.Context, id string) error

	// DeleteCredential removes one credential.
	DeleteCredential(ctx context.Context, tenant, userID, id string) error

	// ClearExpiredResetTokens wipes reset fields whose expiry has passed
	// (housekeeping).
	ClearExpiredResetTokens(ctx context.Context, now time.Time) error
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByTokenHash returns the session named by a hashed identity
	// token, ErrNotFound if absent or expired.
	GetSessionByTokenHash(ctx context.Context, tokenHash string, now time.Time) (domain.Session, error)

	// GetSessionByID fetches one session of a user.
	GetSessionByID(ctx context.Context, tenant, userID, id string) (domain.Session, error)

	// ListSessionsByUser returns a user's sessions, newest first.
	ListSessionsByUser(ctx context.Context, tenant, userID string) ([]domain.Session, error)

	// MarkMFAVerified transitions mfa_verified false -> true. Idempotent if
	// already true; a session that never required MFA is left untouched.
	MarkMFAVerified(ctx context.Context, id string) error

	// DeleteSession revokes one session.
	DeleteSession(ctx context.Context, tenant, userID, id string) error

	// DeleteUserSessions revokes every session of a user ("sign out
	// everywhere").
	DeleteUserSessions(ctx context.Context, tenant, userID string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}
