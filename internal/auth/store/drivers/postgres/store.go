package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// pgdb is satisfied by both *pgxpool.Pool and pgx.Tx so the repos can run
// inside or outside a transaction.
type pgdb interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dbURL string) (*Store, error) {
	pool, err := pgxpool.Connect(ctx, dbURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return newTx(ctx, tx), nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Users() store.Users             { return &usersRepo{db: s.pool} }
func (s *Store) Credentials() store.Credentials { return &credentialsRepo{db: s.pool} }
func (s *Store) Sessions() store.Sessions       { return &sessionsRepo{db: s.pool} }

// ApplyMigrations bootstraps the schema. The statements are idempotent so a
// restart against an initialized database is a no-op.
func (s *Store) ApplyMigrations() error {
	_, err := s.pool.Exec(context.Background(), schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id                TEXT PRIMARY KEY,
    tenant            TEXT NOT NULL,
    mail              TEXT NOT NULL,
    mail_verified     BOOLEAN NOT NULL DEFAULT FALSE,
    display_name      TEXT NOT NULL DEFAULT '',
    given_name        TEXT NOT NULL DEFAULT '',
    family_name       TEXT NOT NULL DEFAULT '',
    organization      TEXT NOT NULL DEFAULT '',
    organization_unit TEXT NOT NULL DEFAULT '',
    roles             TEXT NOT NULL DEFAULT '',
    locked            BOOLEAN NOT NULL DEFAULT FALSE,
    created_at        TIMESTAMPTZ NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS users_tenant_mail ON users (tenant, lower(mail));

CREATE TABLE IF NOT EXISTS credentials (
    id                     TEXT PRIMARY KEY,
    user_id                TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    tenant                 TEXT NOT NULL,
    type                   TEXT NOT NULL,
    failed_attempts        INTEGER NOT NULL DEFAULT 0,
    last_used_at           TIMESTAMPTZ,
    secret_hash            TEXT NOT NULL DEFAULT '',
    secret_history         TEXT NOT NULL DEFAULT '',
    reset_token_hash       TEXT NOT NULL DEFAULT '',
    reset_token_expires_at TIMESTAMPTZ,
    mfa_enabled            BOOLEAN NOT NULL DEFAULT FALSE,
    totp_secret            TEXT NOT NULL DEFAULT '',
    name                   TEXT NOT NULL DEFAULT '',
    created_at             TIMESTAMPTZ NOT NULL,
    updated_at             TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS credentials_single_secret
    ON credentials (tenant, user_id, type)
    WHERE type IN ('PASSWORD', 'PINCODE');

CREATE UNIQUE INDEX IF NOT EXISTS credentials_name
    ON credentials (tenant, user_id, type, lower(name))
    WHERE name <> '';

CREATE INDEX IF NOT EXISTS credentials_user ON credentials (tenant, user_id);

CREATE TABLE IF NOT EXISTS sessions (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    tenant       TEXT NOT NULL,
    token_hash   TEXT NOT NULL UNIQUE,
    mfa_verified BOOLEAN,
    browser      TEXT NOT NULL DEFAULT '',
    os           TEXT NOT NULL DEFAULT '',
    ipv4         TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL,
    expires_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS sessions_user ON sessions (tenant, user_id);
`

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrAlreadyExists
	}
	return err
}

func joinList(parts []string) string {
	return strings.Join(parts, " ")
}

func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func mapNullBoolPtr(nb sql.NullBool) *bool {
	if nb.Valid {
		val := nb.Bool
		return &val
	}
	return nil
}
