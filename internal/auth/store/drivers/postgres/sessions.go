package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
)

type sessionsRepo struct {
	db pgdb
}

const sessionColumns = `id, user_id, tenant, token_hash, mfa_verified,
	browser, os, ipv4, created_at, expires_at`

func scanSession(row interface{ Scan(...interface{}) error }) (domain.Session, error) {
	var s domain.Session
	var mfa sql.NullBool
	err := row.Scan(
		&s.ID, &s.UserID, &s.Tenant, &s.TokenHash, &mfa,
		&s.Browser, &s.OS, &s.IPv4, &s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.MFAVerified = mapNullBoolPtr(mfa)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, tenant, token_hash, mfa_verified,
			browser, os, ipv4, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.UserID, s.Tenant, s.TokenHash, s.MFAVerified,
		s.Browser, s.OS, s.IPv4, s.CreatedAt.UTC(), s.ExpiresAt.UTC(),
	)
	return mapConflict(err)
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string, now time.Time) (domain.Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE token_hash = $1 AND expires_at >= $2`, tokenHash, now.UTC())
	return scanSession(row)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, tenant, userID, id string) (domain.Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE tenant = $1 AND user_id = $2 AND id = $3`, tenant, userID, id)
	return scanSession(row)
}

func (r *sessionsRepo) ListSessionsByUser(ctx context.Context, tenant, userID string) ([]domain.Session, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE tenant = $1 AND user_id = $2
		 ORDER BY created_at DESC, id DESC`, tenant, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) MarkMFAVerified(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sessions SET mfa_verified = TRUE WHERE id = $1 AND mfa_verified IS NOT NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Either the session is missing or it never required MFA.
	var exists int
	err = r.db.QueryRow(ctx, `SELECT 1 FROM sessions WHERE id = $1`, id).Scan(&exists)
	if err != nil {
		return mapNotFound(err)
	}
	return nil
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, tenant, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE tenant = $1 AND user_id = $2 AND id = $3`,
		tenant, userID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *sessionsRepo) DeleteUserSessions(ctx context.Context, tenant, userID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE tenant = $1 AND user_id = $2`, tenant, userID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, now.UTC())
	return err
}
