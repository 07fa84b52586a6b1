package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, tenant, token_hash, mfa_verified,
	browser, os, ipv4, created_at, expires_at`

func scanSession(row interface{ Scan(...any) error }) (domain.Session, error) {
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
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, tenant, token_hash, mfa_verified,
			browser, os, ipv4, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Tenant, s.TokenHash, mapOptionalBool(s.MFAVerified),
		s.Browser, s.OS, s.IPv4, s.CreatedAt.UTC(), s.ExpiresAt.UTC(),
	)
	return mapConflict(err)
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string, now time.Time) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE token_hash = ? AND expires_at >= ?`, tokenHash, now.UTC())
	return scanSession(row)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, tenant, userID, id string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE tenant = ? AND user_id = ? AND id = ?`, tenant, userID, id)
	return scanSession(row)
}

func (r *sessionsRepo) ListSessionsByUser(ctx context.Context, tenant, userID string) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE tenant = ? AND user_id = ?
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

// MarkMFAVerified only touches sessions that carry the tri-state flag; a
// session that never required a second factor is left untouched. Setting an
// already-true flag to true again makes the call idempotent.
func (r *sessionsRepo) MarkMFAVerified(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET mfa_verified = 1 WHERE id = ? AND mfa_verified IS NOT NULL`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Either the session is missing or it never required MFA.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return mapNotFound(err)
	}
	return nil
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, tenant, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE tenant = ? AND user_id = ? AND id = ?`,
		tenant, userID, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *sessionsRepo) DeleteUserSessions(ctx context.Context, tenant, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE tenant = ? AND user_id = ?`, tenant, userID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, now.UTC())
	return err
}
