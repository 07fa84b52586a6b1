package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
)

type credentialsRepo struct {
	db dbtx
}

const credentialColumns = `id, user_id, tenant, type, failed_attempts, last_used_at,
	secret_hash, secret_history, reset_token_hash, reset_token_expires_at,
	mfa_enabled, totp_secret, name, created_at, updated_at`

func scanCredential(row interface{ Scan(...any) error }) (domain.Credential, error) {
	var c domain.Credential
	var history string
	var lastUsed, resetExpires sql.NullTime
	err := row.Scan(
		&c.ID, &c.UserID, &c.Tenant, &c.Type, &c.FailedAttempts, &lastUsed,
		&c.SecretHash, &history, &c.ResetTokenHash, &resetExpires,
		&c.MFAEnabled, &c.TOTPSecret, &c.Name, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	c.SecretHistory = splitList(history)
	c.LastUsedAt = mapNullTimePtr(lastUsed)
	c.ResetTokenExpiresAt = mapNullTimePtr(resetExpires)
	return c, nil
}

func (r *credentialsRepo) CreateCredential(ctx context.Context, c domain.Credential) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, user_id, tenant, type, failed_attempts, last_used_at,
			secret_hash, secret_history, reset_token_hash, reset_token_expires_at,
			mfa_enabled, totp_secret, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Tenant, c.Type, c.FailedAttempts, mapOptionalTime(c.LastUsedAt),
		c.SecretHash, joinList(c.SecretHistory), c.ResetTokenHash, mapOptionalTime(c.ResetTokenExpiresAt),
		c.MFAEnabled, c.TOTPSecret, c.Name, now, now,
	)
	return mapConflict(err)
}

func (r *credentialsRepo) GetCredentialByID(ctx context.Context, tenant, userID, id string) (domain.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE tenant = ? AND user_id = ? AND id = ?`, tenant, userID, id)
	return scanCredential(row)
}

func (r *credentialsRepo) GetCredentialByType(ctx context.Context, tenant, userID string, typ domain.CredentialType) (domain.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE tenant = ? AND user_id = ? AND type = ?`, tenant, userID, typ)
	return scanCredential(row)
}

func (r *credentialsRepo) ListCredentialsByType(ctx context.Context, tenant, userID string, typ domain.CredentialType) ([]domain.Credential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE tenant = ? AND user_id = ? AND type = ?
		 ORDER BY created_at ASC, id ASC`, tenant, userID, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *credentialsRepo) CountCredentialsByType(ctx context.Context, tenant, userID string, typ domain.CredentialType) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credentials WHERE tenant = ? AND user_id = ? AND type = ?`,
		tenant, userID, typ).Scan(&count)
	return count, err
}

// UpdateCredentialSecret is a compare-and-swap on the previous hash so a
// stale rotation fails instead of silently overwriting a newer secret.
func (r *credentialsRepo) UpdateCredentialSecret(ctx context.Context, id, previousHash, newHash string, history []string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials
		 SET secret_hash = ?, secret_history = ?, failed_attempts = 0,
		     reset_token_hash = '', reset_token_expires_at = NULL, updated_at = ?
		 WHERE id = ? AND secret_hash = ?`,
		newHash, joinList(history), time.Now().UTC(), id, previousHash,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *credentialsRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials
		 SET reset_token_hash = ?, reset_token_expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		tokenHash, expiresAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *credentialsRepo) SetMFAEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET mfa_enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *credentialsRepo) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials
		 SET last_used_at = ?, failed_attempts = 0, updated_at = ?
		 WHERE id = ?`,
		at.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *credentialsRepo) IncrementFailedAttempts(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials
		 SET failed_attempts = failed_attempts + 1, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, tenant, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE tenant = ? AND user_id = ? AND id = ?`,
		tenant, userID, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *credentialsRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE credentials
		 SET reset_token_hash = '', reset_token_expires_at = NULL, updated_at = ?
		 WHERE reset_token_expires_at IS NOT NULL AND reset_token_expires_at < ?`,
		time.Now().UTC(), now.UTC(),
	)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
