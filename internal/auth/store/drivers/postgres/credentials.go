package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/jackc/pgconn"
)

type credentialsRepo struct {
	db pgdb
}

const credentialColumns = `id, user_id, tenant, type, failed_attempts, last_used_at,
	secret_hash, secret_history, reset_token_hash, reset_token_expires_at,
	mfa_enabled, totp_secret, name, created_at, updated_at`

func scanCredential(row interface{ Scan(...interface{}) error }) (domain.Credential, error) {
	var c domain.Credential
	var typ, history string
	var lastUsed, resetExpires sql.NullTime
	err := row.Scan(
		&c.ID, &c.UserID, &c.Tenant, &typ, &c.FailedAttempts, &lastUsed,
		&c.SecretHash, &history, &c.ResetTokenHash, &resetExpires,
		&c.MFAEnabled, &c.TOTPSecret, &c.Name, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	c.Type = domain.CredentialType(typ)
	c.SecretHistory = splitList(history)
	c.LastUsedAt = mapNullTimePtr(lastUsed)
	c.ResetTokenExpiresAt = mapNullTimePtr(resetExpires)
	return c, nil
}

func (r *credentialsRepo) CreateCredential(ctx context.Context, c domain.Credential) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO credentials (id, user_id, tenant, type, failed_attempts, last_used_at,
			secret_hash, secret_history, reset_token_hash, reset_token_expires_at,
			mfa_enabled, totp_secret, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.ID, c.UserID, c.Tenant, string(c.Type), c.FailedAttempts, c.LastUsedAt,
		c.SecretHash, joinList(c.SecretHistory), c.ResetTokenHash, c.ResetTokenExpiresAt,
		c.MFAEnabled, c.TOTPSecret, c.Name, now, now,
	)
	return mapConflict(err)
}

func (r *credentialsRepo) GetCredentialByID(ctx context.Context, tenant, userID, id string) (domain.Credential, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE tenant = $1 AND user_id = $2 AND id = $3`, tenant, userID, id)
	return scanCredential(row)
}

func (r *credentialsRepo) GetCredentialByType(ctx context.Context, tenant, userID string, typ domain.CredentialType) (domain.Credential, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE tenant = $1 AND user_id = $2 AND type = $3`, tenant, userID, string(typ))
	return scanCredential(row)
}

func (r *credentialsRepo) ListCredentialsByType(ctx context.Context, tenant, userID string, typ domain.CredentialType) ([]domain.Credential, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE tenant = $1 AND user_id = $2 AND type = $3
		 ORDER BY created_at ASC, id ASC`, tenant, userID, string(typ))
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
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM credentials WHERE tenant = $1 AND user_id = $2 AND type = $3`,
		tenant, userID, string(typ)).Scan(&count)
	return count, err
}

func (r *credentialsRepo) UpdateCredentialSecret(ctx context.Context, id, previousHash, newHash string, history []string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE credentials
		 SET secret_hash = $1, secret_history = $2, failed_attempts = 0,
		     reset_token_hash = '', reset_token_expires_at = NULL, updated_at = $3
		 WHERE id = $4 AND secret_hash = $5`,
		newHash, joinList(history), time.Now().UTC(), id, previousHash,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *credentialsRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE credentials
		 SET reset_token_hash = $1, reset_token_expires_at = $2, updated_at = $3
		 WHERE id = $4`,
		tokenHash, expiresAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *credentialsRepo) SetMFAEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE credentials SET mfa_enabled = $1, updated_at = $2 WHERE id = $3`,
		enabled, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *credentialsRepo) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE credentials
		 SET last_used_at = $1, failed_attempts = 0, updated_at = $2
		 WHERE id = $3`,
		at.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *credentialsRepo) IncrementFailedAttempts(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE credentials
		 SET failed_attempts = failed_attempts + 1, updated_at = $1
		 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, tenant, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM credentials WHERE tenant = $1 AND user_id = $2 AND id = $3`,
		tenant, userID, id,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *credentialsRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE credentials
		 SET reset_token_hash = '', reset_token_expires_at = NULL, updated_at = $1
		 WHERE reset_token_expires_at IS NOT NULL AND reset_token_expires_at < $2`,
		time.Now().UTC(), now.UTC(),
	)
	return err
}

func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
