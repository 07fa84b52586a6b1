package sqlite

import (
	"context"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, tenant, mail, mail_verified, display_name, given_name,
	family_name, organization, organization_unit, roles, locked, created_at, updated_at`

func (r *usersRepo) scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var roles string
	err := row.Scan(
		&u.ID, &u.Tenant, &u.Mail, &u.MailVerified,
		&u.DisplayName, &u.GivenName, &u.FamilyName,
		&u.Organization, &u.OrganizationUnit,
		&roles, &u.Locked, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Roles = splitList(roles)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, tenant, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant = ? AND id = ?`, tenant, id)
	return r.scanUser(row)
}

func (r *usersRepo) GetUserByMail(ctx context.Context, tenant, mail string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant = ? AND lower(mail) = lower(?)`, tenant, mail)
	return r.scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, tenant, mail, mail_verified, display_name, given_name,
			family_name, organization, organization_unit, roles, locked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Tenant, u.Mail, u.MailVerified,
		u.DisplayName, u.GivenName, u.FamilyName,
		u.Organization, u.OrganizationUnit,
		joinList(u.Roles), u.Locked, now, now,
	)
	return mapConflict(err)
}

func (r *usersRepo) DeleteUser(ctx context.Context, tenant, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE tenant = ? AND id = ?`, tenant, id)
	return err
}
