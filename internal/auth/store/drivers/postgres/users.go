package postgres

import (
	"context"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
)

type usersRepo struct {
	db pgdb
}

const userColumns = `id, tenant, mail, mail_verified, display_name, given_name,
	family_name, organization, organization_unit, roles, locked, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (domain.User, error) {
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
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant = $1 AND id = $2`, tenant, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByMail(ctx context.Context, tenant, mail string) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant = $1 AND lower(mail) = lower($2)`, tenant, mail)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, tenant, mail, mail_verified, display_name, given_name,
			family_name, organization, organization_unit, roles, locked, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		u.ID, u.Tenant, u.Mail, u.MailVerified,
		u.DisplayName, u.GivenName, u.FamilyName,
		u.Organization, u.OrganizationUnit,
		joinList(u.Roles), u.Locked, now, now,
	)
	return mapConflict(err)
}

func (r *usersRepo) DeleteUser(ctx context.Context, tenant, id string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM users WHERE tenant = $1 AND id = $2`, tenant, id)
	return err
}
