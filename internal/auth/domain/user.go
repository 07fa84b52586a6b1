package domain

import "time"

// User is an end user of the platform, scoped to a tenant. The profile and
// mail fields are snapshotted into access-token claims at forge time.
type User struct {
	ID     string
	Tenant string

	Mail         string
	MailVerified bool

	DisplayName      string
	GivenName        string
	FamilyName       string
	Organization     string
	OrganizationUnit string

	Roles  []string
	Locked bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
