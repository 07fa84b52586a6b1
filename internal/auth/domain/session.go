package domain

import "time"

// Session lifetimes. A "remember me" login gets the long horizon.
const (
	SessionTTL           = 2 * time.Hour
	SessionTTLRemembered = 30 * 24 * time.Hour
)

// Session is a logged-in presence. The opaque identity token that names it is
// stored only as a hash; the raw value is returned to the caller exactly once
// at creation.
//
// MFAVerified is tri-state: nil means the authenticating factor required no
// second factor, false means a second factor is still pending, true means it
// was satisfied. Once true it never goes back.
type Session struct {
	ID     string
	UserID string
	Tenant string

	TokenHash   string
	MFAVerified *bool

	Browser string
	OS      string
	IPv4    string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session has passed its expiry horizon.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// MFAPending reports whether a second factor is still required.
func (s Session) MFAPending() bool {
	return s.MFAVerified != nil && !*s.MFAVerified
}

// Device is the client metadata recorded on a session at login.
type Device struct {
	Browser string
	OS      string
	IPv4    string
}
