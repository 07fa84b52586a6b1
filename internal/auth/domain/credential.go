package domain

import "time"

// CredentialType discriminates the tagged-union payload of a Credential.
type CredentialType string

const (
	CredentialPassword CredentialType = "PASSWORD"
	CredentialPincode  CredentialType = "PINCODE"
	CredentialTOTP     CredentialType = "TOTP"
	CredentialAPIKey   CredentialType = "API_KEY"
)

// SecretHistorySize is how many prior secret hashes are kept after rotation.
const SecretHistorySize = 5

// ResetTokenTTL is how long a password/pincode reset token stays valid.
const ResetTokenTTL = 2 * time.Hour

// ResetTokenLength is the length of the raw alphanumeric reset token.
const ResetTokenLength = 128

// Credential is one enrolled authentication factor. The shared fields are
// always populated; the payload fields depend on Type:
//
//   - PASSWORD / PINCODE: SecretHash, SecretHistory, reset fields, MFAEnabled.
//     At most one of each per user.
//   - TOTP: TOTPSecret (opaque base32) and Name. Unbounded per user.
//   - API_KEY: SecretHash (hash of the full 128-char key) and Name.
//     Unbounded per user, names unique case-insensitively.
type Credential struct {
	ID     string
	UserID string
	Tenant string
	Type   CredentialType

	FailedAttempts int
	LastUsedAt     *time.Time

	SecretHash    string
	SecretHistory []string

	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time

	MFAEnabled bool

	TOTPSecret string
	Name       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PushSecretHistory records the current hash as a prior secret before a new
// one is installed, evicting the oldest entry beyond SecretHistorySize.
func (c *Credential) PushSecretHistory() {
	if c.SecretHash == "" {
		return
	}
	c.SecretHistory = append(c.SecretHistory, c.SecretHash)
	if n := len(c.SecretHistory); n > SecretHistorySize {
		c.SecretHistory = c.SecretHistory[n-SecretHistorySize:]
	}
}

// ResetTokenExpired reports whether the outstanding reset token has lapsed.
// A token presented at exactly its expiry instant is still valid.
func (c Credential) ResetTokenExpired(now time.Time) bool {
	return c.ResetTokenExpiresAt != nil && now.After(*c.ResetTokenExpiresAt)
}

// HasSecret reports whether this credential type carries a rotatable secret.
func (t CredentialType) HasSecret() bool {
	return t == CredentialPassword || t == CredentialPincode
}
