package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/pkg/httpx"
)

// Request bodies.

type passwordLoginRequest struct {
	Mail       string `json:"mail"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type pincodeLoginRequest struct {
	Mail       string `json:"mail"`
	Pincode    string `json:"pincode"`
	RememberMe bool   `json:"remember_me"`
}

type apiKeyLoginRequest struct {
	APIKey string `json:"api_key"`
}

type mfaCompleteRequest struct {
	IdentityToken string `json:"identity_token"`
	Code          string `json:"code"`
}

type identityTokenRequest struct {
	IdentityToken string `json:"identity_token"`
}

type resetTriggerRequest struct {
	Mail string `json:"mail"`
}

type resetConsumeRequest struct {
	Mail       string `json:"mail"`
	ResetToken string `json:"reset_token"`
	NewSecret  string `json:"new_secret"`
}

type secretRequest struct {
	Secret string `json:"secret"`
}

type mfaFlagRequest struct {
	Enabled bool `json:"enabled"`
}

type nameRequest struct {
	Name string `json:"name"`
}

// Response bodies.

type loginResponse struct {
	SessionID     string `json:"session_id"`
	IdentityToken string `json:"identity_token,omitempty"`
	AccessToken   string `json:"access_token"`
	TokenType     string `json:"token_type"`
	ExpiresIn     int64  `json:"expires_in"`
	MFAPending    bool   `json:"mfa_pending"`
}

func newLoginResponse(result domain.LoginResult) loginResponse {
	return loginResponse{
		SessionID:     result.Session.ID,
		IdentityToken: result.IdentityToken,
		AccessToken:   result.AccessToken.Token,
		TokenType:     result.AccessToken.Type,
		ExpiresIn:     result.AccessToken.ExpiresIn,
		MFAPending:    result.MFAPending,
	}
}

type credentialResponse struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Name           string     `json:"name,omitempty"`
	MFAEnabled     bool       `json:"mfa_enabled,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newCredentialResponse(c domain.Credential) credentialResponse {
	return credentialResponse{
		ID:             c.ID,
		Type:           string(c.Type),
		Name:           c.Name,
		MFAEnabled:     c.MFAEnabled,
		FailedAttempts: c.FailedAttempts,
		LastUsedAt:     c.LastUsedAt,
		CreatedAt:      c.CreatedAt,
	}
}

func newCredentialResponses(creds []domain.Credential) []credentialResponse {
	out := make([]credentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, newCredentialResponse(c))
	}
	return out
}

type totpEnrollResponse struct {
	Credential credentialResponse `json:"credential"`
	Secret     string             `json:"secret"`
	URL        string             `json:"url"`
}

type apiKeyCreateResponse struct {
	Credential credentialResponse `json:"credential"`
	APIKey     string             `json:"api_key"`
}

type sessionResponse struct {
	ID          string    `json:"id"`
	Browser     string    `json:"browser,omitempty"`
	OS          string    `json:"os,omitempty"`
	IPv4        string    `json:"ipv4,omitempty"`
	MFAVerified *bool     `json:"mfa_verified,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		Browser:     s.Browser,
		OS:          s.OS,
		IPv4:        s.IPv4,
		MFAVerified: s.MFAVerified,
		CreatedAt:   s.CreatedAt,
		ExpiresAt:   s.ExpiresAt,
	}
}

type healthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

type healthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *healthChecks `json:"checks,omitempty"`
}

// tenantFrom resolves the tenant a request operates on. Every data-plane
// route is tenant-scoped; an empty return means the request is unroutable.
func tenantFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Tenant"))
}

// deviceFrom captures the device metadata recorded on sessions.
func deviceFrom(r *http.Request) domain.Device {
	return domain.Device{
		Browser: r.Header.Get("User-Agent"),
		OS:      strings.Trim(r.Header.Get("Sec-CH-UA-Platform"), `"`),
		IPv4:    httpx.IPKeyExtractor(r),
	}
}
