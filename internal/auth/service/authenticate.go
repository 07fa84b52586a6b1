package service

import (
	"context"
	"errors"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
)

// AuthService orchestrates the login flows: factor verification, session
// creation, MFA completion, and access-token issuance. It owns no state of
// its own; everything goes through the credential services, the session
// service and the forge.
type AuthService struct {
	Store     store.Store
	Passwords *PasswordService
	Pincodes  *PincodeService
	TOTPs     *TOTPService
	APIKeys   *APIKeyService
	Sessions  *SessionService
	Forge     *TokenForge
}

// LoginWithPassword authenticates with the password factor. On success a
// session is created (30 days with rememberMe, 2 hours without) and a first
// access token is forged. If the credential has MFA enabled, the session
// starts MFA-pending and the result's MFAPending flag is set.
func (s *AuthService) LoginWithPassword(ctx context.Context, tenant, mail, password string, rememberMe bool, device domain.Device) (domain.LoginResult, error) {
	return s.loginWithSecret(ctx, s.Passwords.Verify, tenant, mail, password, rememberMe, device)
}

// LoginWithPincode authenticates with the pincode factor. Semantics match
// LoginWithPassword.
func (s *AuthService) LoginWithPincode(ctx context.Context, tenant, mail, pincode string, rememberMe bool, device domain.Device) (domain.LoginResult, error) {
	return s.loginWithSecret(ctx, s.Pincodes.Verify, tenant, mail, pincode, rememberMe, device)
}

// LoginWithAPIKey authenticates with a raw API key. The user id is embedded
// in the key itself, so no mail lookup happens. API keys never require a
// second factor; the session's tri-state flag stays absent.
func (s *AuthService) LoginWithAPIKey(ctx context.Context, tenant, rawKey string, device domain.Device) (domain.LoginResult, error) {
	_, user, err := s.APIKeys.Verify(ctx, tenant, rawKey)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if user.Locked {
		return domain.LoginResult{}, ErrInvalidCredential
	}
	return s.openSession(ctx, user, device, domain.SessionTTL, false)
}

// CompleteMFA redeems a pending session: the presented TOTP code is checked
// against the session owner's enrolled authenticators, the session flips to
// verified, and a fresh token carrying mfa_verified=true is forged. Calling
// this on a session that never required a second factor is harmless; the
// flag is left absent.
func (s *AuthService) CompleteMFA(ctx context.Context, rawIdentityToken, code string) (domain.LoginResult, error) {
	session, err := s.Sessions.FindByRawToken(ctx, rawIdentityToken)
	if err != nil {
		return domain.LoginResult{}, err
	}
	user, err := s.Store.Users().GetUserByID(ctx, session.Tenant, session.UserID)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if user.Locked {
		return domain.LoginResult{}, ErrInvalidCredential
	}

	if _, err := s.TOTPs.Verify(ctx, session.Tenant, session.UserID, code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrInvalidCredential
		}
		return domain.LoginResult{}, err
	}

	if session.MFAPending() {
		if err := s.Sessions.MarkMFAVerified(ctx, session); err != nil {
			return domain.LoginResult{}, err
		}
		verified := true
		session.MFAVerified = &verified
	}

	token, err := s.Forge.Forge(session, user)
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{Session: session, AccessToken: token}, nil
}

// Refresh exchanges a valid identity token for a fresh access token. Claims
// are recomputed from the live user record, so role or profile changes since
// login show up in the next token rather than at next login.
func (s *AuthService) Refresh(ctx context.Context, rawIdentityToken string) (domain.LoginResult, error) {
	session, err := s.Sessions.FindByRawToken(ctx, rawIdentityToken)
	if err != nil {
		return domain.LoginResult{}, err
	}
	user, err := s.Store.Users().GetUserByID(ctx, session.Tenant, session.UserID)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if user.Locked {
		return domain.LoginResult{}, ErrInvalidCredential
	}

	token, err := s.Forge.Forge(session, user)
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{
		Session:     session,
		AccessToken: token,
		MFAPending:  session.MFAPending(),
	}, nil
}

// Logout revokes the session named by the identity token.
func (s *AuthService) Logout(ctx context.Context, rawIdentityToken string) error {
	session, err := s.Sessions.FindByRawToken(ctx, rawIdentityToken)
	if err != nil {
		return err
	}
	return s.Sessions.Delete(ctx, session.Tenant, session.UserID, session.ID)
}

// LogoutEverywhere revokes every session of the token's owner.
func (s *AuthService) LogoutEverywhere(ctx context.Context, rawIdentityToken string) error {
	session, err := s.Sessions.FindByRawToken(ctx, rawIdentityToken)
	if err != nil {
		return err
	}
	return s.Sessions.DeleteAll(ctx, session.Tenant, session.UserID)
}

type verifyFunc func(ctx context.Context, tenant, userID, secret string) (domain.Credential, error)

// loginWithSecret is the shared password/pincode path. Unknown mail and
// locked accounts both collapse into ErrInvalidCredential so the response
// does not leak which addresses exist.
func (s *AuthService) loginWithSecret(ctx context.Context, verify verifyFunc, tenant, mail, secret string, rememberMe bool, device domain.Device) (domain.LoginResult, error) {
	user, err := s.Store.Users().GetUserByMail(ctx, tenant, mail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrInvalidCredential
		}
		return domain.LoginResult{}, err
	}
	if user.Locked {
		return domain.LoginResult{}, ErrInvalidCredential
	}

	cred, err := verify(ctx, tenant, user.ID, secret)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrInvalidCredential
		}
		return domain.LoginResult{}, err
	}

	duration := domain.SessionTTL
	if rememberMe {
		duration = domain.SessionTTLRemembered
	}
	return s.openSession(ctx, user, device, duration, cred.MFAEnabled)
}

func (s *AuthService) openSession(ctx context.Context, user domain.User, device domain.Device, duration time.Duration, mfaRequired bool) (domain.LoginResult, error) {
	session, raw, err := s.Sessions.Create(ctx, user, device, duration, mfaRequired)
	if err != nil {
		return domain.LoginResult{}, err
	}

	token, err := s.Forge.Forge(session, user)
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{
		Session:       session,
		IdentityToken: raw,
		AccessToken:   token,
		MFAPending:    session.MFAPending(),
	}, nil
}
