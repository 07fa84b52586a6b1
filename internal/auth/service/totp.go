package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/events"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/halcyonlabs/keywarden/pkg/cryptox"
	"github.com/halcyonlabs/keywarden/pkg/idx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpPeriod = 30 * time.Second

// TOTPService manages time-based one-time-code credentials. A user may
// register many, each with a human-readable name.
type TOTPService struct {
	Store  store.Store
	Events events.Publisher
	Issuer string // issuer name shown in authenticator apps
}

// TOTPEnrollment is handed back once at enrollment; the secret and
// provisioning URL are never retrievable again through this service.
type TOTPEnrollment struct {
	Credential domain.Credential
	Secret     string
	URL        string
}

// Enroll registers a new TOTP credential and returns the shared secret plus
// its otpauth provisioning URL.
func (s *TOTPService) Enroll(ctx context.Context, tenant, userID, name string) (TOTPEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, tenant, userID)
	if err != nil {
		return TOTPEnrollment{}, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Mail,
		Period:      uint(totpPeriod.Seconds()),
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("generate TOTP key: %w", err)
	}

	cred := domain.Credential{
		ID:         idx.New().String(),
		UserID:     userID,
		Tenant:     tenant,
		Type:       domain.CredentialTOTP,
		TOTPSecret: key.Secret(),
		Name:       name,
	}
	if err := s.Store.Credentials().CreateCredential(ctx, cred); err != nil {
		return TOTPEnrollment{}, err
	}

	s.publish(ctx, tenant, cred.ID, events.ActionCreated)
	return TOTPEnrollment{Credential: cred, Secret: key.Secret(), URL: key.URL()}, nil
}

// FindByUser lists the user's TOTP credentials, oldest first.
func (s *TOTPService) FindByUser(ctx context.Context, tenant, userID string) ([]domain.Credential, error) {
	return s.Store.Credentials().ListCredentialsByType(ctx, tenant, userID, domain.CredentialTOTP)
}

// Verify checks a presented code against every registered TOTP credential,
// tolerating one time-step of clock drift either way: for each credential the
// three currently-plausible codes are derived, hashed, and the presented
// code is compared against the hashes. A match stamps last-use on the
// matching credential; a miss increments every checked counter.
func (s *TOTPService) Verify(ctx context.Context, tenant, userID, code string) (domain.Credential, error) {
	creds, err := s.FindByUser(ctx, tenant, userID)
	if err != nil {
		return domain.Credential{}, err
	}
	if len(creds) == 0 {
		return domain.Credential{}, store.ErrNotFound
	}

	now := time.Now()
	for _, cred := range creds {
		hashes, err := candidateCodeHashes(cred.TOTPSecret, now)
		if err != nil {
			return domain.Credential{}, err
		}
		if err := cryptox.VerifyAnySecret(code, hashes); err == nil {
			if err := s.Store.Credentials().RecordSuccess(ctx, cred.ID, now); err != nil {
				return domain.Credential{}, err
			}
			return cred, nil
		} else if !errors.Is(err, cryptox.ErrMismatch) {
			return domain.Credential{}, err
		}
	}

	for _, cred := range creds {
		_ = s.Store.Credentials().IncrementFailedAttempts(ctx, cred.ID)
	}
	return domain.Credential{}, ErrInvalidCredential
}

// Delete removes one TOTP credential. Removing the user's last one is
// blocked with store.ErrStillReferenced while any password or pincode
// credential still has MFA enabled, since that would silently disable a
// security control.
func (s *TOTPService) Delete(ctx context.Context, tenant, userID, id string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		cred, err := tx.Credentials().GetCredentialByID(ctx, tenant, userID, id)
		if err != nil {
			return err
		}
		if cred.Type != domain.CredentialTOTP {
			return store.ErrNotFound
		}

		count, err := tx.Credentials().CountCredentialsByType(ctx, tenant, userID, domain.CredentialTOTP)
		if err != nil {
			return err
		}
		if count == 1 {
			enabled, err := mfaEnabledAnywhere(ctx, tx, tenant, userID)
			if err != nil {
				return err
			}
			if enabled {
				return fmt.Errorf("last TOTP credential backs an enabled MFA flag: %w", store.ErrStillReferenced)
			}
		}

		return tx.Credentials().DeleteCredential(ctx, tenant, userID, id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, tenant, id, events.ActionDeleted)
	return nil
}

func (s *TOTPService) publish(ctx context.Context, tenant, credentialID string, action events.Action) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, events.New(tenant, "credential", credentialID, action))
}

// candidateCodeHashes derives the codes valid at t-1, t, and t+1 time-steps
// and hashes each for comparison.
func candidateCodeHashes(secret string, now time.Time) ([]string, error) {
	opts := totp.ValidateOpts{
		Period:    uint(totpPeriod.Seconds()),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}

	offsets := []time.Duration{-totpPeriod, 0, totpPeriod}
	hashes := make([]string, 0, len(offsets))
	for _, off := range offsets {
		code, err := totp.GenerateCodeCustom(secret, now.Add(off), opts)
		if err != nil {
			return nil, fmt.Errorf("derive TOTP candidate: %w", err)
		}
		hash, err := cryptox.HashSecret(code)
		if err != nil {
			return nil, fmt.Errorf("hash TOTP candidate: %w", err)
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// mfaEnabledAnywhere reports whether any password or pincode credential of
// the user carries an enabled MFA flag.
func mfaEnabledAnywhere(ctx context.Context, tx store.Tx, tenant, userID string) (bool, error) {
	for _, typ := range []domain.CredentialType{domain.CredentialPassword, domain.CredentialPincode} {
		cred, err := tx.Credentials().GetCredentialByType(ctx, tenant, userID, typ)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if cred.MFAEnabled {
			return true, nil
		}
	}
	return false, nil
}
