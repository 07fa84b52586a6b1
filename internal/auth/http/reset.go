package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/service"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/halcyonlabs/keywarden/pkg/httpx"
	"github.com/halcyonlabs/keywarden/pkg/slogx"
)

// secretFactor is the slice of the password/pincode services the reset and
// management endpoints need. Both services satisfy it through their shared
// lifecycle.
type secretFactor interface {
	Create(ctx context.Context, tenant, userID, secret string) (domain.Credential, error)
	RotateSecret(ctx context.Context, tenant, userID, newSecret string) (domain.Credential, error)
	TriggerReset(ctx context.Context, tenant, userID string) error
	ConsumeReset(ctx context.Context, tenant, userID, rawToken, newSecret string) (domain.Credential, error)
	SetMFA(ctx context.Context, tenant, userID string, enabled bool) error
	FindByUser(ctx context.Context, tenant, userID string) (domain.Credential, error)
	Delete(ctx context.Context, tenant, userID string) error
}

// ResetHandler drives the out-of-band secret reset flow. Both endpoints are
// public and keyed by mail, so responses must not reveal whether an address
// is registered.
type ResetHandler struct {
	Store     store.Store
	Passwords *service.PasswordService
	Pincodes  *service.PincodeService
}

func (h *ResetHandler) factor(name string) secretFactor {
	switch name {
	case "password":
		return h.Passwords
	case "pincode":
		return h.Pincodes
	default:
		return nil
	}
}

// HandleTrigger handles POST /v1/reset/{factor}/trigger. Always answers 202:
// whether a token was actually issued is invisible to the caller.
func (h *ResetHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	tenant := tenantFrom(r)
	if tenant == "" {
		writeMissingTenant(w)
		return
	}
	factor := h.factor(r.PathValue("factor"))
	if factor == nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Unknown factor")
		return
	}

	var req resetTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if user, err := h.Store.Users().GetUserByMail(ctx, tenant, req.Mail); err == nil {
		if err := factor.TriggerReset(ctx, tenant, user.ID); err != nil {
			log.Warn("reset trigger failed", "tenant", tenant, "err", err)
		}
	} else {
		log.Debug("reset trigger for unknown mail", "tenant", tenant)
	}

	w.WriteHeader(http.StatusAccepted)
}

// HandleConsume handles POST /v1/reset/{factor}/consume.
func (h *ResetHandler) HandleConsume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	tenant := tenantFrom(r)
	if tenant == "" {
		writeMissingTenant(w)
		return
	}
	factor := h.factor(r.PathValue("factor"))
	if factor == nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Unknown factor")
		return
	}

	var req resetConsumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	user, err := h.Store.Users().GetUserByMail(ctx, tenant, req.Mail)
	if err != nil {
		// Indistinguishable from a bad token on purpose.
		writeServiceError(w, log, service.ErrInvalidResetToken)
		return
	}

	if _, err := factor.ConsumeReset(ctx, tenant, user.ID, req.ResetToken, req.NewSecret); err != nil {
		log.Warn("reset consume failed", "tenant", tenant, "err", err)
		if errors.Is(err, store.ErrNotFound) {
			err = service.ErrInvalidResetToken
		}
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
