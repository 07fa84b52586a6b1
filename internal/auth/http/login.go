package http

import (
	"encoding/json"
	"net/http"

	"github.com/halcyonlabs/keywarden/internal/auth/service"
	"github.com/halcyonlabs/keywarden/pkg/httpx"
	"github.com/halcyonlabs/keywarden/pkg/slogx"
)

// LoginHandler exposes the per-factor login endpoints plus MFA completion.
type LoginHandler struct {
	Auth *service.AuthService
}

// HandlePassword handles POST /v1/login/password.
func (h *LoginHandler) HandlePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	tenant := tenantFrom(r)
	if tenant == "" {
		writeMissingTenant(w)
		return
	}

	var req passwordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.Auth.LoginWithPassword(ctx, tenant, req.Mail, req.Password, req.RememberMe, deviceFrom(r))
	if err != nil {
		log.Warn("password login failed", "tenant", tenant, "err", err)
		writeServiceError(w, log, err)
		return
	}

	log.Info("password login", "tenant", tenant, "session_id", result.Session.ID, "mfa_pending", result.MFAPending)
	httpx.WriteJSON(w, http.StatusOK, newLoginResponse(result))
}

// HandlePincode handles POST /v1/login/pincode.
func (h *LoginHandler) HandlePincode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	tenant := tenantFrom(r)
	if tenant == "" {
		writeMissingTenant(w)
		return
	}

	var req pincodeLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.Auth.LoginWithPincode(ctx, tenant, req.Mail, req.Pincode, req.RememberMe, deviceFrom(r))
	if err != nil {
		log.Warn("pincode login failed", "tenant", tenant, "err", err)
		writeServiceError(w, log, err)
		return
	}

	log.Info("pincode login", "tenant", tenant, "session_id", result.Session.ID, "mfa_pending", result.MFAPending)
	httpx.WriteJSON(w, http.StatusOK, newLoginResponse(result))
}

// HandleAPIKey handles POST /v1/login/api-key.
func (h *LoginHandler) HandleAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	tenant := tenantFrom(r)
	if tenant == "" {
		writeMissingTenant(w)
		return
	}

	var req apiKeyLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.Auth.LoginWithAPIKey(ctx, tenant, req.APIKey, deviceFrom(r))
	if err != nil {
		log.Warn("api key login failed", "tenant", tenant, "err", err)
		writeServiceError(w, log, err)
		return
	}

	log.Info("api key login", "tenant", tenant, "session_id", result.Session.ID)
	httpx.WriteJSON(w, http.StatusOK, newLoginResponse(result))
}

// HandleMFA handles POST /v1/login/mfa. The identity token names the pending
// session; a valid authenticator code upgrades it.
func (h *LoginHandler) HandleMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req mfaCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.Auth.CompleteMFA(ctx, req.IdentityToken, req.Code)
	if err != nil {
		log.Warn("mfa completion failed", "err", err)
		writeServiceError(w, log, err)
		return
	}

	log.Info("mfa completed", "session_id", result.Session.ID)
	httpx.WriteJSON(w, http.StatusOK, newLoginResponse(result))
}
