package http

import (
	"encoding/json"
	"net/http"

	"github.com/halcyonlabs/keywarden/internal/auth/service"
	"github.com/halcyonlabs/keywarden/pkg/httpx"
	"github.com/halcyonlabs/keywarden/pkg/slogx"
)

// SecretHandler manages the authenticated user's password and pincode
// credentials. The factor is selected by the {factor} path segment.
type SecretHandler struct {
	Passwords *service.PasswordService
	Pincodes  *service.PincodeService
}

func (h *SecretHandler) factor(name string) secretFactor {
	switch name {
	case "password":
		return h.Passwords
	case "pincode":
		return h.Pincodes
	default:
		return nil
	}
}

// resolve extracts the tenant, subject, and selected factor shared by every
// management endpoint. A nil return means the response has been written.
func (h *SecretHandler) resolve(w http.ResponseWriter, r *http.Request) (string, string, secretFactor) {
	tenant := tenantFrom(r)
	if tenant == "" {
		writeMissingTenant(w)
		return "", "", nil
	}
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authentication")
		return "", "", nil
	}
	factor := h.factor(r.PathValue("factor"))
	if factor == nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Unknown factor")
		return "", "", nil
	}
	return tenant, userID, factor
}

// HandleCreate handles POST /v1/credentials/{factor}.
func (h *SecretHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	tenant, userID, factor := h.resolve(w, r)
	if factor == nil {
		return
	}

	var req secretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	cred, err := factor.Create(r.Context(), tenant, userID, req.Secret)
	if err != nil {
		log.Warn("credential create failed", "tenant", tenant, "user_id", userID, "err", err)
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newCredentialResponse(cred))
}

// HandleGet handles GET /v1/credentials/{factor}.
func (h *SecretHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	tenant, userID, factor := h.resolve(w, r)
	if factor == nil {
		return
	}

	cred, err := factor.FindByUser(r.Context(), tenant, userID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newCredentialResponse(cred))
}

// HandleRotate handles PUT /v1/credentials/{factor}.
func (h *SecretHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	tenant, userID, factor := h.resolve(w, r)
	if factor == nil {
		return
	}

	var req secretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	cred, err := factor.RotateSecret(r.Context(), tenant, userID, req.Secret)
	if err != nil {
		log.Warn("credential rotation failed", "tenant", tenant, "user_id", userID, "err", err)
		writeServiceError(w, log, err)
		return
	}

	log.Info("credential rotated", "tenant", tenant, "credential_id", cred.ID)
	httpx.WriteJSON(w, http.StatusOK, newCredentialResponse(cred))
}

// HandleSetMFA handles PUT /v1/credentials/{factor}/mfa.
func (h *SecretHandler) HandleSetMFA(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	tenant, userID, factor := h.resolve(w, r)
	if factor == nil {
		return
	}

	var req mfaFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if err := factor.SetMFA(r.Context(), tenant, userID, req.Enabled); err != nil {
		log.Warn("mfa flag update failed", "tenant", tenant, "user_id", userID, "err", err)
		writeServiceError(w, log, err)
		return
	}

	log.Info("mfa flag updated", "tenant", tenant, "user_id", userID, "enabled", req.Enabled)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/credentials/{factor}.
func (h *SecretHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	tenant, userID, factor := h.resolve(w, r)
	if factor == nil {
		return
	}

	if err := factor.Delete(r.Context(), tenant, userID); err != nil {
		log.Warn("credential delete failed", "tenant", tenant, "user_id", userID, "err", err)
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
