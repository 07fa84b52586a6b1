package http

import (
	"encoding/json"
	"net/http"

	"github.com/halcyonlabs/keywarden/internal/auth/service"
	"github.com/halcyonlabs/keywarden/pkg/httpx"
	"github.com/halcyonlabs/keywarden/pkg/slogx"
)

// TOTPHandler manages the authenticated user's authenticator credentials.
type TOTPHandler struct {
	TOTPs *service.TOTPService
}

// HandleEnroll handles POST /v1/credentials/totp. The shared secret and
// provisioning URL appear in this response only.
func (h *TOTPHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	tenant := tenantFrom(r)
	if tenant == "" {
		writeMissingTenant(w)
		return
	}
	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authentication")
		return
	}

	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	enrollment, err := h.TOTPs.Enroll(ctx, tenant, userID, req.Name)
	if err != nil {
		log.Warn("totp enrollment failed", "tenant", tenant, "user_id", userID, "err", err)
		writeServiceError(w, log, err)
		return
	}

	log.Info("totp enrolled", "tenant", tenant, "credential_id", enrollment.Credential.ID)
	httpx.WriteJSON(w, http.StatusCreated, totpEnrollResponse{
		Credential: newCredentialResponse(enrollment.Credential),
		Secret:     enrollment.Secret,
		URL:        enrollment.URL,
	})
}

// HandleList handles GET /v1/credentials/totp.
func (h *TOTPHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	tenant := tenantFrom(r)
	if tenant == "" {
		writeMissingTenant(w)
		return
	}
	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authentication")
		return
	}

	creds, err := h.TOTPs.FindByUser(ctx, tenant, userID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newCredentialResponses(creds))
}

// HandleDelete handles DELETE /v1/credentials/totp/{id}. Deleting the last
// authenticator while an MFA flag still depends on it answers 409.
func (h *TOTPHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	tenant := tenantFrom(r)
	if tenant == "" {
		writeMissingTenant(w)
		return
	}
	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authentication")
		return
	}

	if err := h.TOTPs.Delete(ctx, tenant, userID, r.PathValue("id")); err != nil {
		log.Warn("totp delete failed", "tenant", tenant, "credential_id", r.PathValue("id"), "err", err)
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
