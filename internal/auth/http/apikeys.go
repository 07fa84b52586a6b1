package http

import (
	"encoding/json"
	"net/http"

	"github.com/halcyonlabs/keywarden/internal/auth/service"
	"github.com/halcyonlabs/keywarden/pkg/httpx"
	"github.com/halcyonlabs/keywarden/pkg/slogx"
)

// APIKeyHandler manages the authenticated user's named API keys.
type APIKeyHandler struct {
	APIKeys *service.APIKeyService
}

// HandleCreate handles POST /v1/credentials/api-keys. The raw key appears in
// this response only; afterwards only its hash exists.
func (h *APIKeyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	raw, cred, err := h.APIKeys.Create(ctx, tenant, userID, req.Name)
	if err != nil {
		log.Warn("api key create failed", "tenant", tenant, "user_id", userID, "err", err)
		writeServiceError(w, log, err)
		return
	}

	log.Info("api key created", "tenant", tenant, "credential_id", cred.ID)
	httpx.WriteJSON(w, http.StatusCreated, apiKeyCreateResponse{
		Credential: newCredentialResponse(cred),
		APIKey:     raw,
	})
}

// HandleList handles GET /v1/credentials/api-keys.
func (h *APIKeyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
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

	creds, err := h.APIKeys.FindByUser(ctx, tenant, userID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newCredentialResponses(creds))
}

// HandleDelete handles DELETE /v1/credentials/api-keys/{id}.
func (h *APIKeyHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.APIKeys.Delete(ctx, tenant, userID, r.PathValue("id")); err != nil {
		log.Warn("api key delete failed", "tenant", tenant, "credential_id", r.PathValue("id"), "err", err)
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
