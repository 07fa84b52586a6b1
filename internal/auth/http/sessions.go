package http

import (
	"encoding/json"
	"net/http"

	"github.com/halcyonlabs/keywarden/internal/auth/service"
	"github.com/halcyonlabs/keywarden/pkg/httpx"
	"github.com/halcyonlabs/keywarden/pkg/slogx"
)

// SessionHandler covers token refresh, logout, and session inspection.
type SessionHandler struct {
	Auth     *service.AuthService
	Sessions *service.SessionService
}

// HandleRefresh handles POST /v1/token/refresh. Exchanges a raw identity
// token for a fresh access token with claims recomputed from the live user.
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req identityTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.Auth.Refresh(ctx, req.IdentityToken)
	if err != nil {
		log.Warn("token refresh failed", "err", err)
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newLoginResponse(result))
}

// HandleLogout handles POST /v1/logout.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req identityTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if err := h.Auth.Logout(ctx, req.IdentityToken); err != nil {
		log.Warn("logout failed", "err", err)
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleLogoutAll handles POST /v1/logout/all.
func (h *SessionHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req identityTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if err := h.Auth.LogoutEverywhere(ctx, req.IdentityToken); err != nil {
		log.Warn("logout everywhere failed", "err", err)
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /v1/sessions for the authenticated user.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
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

	sessions, err := h.Sessions.FindByUser(ctx, tenant, userID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, newSessionResponse(s))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDelete handles DELETE /v1/sessions/{id}: revokes one of the
// authenticated user's sessions by id.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Sessions.Delete(ctx, tenant, userID, r.PathValue("id")); err != nil {
		log.Warn("session delete failed", "session_id", r.PathValue("id"), "err", err)
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
