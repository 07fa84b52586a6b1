package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/halcyonlabs/keywarden/internal/auth/service"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/halcyonlabs/keywarden/pkg/httpx"
)

// writeServiceError maps service and store sentinels onto HTTP responses.
// Anything unmapped is a 500 and gets logged; mapped failures are expected
// outcomes and stay at warn level in the handlers.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredential):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credential", "The presented credential is invalid")
	case errors.Is(err, service.ErrInvalidResetToken):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_reset_token", "The reset token is invalid or already used")
	case errors.Is(err, service.ErrResetTokenExpired):
		httpx.WriteError(w, http.StatusBadRequest, "reset_token_expired", "The reset token has expired")
	case errors.Is(err, service.ErrSecretRecentlyUsed):
		httpx.WriteError(w, http.StatusConflict, "secret_recently_used", "The new secret was used recently")
	case errors.Is(err, service.ErrPincodeNotNumeric):
		httpx.WriteError(w, http.StatusBadRequest, "pincode_not_numeric", "Pincodes may only contain digits")
	case errors.Is(err, store.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict, "already_exists", "The resource already exists")
	case errors.Is(err, store.ErrStillReferenced):
		httpx.WriteError(w, http.StatusConflict, "still_referenced", "The resource is still referenced and cannot be deleted")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "The resource does not exist")
	default:
		log.Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
	}
}

func writeInvalidBody(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
}

func writeMissingTenant(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusBadRequest, "missing_tenant", "The X-Tenant header is required")
}
