package http

import (
	"net/http"

	"github.com/halcyonlabs/keywarden/pkg/httpx"
	"github.com/halcyonlabs/keywarden/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}
