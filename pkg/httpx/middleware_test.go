package httpx_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/halcyonlabs/keywarden/pkg/httpx"
	"github.com/halcyonlabs/keywarden/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T) jwtx.Signer {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	raw := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	signer, err := jwtx.NewSigner("EdDSA", "test-kid", raw)
	require.NoError(t, err)
	return signer
}

func testVerifier(t *testing.T, signer jwtx.Signer) jwtx.Verifier {
	t.Helper()
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	return jwtx.NewVerifier(keys, "EdDSA", "keywarden", nil)
}

func signToken(t *testing.T, signer jwtx.Signer, mutate func(*jwtx.Claims)) string {
	t.Helper()
	claims := jwtx.NewAccessClaims("user-1", "sess-1", "keywarden", nil, time.Minute, time.Now())
	if mutate != nil {
		mutate(&claims)
	}
	token, err := signer.Sign(claims)
	require.NoError(t, err)
	return token
}

func TestAuthnMiddleware(t *testing.T) {
	signer := testSigner(t)
	v := testVerifier(t, signer)

	var gotUserID string
	var gotRoles []string
	handler := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID, _ = httpx.UserIDFromContext(r.Context())
			claims, _ := httpx.ClaimsFromContext(r.Context())
			gotRoles = claims.Roles
			w.WriteHeader(http.StatusOK)
		}),
		httpx.AuthnMiddleware(v),
	)

	t.Run("rejects missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts valid token and injects claims", func(t *testing.T) {
		token := signToken(t, signer, func(c *jwtx.Claims) {
			c.Roles = []string{"ADMINISTRATOR"}
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user-1", gotUserID)
		require.Equal(t, []string{"ADMINISTRATOR"}, gotRoles)
	})
}

func TestRequireAnyRole(t *testing.T) {
	signer := testSigner(t)
	v := testVerifier(t, signer)

	handler := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		httpx.AuthnMiddleware(v),
		httpx.RequireAnyRole("ADMINISTRATOR", "AUDITOR"),
	)

	t.Run("allows matching role", func(t *testing.T) {
		token := signToken(t, signer, func(c *jwtx.Claims) {
			c.Roles = []string{"AUDITOR"}
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forbids missing role", func(t *testing.T) {
		token := signToken(t, signer, func(c *jwtx.Claims) {
			c.Roles = []string{"USER"}
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRequireMFAVerified(t *testing.T) {
	signer := testSigner(t)
	v := testVerifier(t, signer)

	handler := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		httpx.AuthnMiddleware(v),
		httpx.RequireMFAVerified(),
	)

	serve := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("passes token without second factor", func(t *testing.T) {
		rec := serve(signToken(t, signer, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("passes verified second factor", func(t *testing.T) {
		rec := serve(signToken(t, signer, func(c *jwtx.Claims) {
			verified := true
			c.MFAVerified = &verified
		}))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects pending second factor", func(t *testing.T) {
		rec := serve(signToken(t, signer, func(c *jwtx.Claims) {
			pending := false
			c.MFAVerified = &pending
		}))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
