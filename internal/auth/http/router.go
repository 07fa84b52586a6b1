package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/halcyonlabs/keywarden/internal/auth/service"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
	"github.com/halcyonlabs/keywarden/pkg/httpx"
	"github.com/halcyonlabs/keywarden/pkg/jwtx"
	"github.com/halcyonlabs/keywarden/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	AuthService     *service.AuthService
	PasswordService *service.PasswordService
	PincodeService  *service.PincodeService
	TOTPService     *service.TOTPService
	APIKeyService   *service.APIKeyService
	SessionService  *service.SessionService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerSessions()
	r.registerReset()
	r.registerCredentials()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLogin() {
	h := &LoginHandler{Auth: r.AuthService}

	// Credential-verifying endpoints get the strict limit, keyed by IP plus
	// the tenant header so one noisy tenant cannot starve another behind a
	// shared proxy.
	loginLimit := httpx.RateLimitMiddleware(httpx.StrictLimit, httpx.CompositeKeyExtractor(":",
		httpx.IPKeyExtractor,
		httpx.HeaderKeyExtractor("X-Tenant"),
	))

	r.Mux.Handle("POST /v1/login/password",
		httpx.Chain(http.HandlerFunc(h.HandlePassword), loginLimit))
	r.Mux.Handle("POST /v1/login/pincode",
		httpx.Chain(http.HandlerFunc(h.HandlePincode), loginLimit))
	r.Mux.Handle("POST /v1/login/api-key",
		httpx.Chain(http.HandlerFunc(h.HandleAPIKey), loginLimit))

	// MFA completion is a code-guessing surface, same strict limit.
	r.Mux.Handle("POST /v1/login/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
}

func (r *Router) registerSessions() {
	h := &SessionHandler{Auth: r.AuthService, Sessions: r.SessionService}

	// Identity-token endpoints are unauthenticated by design: the token in
	// the body is the credential.
	r.Mux.Handle("POST /v1/token/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		))
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		))
	r.Mux.Handle("POST /v1/logout/all",
		httpx.Chain(http.HandlerFunc(h.HandleLogoutAll),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		))

	// Session inspection needs a bearer token.
	r.Mux.Handle("GET /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		))
	r.Mux.Handle("DELETE /v1/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		))
}

func (r *Router) registerReset() {
	h := &ResetHandler{
		Store:     r.store,
		Passwords: r.PasswordService,
		Pincodes:  r.PincodeService,
	}

	// Public endpoints, strict by IP: trigger sends mail, consume verifies a
	// guessable-in-theory token.
	r.Mux.Handle("POST /v1/reset/{factor}/trigger",
		httpx.Chain(http.HandlerFunc(h.HandleTrigger),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
	r.Mux.Handle("POST /v1/reset/{factor}/consume",
		httpx.Chain(http.HandlerFunc(h.HandleConsume),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
}

func (r *Router) registerCredentials() {
	secrets := &SecretHandler{Passwords: r.PasswordService, Pincodes: r.PincodeService}
	totps := &TOTPHandler{TOTPs: r.TOTPService}
	apikeys := &APIKeyHandler{APIKeys: r.APIKeyService}

	// Credential management requires a fully authenticated token: a session
	// still waiting on its second factor must not mutate factors.
	secured := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireMFAVerified(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	// Literal segments take precedence over {factor}, so the TOTP and
	// API-key routes must be registered on their own paths.
	r.Mux.Handle("POST /v1/credentials/totp", secured(totps.HandleEnroll))
	r.Mux.Handle("GET /v1/credentials/totp", secured(totps.HandleList))
	r.Mux.Handle("DELETE /v1/credentials/totp/{id}", secured(totps.HandleDelete))

	r.Mux.Handle("POST /v1/credentials/api-keys", secured(apikeys.HandleCreate))
	r.Mux.Handle("GET /v1/credentials/api-keys", secured(apikeys.HandleList))
	r.Mux.Handle("DELETE /v1/credentials/api-keys/{id}", secured(apikeys.HandleDelete))

	r.Mux.Handle("POST /v1/credentials/{factor}", secured(secrets.HandleCreate))
	r.Mux.Handle("GET /v1/credentials/{factor}", secured(secrets.HandleGet))
	r.Mux.Handle("PUT /v1/credentials/{factor}", secured(secrets.HandleRotate))
	r.Mux.Handle("DELETE /v1/credentials/{factor}", secured(secrets.HandleDelete))
	r.Mux.Handle("PUT /v1/credentials/{factor}/mfa", secured(secrets.HandleSetMFA))
}

func (r *Router) registerSystem() {
	// GET /.well-known/jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		))

	// Health check endpoints - lenient rate limits (monitoring systems may
	// poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		))
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		))
}
