package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ledgerline/authd/internal/auth/service"
	"github.com/ledgerline/authd/internal/auth/store"
	"github.com/ledgerline/authd/pkg/httpx"
	"github.com/ledgerline/authd/pkg/jwtx"
	"github.com/ledgerline/authd/pkg/slogx"
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
	LoginService    *service.LoginService
	TokenService    *service.TokenService
	MFAService      *service.MFAService
	RecoveryService *service.RecoveryService
	DeviceService   *service.DeviceService
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
	r.registerAuth()
	r.registerTokens()
	r.registerMFA()
	r.registerDevices()
	r.registerRecovery()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{LoginService: r.LoginService}

	// POST /auth/register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/login - strict rate limit by IP (credential guessing surface)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/challenge - strict rate limit by IP (code guessing surface)
	r.Mux.Handle("POST /v1/auth/challenge",
		httpx.Chain(http.HandlerFunc(h.HandleChallenge),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/logout - moderate rate limit; carries only a refresh token,
	// so no bearer authentication is required
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/password - authenticated, re-verifies the old password
	r.Mux.Handle("POST /v1/auth/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireScopes("account:write"),
			httpx.RateLimitByAccount(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerTokens() {
	h := &TokenHandler{TokenService: r.TokenService}

	// POST /token/refresh - strict rate limit by IP (covers stolen-token replay)
	r.Mux.Handle("POST /v1/token/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	// POST /mfa/setup - moderate rate limit by account
	securedSetup := httpx.Chain(http.HandlerFunc(h.HandleSetup),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireScopes("account:write"),
		httpx.RateLimitByAccount(httpx.ModerateLimit),
	)

	// POST /mfa/setup/verify - strict rate limit by account (code brute force)
	securedVerify := httpx.Chain(http.HandlerFunc(h.HandleSetupVerify),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireScopes("account:write"),
		httpx.RateLimitByAccount(httpx.StrictLimit),
	)

	// GET /mfa/methods - lenient rate limit by account
	securedList := httpx.Chain(http.HandlerFunc(h.HandleListMethods),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireScopes("account:read"),
		httpx.RateLimitByAccount(httpx.LenientLimit),
	)

	// DELETE /mfa/methods/{id} - moderate rate limit by account
	securedRemove := httpx.Chain(http.HandlerFunc(h.HandleRemoveMethod),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireScopes("account:write"),
		httpx.RateLimitByAccount(httpx.ModerateLimit),
	)

	// POST /mfa/disable - strict rate limit by account (password re-verification)
	securedDisable := httpx.Chain(http.HandlerFunc(h.HandleDisable),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireScopes("account:write"),
		httpx.RateLimitByAccount(httpx.StrictLimit),
	)

	r.Mux.Handle("POST /v1/mfa/setup", securedSetup)
	r.Mux.Handle("POST /v1/mfa/setup/verify", securedVerify)
	r.Mux.Handle("GET /v1/mfa/methods", securedList)
	r.Mux.Handle("DELETE /v1/mfa/methods/{id}", securedRemove)
	r.Mux.Handle("POST /v1/mfa/disable", securedDisable)
}

func (r *Router) registerDevices() {
	h := &DevicesHandler{DeviceService: r.DeviceService}

	securedList := httpx.Chain(http.HandlerFunc(h.HandleList),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireScopes("account:read"),
		httpx.RateLimitByAccount(httpx.LenientLimit),
	)

	securedRevoke := httpx.Chain(http.HandlerFunc(h.HandleRevoke),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireScopes("account:write"),
		httpx.RateLimitByAccount(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/devices", securedList)
	r.Mux.Handle("DELETE /v1/devices/{id}", securedRevoke)
}

func (r *Router) registerRecovery() {
	h := &RecoveryHandler{RecoveryService: r.RecoveryService}

	// POST /recovery-codes - strict rate limit by account (password re-verification)
	secured := httpx.Chain(http.HandlerFunc(h.HandleGenerate),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireScopes("account:write"),
		httpx.RateLimitByAccount(httpx.StrictLimit),
	)

	r.Mux.Handle("POST /v1/recovery-codes", secured)
}

func (r *Router) registerSystem() {
	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
