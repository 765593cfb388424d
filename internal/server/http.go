package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	healthhandler "blogger-platform/backend/internal/health/handler"
	identityhandler "blogger-platform/backend/internal/identity/handler"
	"blogger-platform/backend/internal/platform/rbac"
	policyhandler "blogger-platform/backend/internal/policy/handler"
	"blogger-platform/backend/internal/server/middleware"
	sessionhandler "blogger-platform/backend/internal/session/handler"
)

// AuthService is what the auth and device routes need; *service.AuthService implements it.
type AuthService interface {
	identityhandler.AuthService
	sessionhandler.DeviceService
}

// Deps holds the dependencies of the HTTP API.
type Deps struct {
	// Auth serves /auth and /security/devices.
	Auth AuthService
	// Authenticator resolves bearer tokens for every request.
	Authenticator middleware.Authenticator
	// Evaluator serves /authz/decisions.
	Evaluator rbac.Evaluator
	// Health serves /healthz. If nil, the route is not registered.
	Health *healthhandler.Checker
	// SecureCookie sets the Secure attribute on the refresh cookie.
	SecureCookie bool
	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool
}

// NewRouter builds the HTTP API. Middleware runs outermost first: panic recovery, metrics,
// client info, then authentication.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimiddleware.Recoverer,
		middleware.Metrics(),
		middleware.Client(deps.TrustProxyHeaders),
		middleware.Authenticate(deps.Authenticator),
	)

	if deps.Health != nil {
		r.Method(http.MethodGet, "/healthz", deps.Health)
	}
	identityhandler.NewHandler(deps.Auth, deps.SecureCookie).Routes(r)
	sessionhandler.NewHandler(deps.Auth).Routes(r)
	policyhandler.NewHandler(deps.Evaluator).Routes(r)
	return r
}
