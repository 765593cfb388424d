package middleware

import (
	"context"
	"net/http"
	"strings"

	"blogger-platform/backend/internal/identity/domain"
	identityservice "blogger-platform/backend/internal/identity/service"
	"blogger-platform/backend/internal/platform/httpx"
)

const bearerPrefix = "bearer "

// Authenticator resolves an access token to a principal. *service.Authenticator implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.Principal, error)
}

// Authenticate returns middleware that resolves the Bearer access token and stores the principal in
// the request context. Missing or unusable tokens yield the anonymous principal; the request proceeds.
// Only an infrastructure failure aborts the request, with 500.
func Authenticate(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r.Context(), extractBearer(r))
			if err != nil {
				httpx.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireUser rejects anonymous callers with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFrom(r.Context()).IsAnonymous() {
			httpx.WriteError(w, r, identityservice.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
