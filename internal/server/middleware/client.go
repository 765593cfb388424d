package middleware

import (
	"net"
	"net/http"
	"strings"

	"blogger-platform/backend/internal/identity/domain"
)

// Client stores the caller IP and User-Agent in the request context for session and audit records.
// X-Forwarded-For and X-Real-IP are only read when trustProxy is set; otherwise the IP is
// the connection's remote address.
func Client(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := domain.ClientInfo{IP: clientIP(r, trustProxy), Title: strings.TrimSpace(r.UserAgent())}
			next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), c)))
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
			if i := strings.Index(v, ","); i > 0 {
				v = strings.TrimSpace(v[:i])
			}
			return v
		}
		if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
			return v
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
