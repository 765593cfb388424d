package middleware

import (
	"context"

	"blogger-platform/backend/internal/identity/domain"
)

type contextKey struct{ name string }

var (
	principalKey = contextKey{"principal"}
	clientKey    = contextKey{"client"}
)

// WithPrincipal returns a context carrying the authenticated (or anonymous) caller.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the caller set by the auth middleware, or the anonymous principal.
func PrincipalFrom(ctx context.Context) domain.Principal {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	if !ok {
		return domain.Anonymous()
	}
	return p
}

// WithClient returns a context carrying the caller's IP and user-agent label.
func WithClient(ctx context.Context, c domain.ClientInfo) context.Context {
	return context.WithValue(ctx, clientKey, c)
}

// ClientFrom returns the client info set by the client middleware, or the zero value.
func ClientFrom(ctx context.Context) domain.ClientInfo {
	c, _ := ctx.Value(clientKey).(domain.ClientInfo)
	return c
}

// ClientIP returns the caller IP from ctx, or "". It satisfies audit.IPExtractor.
func ClientIP(ctx context.Context) string {
	return ClientFrom(ctx).IP
}
