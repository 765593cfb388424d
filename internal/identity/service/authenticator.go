package service

import (
	"context"
	"time"

	"blogger-platform/backend/internal/identity/domain"
	"blogger-platform/backend/internal/security"
)

// Authenticator resolves a bearer access token to a Principal.
type Authenticator struct {
	users       UserRepo
	revocations RevocationRepo
	tokens      *security.TokenProvider
	metrics     *authMetrics
	now         func() time.Time
}

// NewAuthenticator returns an Authenticator backed by the given stores and token provider.
func NewAuthenticator(users UserRepo, revocations RevocationRepo, tokens *security.TokenProvider) *Authenticator {
	return &Authenticator{
		users:       users,
		revocations: revocations,
		tokens:      tokens,
		metrics:     newAuthMetrics(),
		now:         time.Now,
	}
}

// WithClock replaces the wall clock used for expiry checks.
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	return a
}

// Authenticate returns the principal for accessToken. An absent, invalid, expired or revoked token,
// an unknown user, and a banned user all yield the anonymous principal with a nil error so public
// reads stay available. Only storage failures are returned, as *InfraError.
func (a *Authenticator) Authenticate(ctx context.Context, accessToken string) (domain.Principal, error) {
	if accessToken == "" {
		return domain.Anonymous(), nil
	}
	claims, err := a.tokens.ValidateAccess(accessToken, a.now().UTC())
	if err != nil {
		record(ctx, a.metrics.authentication, 1, "result", "invalid")
		return domain.Anonymous(), nil
	}
	revoked, err := a.revocations.IsRevoked(ctx, security.HashToken(accessToken))
	if err != nil {
		return domain.Anonymous(), infra("check revocation", err)
	}
	if revoked {
		record(ctx, a.metrics.authentication, 1, "result", "revoked")
		return domain.Anonymous(), nil
	}
	user, err := a.users.GetByID(ctx, claims.UserID())
	if err != nil {
		return domain.Anonymous(), infra("load user", err)
	}
	if user == nil {
		record(ctx, a.metrics.authentication, 1, "result", "unknown_user")
		return domain.Anonymous(), nil
	}
	if user.Ban.IsBanned {
		record(ctx, a.metrics.authentication, 1, "result", "banned")
		return domain.Anonymous(), nil
	}
	record(ctx, a.metrics.authentication, 1, "result", "authenticated")
	return domain.PrincipalFromUser(user), nil
}
