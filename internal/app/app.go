// Package app assembles the identity core from configuration for the server and worker binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"blogger-platform/backend/internal/audit"
	auditrepo "blogger-platform/backend/internal/audit/repository"
	"blogger-platform/backend/internal/config"
	"blogger-platform/backend/internal/identity/service"
	"blogger-platform/backend/internal/platform/rbac"
	"blogger-platform/backend/internal/policy/engine"
	revocationrepo "blogger-platform/backend/internal/revocation/repository"
	"blogger-platform/backend/internal/security"
	"blogger-platform/backend/internal/server/middleware"
	sessionrepo "blogger-platform/backend/internal/session/repository"
	"blogger-platform/backend/internal/telemetry"
	userrepo "blogger-platform/backend/internal/user/repository"
)

// Stores groups the Postgres repositories over one connection pool.
type Stores struct {
	Users       *userrepo.PostgresRepository
	Sessions    *sessionrepo.PostgresRepository
	Revocations *revocationrepo.PostgresRepository
	Audit       *auditrepo.PostgresRepository
}

// NewStores returns the repositories backed by db.
func NewStores(db *sql.DB) *Stores {
	return &Stores{
		Users:       userrepo.NewPostgresRepository(db),
		Sessions:    sessionrepo.NewPostgresRepository(db),
		Revocations: revocationrepo.NewPostgresRepository(db),
		Audit:       auditrepo.NewPostgresRepository(db),
	}
}

// NewTokenProvider signs with the configured key pair when present, otherwise with the HS256 secrets.
func NewTokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	if cfg.UsesKeyPair() {
		signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("jwt keys: %w", err)
		}
		return security.NewKeyPairTokenProvider(signer, pub, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	}
	return security.NewHMACTokenProvider(
		[]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret),
		cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL(),
	), nil
}

// PolicyEngine is an authorization evaluator that can report its own readiness.
type PolicyEngine interface {
	rbac.Evaluator
	HealthCheck(ctx context.Context) error
}

// NewPolicyEngine returns the evaluator selected by AUTHZ_ENGINE.
func NewPolicyEngine(ctx context.Context, cfg *config.Config) (PolicyEngine, error) {
	switch cfg.AuthzEngine {
	case config.AuthzEngineRego:
		e, err := engine.NewOPAEvaluator(ctx)
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.AuthzEngineStatic, "":
		return rbac.NewStaticEvaluator(), nil
	default:
		return nil, fmt.Errorf("unknown authorization engine %q", cfg.AuthzEngine)
	}
}

// Identity holds the session lifecycle coordinator and the authentication evaluator.
type Identity struct {
	Auth          *service.AuthService
	Authenticator *service.Authenticator
}

// NewIdentity wires the auth service and authenticator. Audit entries take the client IP from the
// request context set by middleware.Client.
func NewIdentity(cfg *config.Config, stores *Stores, tokens *security.TokenProvider, events telemetry.EventEmitter) *Identity {
	auditLogger := audit.NewLogger(stores.Audit, middleware.ClientIP)
	return &Identity{
		Auth: service.NewAuthService(
			stores.Users, stores.Sessions, stores.Revocations,
			security.NewHasher(cfg.BcryptCost), tokens, auditLogger, events,
		),
		Authenticator: service.NewAuthenticator(stores.Users, stores.Revocations, tokens),
	}
}
