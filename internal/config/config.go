// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevSecret is the signing secret used when none is configured outside production.
const DevSecret = "dev-only-secret-change-me"

// Authorization engines selectable via AUTHZ_ENGINE.
const (
	AuthzEngineStatic = "static"
	AuthzEngineRego   = "rego"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTAccessSecret is the HS256 secret for access tokens. Ignored when a key pair is configured.
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// JWTRefreshSecret is the HS256 secret for refresh tokens. May differ from the access secret.
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim set on issued tokens and checked on verification.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "10m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "20h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// SweepInterval is how often expired sessions and revocation entries are purged (e.g. "1m").
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`
	// AuthzEngine selects the authorization evaluator: "static" (rule table) or "rego" (OPA).
	AuthzEngine string `mapstructure:"AUTHZ_ENGINE"`
	// CookieSecure controls the Secure attribute on the refresh token cookie.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool `mapstructure:"TRUST_PROXY_HEADERS"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	// When empty, security events are only emitted as OTel logs and the worker does not consume ban events.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// SecurityEventsTopic is the Kafka topic security events are published to.
	SecurityEventsTopic string `mapstructure:"SECURITY_EVENTS_TOPIC"`
	// BanEventsTopic is the Kafka topic the user-management service publishes ban transitions to.
	BanEventsTopic string `mapstructure:"BAN_EVENTS_TOPIC"`
	// KafkaGroupID is the consumer group ID for the ban event consumer in the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "blogger-platform")
	v.SetDefault("JWT_ACCESS_TTL", "10m")
	v.SetDefault("JWT_REFRESH_TTL", "20h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("AUTHZ_ENGINE", AuthzEngineStatic)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("TRUST_PROXY_HEADERS", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SECURITY_EVENTS_TOPIC", "security-events")
	v.SetDefault("BAN_EVENTS_TOPIC", "user-ban-events")
	v.SetDefault("KAFKA_GROUP_ID", "identity-worker")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if (cfg.JWTPrivateKey == "") != (cfg.JWTPublicKey == "") {
		return nil, errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set together")
	}
	if !cfg.UsesKeyPair() {
		if cfg.JWTAccessSecret == "" {
			cfg.JWTAccessSecret = DevSecret
		}
		if cfg.JWTRefreshSecret == "" {
			cfg.JWTRefreshSecret = DevSecret
		}
		if cfg.IsProduction() && (cfg.JWTAccessSecret == DevSecret || cfg.JWTRefreshSecret == DevSecret) {
			return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set when APP_ENV=production")
		}
	}

	if cfg.AccessTTL() >= cfg.RefreshTTL() {
		return nil, errors.New("config: JWT_ACCESS_TTL must be shorter than JWT_REFRESH_TTL")
	}

	switch cfg.AuthzEngine {
	case AuthzEngineStatic, AuthzEngineRego:
	default:
		return nil, errors.New("config: AUTHZ_ENGINE must be static or rego")
	}

	return &cfg, nil
}

// UsesKeyPair reports whether tokens are signed with an asymmetric key pair instead of HS256 secrets.
func (c *Config) UsesKeyPair() bool {
	return c.JWTPrivateKey != "" && c.JWTPublicKey != ""
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 20h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 20 * time.Hour
	}
	return d
}

// SweepEvery parses SweepInterval as a time.Duration. Returns 1m if unset or invalid.
func (c *Config) SweepEvery() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables Kafka publishing and consumption.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
