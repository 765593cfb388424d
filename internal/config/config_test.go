package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.JWTIssuer != "blogger-platform" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "blogger-platform")
	}
	if cfg.JWTAccessTTL != "10m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "10m")
	}
	if cfg.JWTRefreshTTL != "20h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "20h")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.AuthzEngine != AuthzEngineStatic {
		t.Errorf("AuthzEngine = %q, want %q", cfg.AuthzEngine, AuthzEngineStatic)
	}
	if cfg.JWTAccessSecret != DevSecret || cfg.JWTRefreshSecret != DevSecret {
		t.Error("secrets should fall back to the dev secret outside production")
	}
	if cfg.UsesKeyPair() {
		t.Error("UsesKeyPair should be false without keys")
	}
	if cfg.SecurityEventsTopic != "security-events" {
		t.Errorf("SecurityEventsTopic = %q, want security-events", cfg.SecurityEventsTopic)
	}
	if cfg.BanEventsTopic != "user-ban-events" {
		t.Errorf("BanEventsTopic = %q, want user-ban-events", cfg.BanEventsTopic)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should default to true")
	}
	if cfg.TrustProxyHeaders {
		t.Error("TrustProxyHeaders should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9999")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("JWT_ACCESS_SECRET", "access-secret")
	os.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("AUTHZ_ENGINE", "rego")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9999")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.JWTAccessSecret != "access-secret" || cfg.JWTRefreshSecret != "refresh-secret" {
		t.Errorf("secrets = %q/%q, want configured values", cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.AuthzEngine != AuthzEngineRego {
		t.Errorf("AuthzEngine = %q, want %q", cfg.AuthzEngine, AuthzEngineRego)
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should return error when secrets are missing in production")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}

	os.Setenv("JWT_ACCESS_SECRET", "a-real-access-secret")
	os.Setenv("JWT_REFRESH_SECRET", "a-real-refresh-secret")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with production secrets: %v", err)
	}
}

func TestLoad_KeyPairMustBeComplete(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_PRIVATE_KEY", "/tmp/key.pem")

	if _, err := Load(); err == nil {
		t.Fatal("Load should return error when only JWT_PRIVATE_KEY is set")
	}
}

func TestLoad_AccessTTLMustBeShorterThanRefresh(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_ACCESS_TTL", "2h")
	os.Setenv("JWT_REFRESH_TTL", "1h")

	if _, err := Load(); err == nil {
		t.Fatal("Load should return error when access TTL >= refresh TTL")
	}
}

func TestLoad_InvalidAuthzEngine(t *testing.T) {
	os.Clearenv()
	os.Setenv("AUTHZ_ENGINE", "casbin")

	if _, err := Load(); err == nil {
		t.Fatal("Load should return error for unknown AUTHZ_ENGINE")
	}
}

func TestAccessTTL_ValidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_ACCESS_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.AccessTTL(); ttl != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want %v", ttl, 30*time.Minute)
	}
}

func TestAccessTTL_InvalidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_ACCESS_TTL", "invalid")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.AccessTTL(); ttl != 10*time.Minute {
		t.Errorf("AccessTTL = %v, want %v (default)", ttl, 10*time.Minute)
	}
}

func TestRefreshTTL_NegativeDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_REFRESH_TTL", "-1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.RefreshTTL(); ttl != 20*time.Hour {
		t.Errorf("RefreshTTL = %v, want %v (default)", ttl, 20*time.Hour)
	}
}

func TestSweepEvery(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"", time.Minute},
		{"garbage", time.Minute},
		{"-5s", time.Minute},
	}
	for _, tc := range testCases {
		cfg := &Config{SweepInterval: tc.value}
		if got := cfg.SweepEvery(); got != tc.want {
			t.Errorf("SweepEvery(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestKafkaBrokersList(t *testing.T) {
	cfg := &Config{KafkaBrokers: " broker1:9092, ,broker2:9092 "}
	got := cfg.KafkaBrokersList()
	if len(got) != 2 || got[0] != "broker1:9092" || got[1] != "broker2:9092" {
		t.Errorf("KafkaBrokersList = %v, want [broker1:9092 broker2:9092]", got)
	}

	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("KafkaBrokersList on nil config should be nil")
	}
	if (&Config{}).KafkaBrokersList() != nil {
		t.Error("KafkaBrokersList with empty brokers should be nil")
	}
}
