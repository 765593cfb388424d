//go:build integration

// Package integration runs the identity core against a real Postgres started with testcontainers.
// Run with: go test -tags integration ./internal/integration -count=1
package integration

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"blogger-platform/backend/internal/app"
	"blogger-platform/backend/internal/config"
	"blogger-platform/backend/internal/db"
	"blogger-platform/backend/internal/db/migrate"
	"blogger-platform/backend/internal/identity/domain"
	"blogger-platform/backend/internal/identity/service"
	revocationdomain "blogger-platform/backend/internal/revocation/domain"
	"blogger-platform/backend/internal/security"
	"blogger-platform/backend/internal/sweeper"
	userdomain "blogger-platform/backend/internal/user/domain"
)

const password = "correct horse"

type env struct {
	conn     *sql.DB
	stores   *app.Stores
	identity *app.Identity
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("identity"),
		postgres.WithUsername("user"),
		postgres.WithPassword("pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrate.Run(dsn, migrate.Up))

	conn, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	cfg := &config.Config{
		JWTAccessSecret:  "integration-access",
		JWTRefreshSecret: "integration-refresh",
		JWTIssuer:        "integration",
		JWTAccessTTL:     "10m",
		JWTRefreshTTL:    "20h",
		BcryptCost:       4,
	}
	tokens, err := app.NewTokenProvider(cfg)
	require.NoError(t, err)
	stores := app.NewStores(conn)
	return &env{conn: conn, stores: stores, identity: app.NewIdentity(cfg, stores, tokens, nil)}
}

func (e *env) createUser(t *testing.T, login string, role userdomain.Role) *userdomain.User {
	t.Helper()
	hash, err := security.NewHasher(4).Hash([]byte(password))
	require.NoError(t, err)
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Login:        login,
		Email:        login + "@example.com",
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, e.stores.Users.Create(context.Background(), u))
	return u
}

func TestLoginRefreshLogout(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice", userdomain.RoleUser)
	auth := e.identity.Auth
	client := domain.ClientInfo{IP: "10.0.0.1", Title: "Chrome"}

	first, err := auth.LoginWithPassword(ctx, "alice@example.com", password, client)
	require.NoError(t, err)

	// Same title replaces the device session.
	second, err := auth.LoginWithPassword(ctx, "alice", password, client)
	require.NoError(t, err)
	caller := domain.PrincipalFromUser(alice)
	devices, err := auth.ListDevices(ctx, caller)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.NotEqual(t, first.DeviceID, second.DeviceID)
	require.Equal(t, second.DeviceID, devices[0].DeviceID)

	p, err := e.identity.Authenticator.Authenticate(ctx, second.AccessToken)
	require.NoError(t, err)
	require.Equal(t, alice.ID, p.UserID)

	rotated, err := auth.Refresh(ctx, second.RefreshToken, client)
	require.NoError(t, err)
	require.Equal(t, second.DeviceID, rotated.DeviceID)

	revoked, err := e.stores.Revocations.IsRevoked(ctx, security.HashToken(second.RefreshToken))
	require.NoError(t, err)
	require.True(t, revoked)

	_, err = auth.Refresh(ctx, second.RefreshToken, client)
	require.ErrorIs(t, err, service.ErrUnauthorized)

	require.NoError(t, auth.Logout(ctx, rotated.RefreshToken))
	devices, err = auth.ListDevices(ctx, caller)
	require.NoError(t, err)
	require.Empty(t, devices)

	logs, err := e.stores.Audit.ListByUser(ctx, alice.ID, 50)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
}

func TestConcurrentRefreshRotatesOnce(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.createUser(t, "bob", userdomain.RoleUser)
	client := domain.ClientInfo{IP: "10.0.0.2", Title: "Firefox"}
	pair, err := e.identity.Auth.LoginWithPassword(ctx, "bob", password, client)
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.identity.Auth.Refresh(ctx, pair.RefreshToken, client); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)
}

func TestBanCascadeAndDeviceLogout(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	carol := e.createUser(t, "carol", userdomain.RoleUser)
	auth := e.identity.Auth
	caller := domain.PrincipalFromUser(carol)

	phone, err := auth.LoginWithPassword(ctx, "carol", password, domain.ClientInfo{IP: "1.1.1.1", Title: "Phone"})
	require.NoError(t, err)
	laptop, err := auth.LoginWithPassword(ctx, "carol", password, domain.ClientInfo{IP: "1.1.1.2", Title: "Laptop"})
	require.NoError(t, err)
	_, err = auth.LoginWithPassword(ctx, "carol", password, domain.ClientInfo{IP: "1.1.1.3", Title: "Tablet"})
	require.NoError(t, err)

	require.NoError(t, auth.LogoutDevice(ctx, caller, phone.DeviceID))
	require.ErrorIs(t, auth.LogoutDevice(ctx, caller, phone.DeviceID), service.ErrNotFound)

	require.NoError(t, auth.LogoutAllOtherDevices(ctx, caller, laptop.DeviceID))
	devices, err := auth.ListDevices(ctx, caller)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, laptop.DeviceID, devices[0].DeviceID)

	require.NoError(t, auth.OnUserBanned(ctx, carol.ID))
	require.NoError(t, auth.OnUserBanned(ctx, carol.ID))
	_, err = auth.Refresh(ctx, laptop.RefreshToken, domain.ClientInfo{})
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestSweeperPurgesExpiredRows(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	dave := e.createUser(t, "dave", userdomain.RoleUser)
	pair, err := e.identity.Auth.LoginWithPassword(ctx, "dave", password, domain.ClientInfo{Title: "CLI"})
	require.NoError(t, err)
	_, err = e.stores.Revocations.Add(ctx, &revocationdomain.Entry{
		TokenHash:  security.HashToken("stale"),
		UserID:     dave.ID,
		Reason:     revocationdomain.ReasonLogout,
		RecordedAt: time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	})
	require.NoError(t, err)

	sw := sweeper.New(e.stores.Sessions, e.stores.Revocations, nil, time.Minute)

	res, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Sessions)
	require.Zero(t, res.Revocations)

	sw.WithClock(func() time.Time { return pair.RefreshExpiresAt.Add(time.Second) })
	res, err = sw.SweepOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Sessions)
	require.Equal(t, int64(1), res.Revocations)

	res, err = sw.SweepOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Sessions+res.Revocations)
}
