package service

import (
	"context"
	"errors"
	"testing"
	"time"

	revocationdomain "blogger-platform/backend/internal/revocation/domain"
	"blogger-platform/backend/internal/security"
)

func TestAuthenticate_AnonymousCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair := f.login(t, "alice", "Chrome")

	tokens := security.NewTestTokenProvider()
	ghost, err := tokens.IssueAccess("ghost", f.now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	testCases := []struct {
		name  string
		token string
	}{
		{"absent", ""},
		{"garbage", "garbage"},
		{"refresh token used as access", pair.RefreshToken},
		{"unknown user", ghost.Value},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := f.auth.Authenticate(ctx, tc.token)
			if err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			if !p.IsAnonymous() {
				t.Errorf("principal = %+v, want anonymous", p)
			}
		})
	}
}

func TestAuthenticate_Expired(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t, "alice", "Chrome")
	f.advance(security.TestAccessTTL + time.Second)

	p, err := f.auth.Authenticate(context.Background(), pair.AccessToken)
	if err != nil || !p.IsAnonymous() {
		t.Fatalf("expired token = %+v, %v; want anonymous, nil", p, err)
	}
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t, "alice", "Chrome")
	f.revs.add(&revocationdomain.Entry{
		TokenHash: security.HashToken(pair.AccessToken),
		Reason:    revocationdomain.ReasonLogout,
		ExpiresAt: pair.AccessExpiresAt,
	})

	p, err := f.auth.Authenticate(context.Background(), pair.AccessToken)
	if err != nil || !p.IsAnonymous() {
		t.Fatalf("revoked token = %+v, %v; want anonymous, nil", p, err)
	}
}

func TestAuthenticate_BannedAfterIssue(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t, "alice", "Chrome")
	f.users.ban("alice")

	p, err := f.auth.Authenticate(context.Background(), pair.AccessToken)
	if err != nil || !p.IsAnonymous() {
		t.Fatalf("banned user = %+v, %v; want anonymous, nil", p, err)
	}
}

func TestAuthenticate_InfrastructureFailure(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t, "alice", "Chrome")
	dbErr := errors.New("timeout")

	f.users.err = dbErr
	if _, err := f.auth.Authenticate(context.Background(), pair.AccessToken); !errors.Is(err, ErrInfrastructure) {
		t.Errorf("user lookup failure err = %v, want ErrInfrastructure", err)
	}
	f.users.err = nil
	f.revs.err = dbErr
	if _, err := f.auth.Authenticate(context.Background(), pair.AccessToken); !errors.Is(err, ErrInfrastructure) {
		t.Errorf("revocation failure err = %v, want ErrInfrastructure", err)
	}
}
