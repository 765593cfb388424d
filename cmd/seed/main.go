// seed inserts development accounts for local testing: a super-admin and a regular user.
// Idempotent: an account whose login already exists is skipped.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"blogger-platform/backend/internal/config"
	"blogger-platform/backend/internal/db"
	"blogger-platform/backend/internal/security"
	userdomain "blogger-platform/backend/internal/user/domain"
	userrepo "blogger-platform/backend/internal/user/repository"
)

const devPassword = "password123"

var devUsers = []struct {
	login string
	email string
	role  userdomain.Role
}{
	{"admin", "admin@example.com", userdomain.RoleSuperAdmin},
	{"alice", "alice@example.com", userdomain.RoleUser},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("seed: refusing to seed development accounts when APP_ENV=production")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	for _, du := range devUsers {
		existing, err := users.GetByLoginOrEmail(ctx, du.login)
		if err != nil {
			log.Fatalf("seed check %s: %v", du.login, err)
		}
		if existing != nil {
			log.Printf("seed: %s already exists, skipping", du.login)
			continue
		}
		u := &userdomain.User{
			ID:           uuid.New().String(),
			Login:        du.login,
			Email:        du.email,
			PasswordHash: passwordHash,
			Role:         du.role,
			CreatedAt:    now,
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create %s: %v", du.login, err)
		}
		fmt.Printf("Dev login: %s / %s (%s)\n", du.login, devPassword, du.role)
	}
	log.Println("Seed completed successfully.")
}
