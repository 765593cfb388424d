package repository

import (
	"context"

	"blogger-platform/backend/internal/user/domain"
)

// Repository reads users. Writes other than Create belong to user management.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByLoginOrEmail(ctx context.Context, loginOrEmail string) (*domain.User, error)
	// Create inserts a user; used by the seed command.
	Create(ctx context.Context, u *domain.User) error
}
