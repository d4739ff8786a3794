package repositories

import (
	"context"

	"configurator/internal/models"
)

// UserRepository defines the interface for user data access. GetByID doubles
// as the identity lookup from user ID to email.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// ProfileRepository defines the interface for the profiles table.
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, userID string) (*models.Profile, error)
}
