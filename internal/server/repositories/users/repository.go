package users

import (
	"context"

	"github.com/dmitrijs2005/agenda/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// ExistsWithIdentity reports whether another user already holds the given
	// email or username. excludeID, when non-empty, exempts that user from the
	// check (used on profile updates).
	ExistsWithIdentity(ctx context.Context, email, username, excludeID string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetProfilePicture(ctx context.Context, id, key string) error
	Delete(ctx context.Context, id string) error
}
