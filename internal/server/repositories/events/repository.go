package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/agenda/internal/server/models"
)

// Repository is the owner-scoped event store. Every lookup and mutation
// carries the owner's user ID so a caller can never touch another user's
// events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	GetByID(ctx context.Context, id, userID string) (*models.Event, error)
	// SelectByUser returns the user's events ordered by date then time label.
	// When both bounds are non-nil the result is filtered to date ∈ [from, to].
	SelectByUser(ctx context.Context, userID string, from, to *time.Time) ([]*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id, userID string) error
	ToggleCompletion(ctx context.Context, id, userID string) (*models.Event, error)
}
