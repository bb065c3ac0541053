package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/agenda/internal/common"
	"github.com/dmitrijs2005/agenda/internal/server/models"
	"github.com/dmitrijs2005/agenda/internal/server/repositories/repomanager"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 500
)

// CreateEventRequest carries the fields accepted on event creation.
type CreateEventRequest struct {
	Title       string
	Time        string
	Date        time.Time
	Description string
}

// UpdateEventRequest is a partial event update: nil fields are left untouched.
type UpdateEventRequest struct {
	Title       *string
	Time        *string
	Date        *time.Time
	Description *string
	IsCompleted *bool
}

// EventService implements owner-scoped CRUD and date-range queries over
// calendar events. Every operation takes the caller's user ID and passes it
// down to the repository, so an event owned by someone else behaves exactly
// like a missing one.
type EventService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewEventService(db *sql.DB, m repomanager.RepositoryManager) *EventService {
	return &EventService{db: db, repomanager: m}
}

// Create validates the request and stores a new event owned by userID.
func (s *EventService) Create(ctx context.Context, userID string, req CreateEventRequest) (*models.Event, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)

	if err := validateEventFields(title, req.Date, description); err != nil {
		return nil, err
	}

	event := &models.Event{
		UserID:      userID,
		Title:       title,
		Time:        strings.TrimSpace(req.Time),
		Date:        req.Date,
		Description: description,
	}

	event, err := s.repomanager.Events(s.db).Create(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("error creating event: %w", err)
	}

	return event, nil
}

// ListByOwner returns the user's events ordered by date then time label.
// The range filter applies only when both bounds are given (inclusive);
// no matches is an empty slice, never an error.
func (s *EventService) ListByOwner(ctx context.Context, userID string, from, to *time.Time) ([]*models.Event, error) {
	if from == nil || to == nil {
		from, to = nil, nil
	}
	return s.repomanager.Events(s.db).SelectByUser(ctx, userID, from, to)
}

// ListByDate returns the user's events for the given calendar day, bounded by
// [00:00:00.000, 23:59:59.999] in the day's location.
func (s *EventService) ListByDate(ctx context.Context, userID string, day time.Time) ([]*models.Event, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24*time.Hour - time.Millisecond)
	return s.repomanager.Events(s.db).SelectByUser(ctx, userID, &start, &end)
}

// GetByID returns the event when it exists and belongs to userID.
func (s *EventService) GetByID(ctx context.Context, userID, eventID string) (*models.Event, error) {
	return s.repomanager.Events(s.db).GetByID(ctx, eventID, userID)
}

// Update applies a partial update, re-validating field constraints.
func (s *EventService) Update(ctx context.Context, userID, eventID string, req UpdateEventRequest) (*models.Event, error) {
	repo := s.repomanager.Events(s.db)

	event, err := repo.GetByID(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		event.Title = strings.TrimSpace(*req.Title)
	}
	if req.Time != nil {
		event.Time = strings.TrimSpace(*req.Time)
	}
	if req.Date != nil {
		event.Date = *req.Date
	}
	if req.Description != nil {
		event.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsCompleted != nil {
		event.IsCompleted = *req.IsCompleted
	}

	if err := validateEventFields(event.Title, event.Date, event.Description); err != nil {
		return nil, err
	}

	event.UpdatedAt = time.Now().UTC()

	if err := repo.Update(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

// Delete removes the event when it exists and belongs to userID.
func (s *EventService) Delete(ctx context.Context, userID, eventID string) error {
	return s.repomanager.Events(s.db).Delete(ctx, eventID, userID)
}

// ToggleCompletion flips the event's completion flag and returns the updated
// event.
func (s *EventService) ToggleCompletion(ctx context.Context, userID, eventID string) (*models.Event, error) {
	return s.repomanager.Events(s.db).ToggleCompletion(ctx, eventID, userID)
}

func validateEventFields(title string, date time.Time, description string) error {
	if title == "" {
		return fmt.Errorf("%w: event title is required", common.ErrorValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("%w: event title cannot exceed %d characters", common.ErrorValidation, maxTitleLength)
	}
	if date.IsZero() {
		return fmt.Errorf("%w: event date is required", common.ErrorValidation)
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return fmt.Errorf("%w: description cannot exceed %d characters", common.ErrorValidation, maxDescriptionLength)
	}
	return nil
}
