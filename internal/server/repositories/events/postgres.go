// Package events provides the PostgreSQL-backed repository for calendar
// events. All queries are scoped by the owning user's ID.
package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/agenda/internal/common"
	"github.com/dmitrijs2005/agenda/internal/dbx"
	"github.com/dmitrijs2005/agenda/internal/server/models"
	"github.com/google/uuid"
)

const eventColumns = `id, user_id, title, event_time, date, description, is_completed, created_at, updated_at`

// PostgresRepository implements event storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create assigns an ID and timestamps and inserts the event row.
func (r *PostgresRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	event.ID = uuid.NewString()
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	query := `INSERT INTO events (id, user_id, title, event_time, date, description, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.UserID, event.Title, event.Time, event.Date,
		event.Description, event.IsCompleted, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return event, nil
}

// GetByID returns the event only when it belongs to userID. An event owned by
// someone else is indistinguishable from a missing one.
func (r *PostgresRepository) GetByID(ctx context.Context, id, userID string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND user_id = $2`

	event := &models.Event{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&event.ID, &event.UserID, &event.Title, &event.Time, &event.Date,
		&event.Description, &event.IsCompleted, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return event, nil
}

func (r *PostgresRepository) SelectByUser(ctx context.Context, userID string, from, to *time.Time) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = $1`
	args := []any{userID}

	if from != nil && to != nil {
		query += ` AND date >= $2 AND date <= $3`
		args = append(args, *from, *to)
	}
	query += ` ORDER BY date, event_time`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Event{}
	for rows.Next() {
		event := &models.Event{}
		if err := rows.Scan(
			&event.ID, &event.UserID, &event.Title, &event.Time, &event.Date,
			&event.Description, &event.IsCompleted, &event.CreatedAt, &event.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update persists the mutable fields. Callers are expected to have set
// UpdatedAt. A zero row count means the event is absent or foreign-owned.
func (r *PostgresRepository) Update(ctx context.Context, event *models.Event) error {
	query := `UPDATE events SET title = $3, event_time = $4, date = $5, description = $6,
		is_completed = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query,
		event.ID, event.UserID, event.Title, event.Time, event.Date,
		event.Description, event.IsCompleted, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ToggleCompletion flips is_completed in place and returns the updated row.
func (r *PostgresRepository) ToggleCompletion(ctx context.Context, id, userID string) (*models.Event, error) {
	query := `UPDATE events SET is_completed = NOT is_completed, updated_at = $3
		WHERE id = $1 AND user_id = $2
		RETURNING ` + eventColumns

	event := &models.Event{}
	err := r.db.QueryRowContext(ctx, query, id, userID, time.Now().UTC()).Scan(
		&event.ID, &event.UserID, &event.Title, &event.Time, &event.Date,
		&event.Description, &event.IsCompleted, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return event, nil
}
