// Package users provides the PostgreSQL-backed repository for user accounts
// and profiles.
package users

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

const userColumns = `id, email, username, password_hash, first_name, last_name,
		bio, phone, location, website, birth_date, profile_picture,
		theme, visibility, email_notifications, push_notifications,
		created_at, updated_at`

// PostgresRepository implements user storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create assigns an ID and timestamps and inserts the user row.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.NewString()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `INSERT INTO users (id, email, username, password_hash, first_name, last_name,
		bio, phone, location, website, birth_date, profile_picture,
		theme, visibility, email_notifications, push_notifications,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, nullIfEmpty(user.Username), user.PasswordHash,
		user.FirstName, user.LastName, user.Bio, user.Phone, user.Location, user.Website,
		user.BirthDate, user.ProfilePicture, user.Theme, user.Visibility,
		user.EmailNotifications, user.PushNotifications, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// ExistsWithIdentity checks email/username uniqueness across all users except
// excludeID. An empty email or username disables that half of the check.
func (r *PostgresRepository) ExistsWithIdentity(ctx context.Context, email, username, excludeID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM users
		WHERE ((email = $1 AND $1 <> '') OR (username = $2 AND $2 <> ''))
		AND ($3 = '' OR id <> $3)
	)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email, username, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Update persists every mutable profile field. Callers are expected to have
// set UpdatedAt.
func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET email = $2, username = $3, first_name = $4, last_name = $5,
		bio = $6, phone = $7, location = $8, website = $9, birth_date = $10,
		profile_picture = $11, theme = $12, visibility = $13,
		email_notifications = $14, push_notifications = $15, updated_at = $16
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, nullIfEmpty(user.Username), user.FirstName, user.LastName,
		user.Bio, user.Phone, user.Location, user.Website, user.BirthDate,
		user.ProfilePicture, user.Theme, user.Visibility,
		user.EmailNotifications, user.PushNotifications, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return checkAffected(res)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return checkAffected(res)
}

func (r *PostgresRepository) SetProfilePicture(ctx context.Context, id, key string) error {
	query := `UPDATE users SET profile_picture = $2, updated_at = $3 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, key, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return checkAffected(res)
}

// Delete removes the user row. Owned events are removed by the events table's
// ON DELETE CASCADE constraint.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return checkAffected(res)
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var username sql.NullString
	var birthDate sql.NullTime

	err := row.Scan(
		&user.ID, &user.Email, &username, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.Bio, &user.Phone, &user.Location, &user.Website,
		&birthDate, &user.ProfilePicture, &user.Theme, &user.Visibility,
		&user.EmailNotifications, &user.PushNotifications, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Username = username.String
	if birthDate.Valid {
		t := birthDate.Time
		user.BirthDate = &t
	}

	return user, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
