// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, profile management, and
// password changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/agenda/internal/common"
	"github.com/dmitrijs2005/agenda/internal/dbx"
	"github.com/dmitrijs2005/agenda/internal/server/auth"
	"github.com/dmitrijs2005/agenda/internal/server/config"
	"github.com/dmitrijs2005/agenda/internal/server/models"
	"github.com/dmitrijs2005/agenda/internal/server/repositories/repomanager"
	"github.com/jackc/pgx/v5/pgconn"
)

// RegisterRequest carries the fields accepted on account creation.
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// UpdateProfileRequest is a partial profile update: nil fields are left
// untouched.
type UpdateProfileRequest struct {
	Email              *string    `json:"email"`
	Username           *string    `json:"username"`
	FirstName          *string    `json:"firstName"`
	LastName           *string    `json:"lastName"`
	Bio                *string    `json:"bio"`
	Phone              *string    `json:"phone"`
	Location           *string    `json:"location"`
	Website            *string    `json:"website"`
	BirthDate          *time.Time `json:"birthDate"`
	Theme              *string    `json:"theme"`
	Visibility         *string    `json:"visibility"`
	EmailNotifications *bool      `json:"emailNotifications"`
	PushNotifications  *bool      `json:"pushNotifications"`
}

// UserStats summarizes an account for the profile page.
type UserStats struct {
	MemberSince     time.Time `json:"memberSince"`
	LastUpdated     time.Time `json:"lastUpdated"`
	ProfileComplete bool      `json:"profileComplete"`
}

// UserService provides account-related operations:
// - Register: create users and mint a token
// - Login: verify credentials and mint a token
// - GetProfile / UpdateProfile / DeleteAccount / ChangePassword / Stats
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
	jwtSecret   []byte
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		config:      cfg,
		jwtSecret:   []byte(cfg.SecretKey),
	}
}

// Register validates the request, creates the user with a bcrypt password
// hash, and returns the stored user together with a fresh access token.
// A taken email or username yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, string, error) {
	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if username != "" {
		if err := validateUsername(username); err != nil {
			return nil, "", err
		}
	}
	if len(req.Password) < minPasswordLength {
		return nil, "", common.ErrorWeakPassword
	}

	hash, err := auth.HashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	user := &models.User{
		Email:              email,
		Username:           username,
		PasswordHash:       hash,
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		Theme:              models.ThemeDefault,
		Visibility:         models.VisibilityPublic,
		EmailNotifications: true,
		PushNotifications:  true,
	}

	// The duplicate check and the insert run in one transaction; a concurrent
	// registration slipping between them is caught by the unique indexes.
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		exists, err := repo.ExistsWithIdentity(ctx, email, username, "")
		if err != nil {
			return err
		}
		if exists {
			return common.ErrorAlreadyExists
		}

		user, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) || isUniqueViolation(err) {
			return nil, "", common.ErrorAlreadyExists
		}
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.config.TokenValidityDuration)
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	return user, token, nil
}

// Login verifies the provided credentials and, on success, returns the user
// and a new access token. Unknown email and wrong password both yield
// common.ErrorUnauthorized so callers cannot probe for registered addresses.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorUnauthorized
		}
		return nil, "", common.ErrorInternal
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.config.TokenValidityDuration)
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	return user, token, nil
}

// GetProfile returns the user's account record.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// UpdateProfile applies a partial update, re-validating email/username
// uniqueness against all other users when either changes.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*models.User, error) {
	var user *models.User

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		checkEmail, checkUsername := "", ""

		if req.Email != nil {
			email := normalizeEmail(*req.Email)
			if err := validateEmail(email); err != nil {
				return err
			}
			if email != u.Email {
				checkEmail = email
			}
			u.Email = email
		}
		if req.Username != nil {
			username := strings.TrimSpace(*req.Username)
			if username != "" {
				if err := validateUsername(username); err != nil {
					return err
				}
				if username != u.Username {
					checkUsername = username
				}
			}
			u.Username = username
		}

		if checkEmail != "" || checkUsername != "" {
			exists, err := repo.ExistsWithIdentity(ctx, checkEmail, checkUsername, u.ID)
			if err != nil {
				return err
			}
			if exists {
				return common.ErrorAlreadyExists
			}
		}

		if req.FirstName != nil {
			u.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			u.LastName = strings.TrimSpace(*req.LastName)
		}
		if req.Bio != nil {
			u.Bio = strings.TrimSpace(*req.Bio)
		}
		if req.Phone != nil {
			u.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Location != nil {
			u.Location = strings.TrimSpace(*req.Location)
		}
		if req.Website != nil {
			u.Website = strings.TrimSpace(*req.Website)
		}
		if req.BirthDate != nil {
			u.BirthDate = req.BirthDate
		}
		if req.Theme != nil {
			if !validTheme(*req.Theme) {
				return fmt.Errorf("%w: unknown theme %q", common.ErrorValidation, *req.Theme)
			}
			u.Theme = *req.Theme
		}
		if req.Visibility != nil {
			if !validVisibility(*req.Visibility) {
				return fmt.Errorf("%w: unknown visibility %q", common.ErrorValidation, *req.Visibility)
			}
			u.Visibility = *req.Visibility
		}
		if req.EmailNotifications != nil {
			u.EmailNotifications = *req.EmailNotifications
		}
		if req.PushNotifications != nil {
			u.PushNotifications = *req.PushNotifications
		}

		u.UpdatedAt = time.Now().UTC()

		if err := repo.Update(ctx, u); err != nil {
			return err
		}

		user = u
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, err
	}

	return user, nil
}

// DeleteAccount removes the user record. Owned events are purged by the
// store's cascade rule.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	return s.repomanager.Users(s.db).Delete(ctx, userID)
}

// ChangePassword verifies the current password and stores a bcrypt hash of
// the next one. A mismatch yields common.ErrorUnauthorized; a next password
// shorter than the minimum yields common.ErrorWeakPassword.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(user.PasswordHash, current) {
		return common.ErrorUnauthorized
	}
	if len(next) < minPasswordLength {
		return common.ErrorWeakPassword
	}

	hash, err := auth.HashPassword(next, s.config.BcryptCost)
	if err != nil {
		return common.ErrorInternal
	}

	return repo.UpdatePassword(ctx, userID, hash)
}

// Stats returns account summary information for the profile page.
func (s *UserService) Stats(ctx context.Context, userID string) (*UserStats, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserStats{
		MemberSince:     user.CreatedAt,
		LastUpdated:     user.UpdatedAt,
		ProfileComplete: user.FirstName != "" && user.LastName != "" && user.Username != "" && user.ProfilePicture != "",
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
