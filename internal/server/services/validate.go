package services

import (
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/agenda/internal/common"
	"github.com/dmitrijs2005/agenda/internal/server/models"
)

const minPasswordLength = 6

var (
	emailRx    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRx = regexp.MustCompile(`^[a-zA-Z0-9_]{3,}$`)
)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	if !emailRx.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", common.ErrorValidation)
	}
	return nil
}

func validateUsername(username string) error {
	if !usernameRx.MatchString(username) {
		return fmt.Errorf("%w: username must be at least 3 characters (letters, digits, underscore)", common.ErrorValidation)
	}
	return nil
}

func validTheme(theme string) bool {
	switch theme {
	case models.ThemeDefault, models.ThemeDark, models.ThemeColorful, models.ThemeMinimal, models.ThemeProfessional:
		return true
	}
	return false
}

func validVisibility(visibility string) bool {
	switch visibility {
	case models.VisibilityPublic, models.VisibilityPrivate, models.VisibilityFriends:
		return true
	}
	return false
}
