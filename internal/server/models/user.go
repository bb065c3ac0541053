package models

import "time"

// Theme and visibility values accepted for a user profile.
const (
	ThemeDefault      = "default"
	ThemeDark         = "dark"
	ThemeColorful     = "colorful"
	ThemeMinimal      = "minimal"
	ThemeProfessional = "professional"

	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
	VisibilityFriends = "friends"
)

// User is an account with credentials and profile fields. PasswordHash is
// never serialized.
type User struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Username           string     `json:"username,omitempty"`
	PasswordHash       string     `json:"-"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Bio                string     `json:"bio,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	Location           string     `json:"location,omitempty"`
	Website            string     `json:"website,omitempty"`
	BirthDate          *time.Time `json:"birthDate,omitempty"`
	ProfilePicture     string     `json:"profilePicture,omitempty"`
	Theme              string     `json:"theme"`
	Visibility         string     `json:"visibility"`
	EmailNotifications bool       `json:"emailNotifications"`
	PushNotifications  bool       `json:"pushNotifications"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}
