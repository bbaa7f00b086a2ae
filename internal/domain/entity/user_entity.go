package entity

import (
	"strings"
	"time"
)

// User is the aggregate root for the user domain.
// PasswordHash is a bcrypt hash and is empty for accounts created through
// Google sign-in; such accounts only authenticate through Google.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	AvatarURL    string
	GoogleID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can log in with email/password.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// NormalizeEmail lower-cases and trims an address; emails are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
