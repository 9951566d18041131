// Package user defines the account model used for authentication.
package user

import (
	"errors"
	"net/mail"
	"regexp"
	"time"
)

// Password length bounds. bcrypt ignores input beyond 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,80}$`)

// User represents a registered account. Favorites are keyed by Username.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // never serialized
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateRequest is the input for registering a new user.
type CreateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Username == "" {
		return errors.New("username is required")
	}
	if !usernamePattern.MatchString(r.Username) {
		return errors.New("username must be 3-80 letters, digits, '.', '_' or '-'")
	}
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return errors.New("invalid email format")
		}
	}
	return ValidatePassword(r.Password)
}

// ValidatePassword checks the length bounds of a new password.
func ValidatePassword(p string) error {
	if p == "" {
		return errors.New("password is required")
	}
	if len(p) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	if len(p) > MaxPasswordLength {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}

// LoginRequest is the input for user authentication.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Username == "" {
		return errors.New("username is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresIn   int    `json:"expires_in"`   // seconds until access token expires
	User        User   `json:"user"`
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID   string
	Username string
}
