package auth

import (
	"context"
	"errors"
	"time"
)

// Account statuses.
const (
	StatusActive   = "ACTIVE"
	StatusDisabled = "DISABLED"
	StatusBlocked  = "BLOCKED"
)

var (
	// ErrInvalidCredentials is returned for unknown logins and wrong passwords
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled is returned when a disabled account tries to log in
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrAccountBlocked is returned when a blocked account tries to log in
	ErrAccountBlocked = errors.New("account is blocked after too many failed attempts")

	// ErrAccountNotFound is returned by AccountStore lookups that match nothing
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidToken is returned for malformed, expired or revoked tokens
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnauthenticated is returned when a request carries no credentials
	ErrUnauthenticated = errors.New("authentication required")
)

// ProfileRef is the profile snapshot embedded in a user record.
type ProfileRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Account is the authentication view of a user record.
type Account struct {
	ID           string
	Email        string
	UserName     string
	FirstName    string
	LastName     string
	PasswordHash string
	Status       string
	Attempts     int
	BlockedAt    *time.Time
	Profile      ProfileRef
}

// Caller returns the request identity derived from the account.
func (a *Account) Caller() *Caller {
	return &Caller{
		UserID:   a.ID,
		UserName: a.UserName,
		Email:    a.Email,
		Profile:  a.Profile,
	}
}

// Caller is the authenticated identity of a request.
type Caller struct {
	UserID   string     `json:"id"`
	UserName string     `json:"userName"`
	Email    string     `json:"email"`
	Profile  ProfileRef `json:"profile"`
}

// AccountStore is the persistence used by the Authenticator.
type AccountStore interface {
	// FindByLogin matches login against email and user name.
	FindByLogin(ctx context.Context, login string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	// RegisterFailure increments the failed attempt counter and blocks an
	// ACTIVE account reaching maxAttempts. It returns the new counter and
	// status.
	RegisterFailure(ctx context.Context, id string, maxAttempts int) (int, string, error)
	ResetAttempts(ctx context.Context, id string) error
	SetPassword(ctx context.Context, id, hash string) error
}
