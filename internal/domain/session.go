package domain

import (
	"context"
	"time"
)

// Profile is the cached user profile returned by the API at login.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"nome"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Session holds the API token and cached profile of a logged-in user.
// It is written once per login, read on every request and cleared on logout.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore persists sessions by id.
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// LoginResult is the API answer to a successful login.
type LoginResult struct {
	Token   string  `json:"token"`
	Profile Profile `json:"usuario"`
}
