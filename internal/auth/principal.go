package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so a caller cannot probe which admin accounts exist.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountNotConfirmed = errors.New("account not confirmed")
	ErrTooManyRequests     = errors.New("too many login attempts")
)

// Principal is the authenticated identity of the current admin user.
// Copies handed out through the session cache are read-only projections.
type Principal struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session is the server-side record behind an opaque session token.
type Session struct {
	Token     string    `json:"token"`
	UserID    int       `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func (s *Session) Principal() *Principal {
	return &Principal{
		ID:        s.UserID,
		Email:     s.Email,
		IssuedAt:  s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
