package auth

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a token is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo holds session validation data.
type SessionInfo struct {
	Token        string
	UserID       int64
	LastActivity time.Time
	ExpiresAt    time.Time
}

// SessionStore persists server-side sessions keyed by the cookie token.
type SessionStore interface {
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	// LookupSession returns ErrSessionNotFound for unknown or expired tokens.
	LookupSession(ctx context.Context, token string) (*SessionInfo, error)
	RenewSession(ctx context.Context, token string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	DeleteUserSessions(ctx context.Context, userID int64) error
	CleanExpiredSessions(ctx context.Context) (int64, error)
}
