package storage

import (
	"context"
	"errors"
	"time"

	"expense-tracker/internal/auth"
)

var _ auth.SessionStore = (*DB)(nil)

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, formatTime(expiresAt), formatTime(time.Now()),
	)
	return err
}

// LookupSession checks if a session token is valid and returns session details.
func (db *DB) LookupSession(ctx context.Context, token string) (*auth.SessionInfo, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, last_activity, expires_at
		FROM sessions
		WHERE token = ? AND expires_at > ?
	`, token, formatTime(time.Now()))

	var userID int64
	var lastActivity, expiresAt string
	if err := row.Scan(&userID, &lastActivity, &expiresAt); err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}
	la, err := parseTime(lastActivity)
	if err != nil {
		return nil, err
	}
	ea, err := parseTime(expiresAt)
	if err != nil {
		return nil, err
	}
	return &auth.SessionInfo{
		Token:        token,
		UserID:       userID,
		LastActivity: la,
		ExpiresAt:    ea,
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		formatTime(time.Now()), formatTime(expiresAt), token,
	)
	if err != nil {
		return err
	}
	if err := expectAffected(result); errors.Is(err, ErrNotFound) {
		return auth.ErrSessionNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteUserSessions removes all sessions of a user.
func (db *DB) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", formatTime(time.Now()))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
