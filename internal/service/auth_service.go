package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expense-tracker/internal/auth"
	"expense-tracker/internal/events"
	applog "expense-tracker/internal/log"
	"expense-tracker/internal/models"
	"expense-tracker/internal/storage"
)

// DefaultSessionTTL is how long sessions last (30 days).
const DefaultSessionTTL = 30 * 24 * time.Hour

// UserStore provides user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	// DeleteUser removes the user and everything it owns.
	DeleteUser(ctx context.Context, userID int64) (int64, error)
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// AuthService handles registration, credentials and sessions.
type AuthService struct {
	users    UserStore
	sessions auth.SessionStore
	events   events.Publisher
	logger   *applog.Logger
	ttl      time.Duration
}

// NewAuthService returns a new AuthService. A nil publisher or logger disables that concern.
func NewAuthService(users UserStore, sessions auth.SessionStore, publisher events.Publisher, logger *applog.Logger, ttl time.Duration) *AuthService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		events:   publisher,
		logger:   logger.WithComponent(applog.ComponentAuth),
		ttl:      ttl,
	}
}

// SessionTTL returns the lifetime of new sessions.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user with a hashed password.
func (s *AuthService) Register(ctx context.Context, name, email, password, confirm string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" || confirm == "" {
		return nil, ErrFieldsMissing
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.CreateUser(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", "user_id", u.ID)
	s.publish(ctx, events.New(events.UserRegistered, u.ID))
	return u, nil
}

// Login checks the credentials and opens a session bound to the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		s.logger.WarnContext(ctx, "Failed login", "user_id", u.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	expiresAt := time.Now().Add(s.ttl)
	if err := s.sessions.CreateSession(ctx, token, u.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.InfoContext(ctx, "User logged in", "user_id", u.ID)
	return &LoginResult{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout removes the session bound to token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, token)
}

// ResolveSession returns the user bound to token.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*models.User, *auth.SessionInfo, error) {
	if token == "" {
		return nil, nil, auth.ErrSessionNotFound
	}
	info, err := s.sessions.LookupSession(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.users.GetUserByID(ctx, info.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = s.sessions.DeleteSession(ctx, token)
			return nil, nil, auth.ErrSessionNotFound
		}
		return nil, nil, err
	}
	return u, info, nil
}

// RenewIfStale extends a session that is in the second half of its lifetime.
// It reports the new expiry and whether a renewal happened.
func (s *AuthService) RenewIfStale(ctx context.Context, info *auth.SessionInfo) (time.Time, bool, error) {
	now := time.Now()
	if info.ExpiresAt.Sub(now) >= s.ttl/2 {
		return info.ExpiresAt, false, nil
	}
	newExpiresAt := now.Add(s.ttl)
	if err := s.sessions.RenewSession(ctx, info.Token, newExpiresAt); err != nil {
		return info.ExpiresAt, false, err
	}
	return newExpiresAt, true, nil
}

// ForgotPassword overwrites the password of the account registered under email.
func (s *AuthService) ForgotPassword(ctx context.Context, email, newPassword, confirm string) error {
	email = normalizeEmail(email)
	if email == "" || newPassword == "" || confirm == "" {
		return ErrFieldsMissing
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoSuchAccount
		}
		return fmt.Errorf("lookup email: %w", err)
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.InfoContext(ctx, "Password reset", "user_id", u.ID)
	return nil
}

// DeleteAccount removes the user, its expenses and its sessions after
// re-checking the password.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64, password, confirm string) error {
	if password == "" || confirm == "" {
		return ErrFieldsMissing
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return ErrInvalidCredentials
	}

	removed, err := s.users.DeleteUser(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	// The sqlite store already dropped the sessions; other stores keep them separately.
	if err := s.sessions.DeleteUserSessions(ctx, u.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete sessions of removed user", "user_id", u.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "Account deleted", "user_id", u.ID, "expenses_removed", removed)
	e := events.New(events.AccountDeleted, u.ID)
	e.Count = removed
	s.publish(ctx, e)
	return nil
}

// GetUser returns the user with the given id.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// UpdateProfile changes name and email, and the password when newPassword is not blank.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, name, email, newPassword string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, ErrFieldsMissing
	}

	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Name = name
	u.Email = email
	if strings.TrimSpace(newPassword) != "" {
		hash, err := hashPassword(newPassword)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *AuthService) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "type", e.Type, "error", err)
	}
}
