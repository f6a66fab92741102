package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_sessions:"
)

// RedisStore keeps sessions in Redis hashes that expire on their own.
// A per-user set indexes the tokens so all sessions of a user can be dropped.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns a session store backed by rdb.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func sessionKey(token string) string { return sessionKeyPrefix + token }

func userSessionsKey(userID int64) string {
	return userSessionKeyPrefix + strconv.FormatInt(userID, 10)
}

// CreateSession stores a new session.
func (s *RedisStore) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}
	now := time.Now().UTC()
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, sessionKey(token),
		"user_id", userID,
		"last_activity", now.Unix(),
		"expires_at", expiresAt.UTC().Unix(),
	)
	pipe.Expire(ctx, sessionKey(token), ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), token)
	_, err := pipe.Exec(ctx)
	return err
}

// LookupSession returns the session bound to token.
func (s *RedisStore) LookupSession(ctx context.Context, token string) (*SessionInfo, error) {
	vals, err := s.rdb.HGetAll(ctx, sessionKey(token)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrSessionNotFound
	}
	userID, err := strconv.ParseInt(vals["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}
	lastActivity, err := strconv.ParseInt(vals["last_activity"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last_activity: %w", err)
	}
	expiresAt, err := strconv.ParseInt(vals["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return &SessionInfo{
		Token:        token,
		UserID:       userID,
		LastActivity: time.Unix(lastActivity, 0).UTC(),
		ExpiresAt:    time.Unix(expiresAt, 0).UTC(),
	}, nil
}

// RenewSession moves the expiry of an existing session.
func (s *RedisStore) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	n, err := s.rdb.Exists(ctx, sessionKey(token)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, sessionKey(token),
		"last_activity", time.Now().UTC().Unix(),
		"expires_at", expiresAt.UTC().Unix(),
	)
	pipe.Expire(ctx, sessionKey(token), time.Until(expiresAt))
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteSession removes a session. Unknown tokens are ignored.
func (s *RedisStore) DeleteSession(ctx context.Context, token string) error {
	userID, err := s.rdb.HGet(ctx, sessionKey(token), "user_id").Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	if err == nil {
		pipe.SRem(ctx, userSessionsKey(userID), token)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteUserSessions removes every session of the user.
func (s *RedisStore) DeleteUserSessions(ctx context.Context, userID int64) error {
	tokens, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(t))
	}
	keys = append(keys, userSessionsKey(userID))
	return s.rdb.Del(ctx, keys...).Err()
}

// CleanExpiredSessions is a no-op: Redis expires session keys itself.
func (s *RedisStore) CleanExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}
