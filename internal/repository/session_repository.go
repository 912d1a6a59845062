package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionRepository tracks live sessions in Redis. A session exists while
// its key does; Redis TTL enforces expiry.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// Put records a live session for the user with the given TTL.
func (r *SessionRepository) Put(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, sessionKey(sessionID), userID, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Alive reports whether the session has not expired or been revoked.
func (r *SessionRepository) Alive(ctx context.Context, sessionID string) (bool, error) {
	if err := r.client.Get(ctx, sessionKey(sessionID)).Err(); err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("check session: %w", err)
	}
	return true, nil
}

// Revoke terminates a session immediately.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
