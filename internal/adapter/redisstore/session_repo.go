// Package redisstore implements the session repository on Redis. Keys expire on
// their own, so DeleteExpired has nothing to do.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brunod-e/daily-diet-api/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// NewClient creates and pings a Redis client with optional password auth.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// SessionRepo stores sessions as JSON values keyed by token digest.
type SessionRepo struct {
	rdb *redis.Client
	now func() time.Time
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

// NewSessionRepo wraps a Redis client as a SessionRepository.
func NewSessionRepo(rdb *redis.Client) *SessionRepo {
	return &SessionRepo{rdb: rdb, now: time.Now}
}

type record struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Create stores a session with a TTL matching its expiry.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(record{UserID: s.UserID.String(), ExpiresAt: s.ExpiresAt, CreatedAt: s.CreatedAt})
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, keyPrefix+s.TokenHash, b, ttl).Err()
}

// GetByToken returns the session for tokenHash, or nil if missing or expired.
func (r *SessionRepo) GetByToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	b, err := r.rdb.Get(ctx, keyPrefix+tokenHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	return decode(tokenHash, b)
}

// Delete removes a session.
func (r *SessionRepo) Delete(ctx context.Context, tokenHash string) error {
	return r.rdb.Del(ctx, keyPrefix+tokenHash).Err()
}

// DeleteExpired is a no-op; Redis evicts expired keys itself.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	return nil
}
