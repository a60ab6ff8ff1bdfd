// Package revocation records access tokens invalidated by logout until they expire.
package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/redis/go-redis/v9"
)

// Store keeps revoked token ids.
type Store interface {
	// Revoke marks jti revoked until the token's own expiry.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	// IsRevoked reports whether jti was revoked and has not expired yet.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const keyPrefix = "rewear:revoked:"

// redisClient is the subset of *redis.Client used here.
type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis stores revocations as keys expiring with the token.
type Redis struct {
	rdb   redisClient
	clock clock.Clock
}

// NewRedis wraps a go-redis client.
func NewRedis(rdb redisClient, clk clock.Clock) *Redis {
	if clk == nil {
		clk = clock.New()
	}
	return &Redis{rdb: rdb, clock: clk}
}

// Revoke stores jti with a TTL equal to the token's remaining lifetime.
func (r *Redis) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, keyPrefix+jti, 1, ttl).Err()
}

// IsRevoked checks for the key.
func (r *Redis) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Memory is a process-local Store used when Redis is not configured.
type Memory struct {
	mu    sync.Mutex
	until map[string]time.Time
	clock clock.Clock
}

// NewMemory constructs an empty in-process store.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.New()
	}
	return &Memory{until: make(map[string]time.Time), clock: clk}
}

func (m *Memory) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expiresAt.After(m.clock.Now()) {
		m.until[jti] = expiresAt
	}
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.until[jti]
	if !ok {
		return false, nil
	}
	if !exp.After(m.clock.Now()) {
		delete(m.until, jti)
		return false, nil
	}
	return true, nil
}
