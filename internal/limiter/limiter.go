// Package limiter throttles login attempts per account and client address.
package limiter

import (
	"context"
	"crypto/sha256"
	"strings"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether login is currently allowed and optional retry-after.
	Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, email string, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
	// Purge drops entries untouched since before and not blocked. Returns the number removed.
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Policy is the sliding window and lockout configuration.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// DefaultPolicy allows five failures per quarter hour, then locks for a quarter hour.
var DefaultPolicy = Policy{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

// NormalizeEmail lowercases and trims the account key.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
