package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter implementation with sliding window and lockout.
type PG struct {
	pool   pgxQuerier
	policy Policy
	clock  clock.Clock
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter. q is usually a *pgxpool.Pool.
func NewPG(q pgxQuerier, p Policy, clk clock.Clock) *PG {
	if clk == nil {
		clk = clock.New()
	}
	return &PG{pool: q, policy: p, clock: clk}
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until, updated_at FROM auth_limiter WHERE email=$1 AND ip_hash=$2`
	var blockedUntil, updatedAt time.Time
	err := l.pool.QueryRow(ctx, q, NormalizeEmail(email), ipHash).Scan(&blockedUntil, &updatedAt)
	switch {
	case err == nil:
		if now := l.clock.Now(); blockedUntil.After(now) {
			return false, blockedUntil.Sub(now), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for (email, ip).
func (l *PG) Success(ctx context.Context, email string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (email, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,0,'epoch',$3)
ON CONFLICT (email, ip_hash)
DO UPDATE SET fail_count=0, blocked_until='epoch', updated_at=$3`
	_, err := l.pool.Exec(ctx, q, NormalizeEmail(email), ipHash, l.clock.Now())
	return err
}

// Failure records a failed attempt; may set a block until a future time.
func (l *PG) Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	now := l.clock.Now()
	key := NormalizeEmail(email)

	const q = `
INSERT INTO auth_limiter (email, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,1,'epoch',$4)
ON CONFLICT (email, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN $4::timestamptz - auth_limiter.updated_at > $3::interval THEN 1 ELSE auth_limiter.fail_count + 1 END,
  updated_at = $4
RETURNING fail_count`
	var fails int
	if err := l.pool.QueryRow(ctx, q, key, ipHash, l.policy.Window, now).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.policy.MaxFails {
		return false, 0, nil
	}
	const upd = `UPDATE auth_limiter SET blocked_until=$3 WHERE email=$1 AND ip_hash=$2`
	if _, err := l.pool.Exec(ctx, upd, key, ipHash, now.Add(l.policy.BlockFor)); err != nil {
		return false, 0, err
	}
	return true, l.policy.BlockFor, nil
}

// Purge deletes stale rows whose block has expired.
func (l *PG) Purge(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM auth_limiter WHERE updated_at < $1 AND blocked_until < $2`
	tag, err := l.pool.Exec(ctx, q, before, l.clock.Now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
