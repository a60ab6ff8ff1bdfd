package service

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/and161185/rewear/internal/errs"
)

// RetryPolicy bounds automatic re-execution of an atomic unit that failed
// with errs.ErrStorageConflict. Other errors are returned immediately.
type RetryPolicy struct {
	MaxAttempts int           // total attempts; 1 or less disables retries
	BaseDelay   time.Duration // first backoff, doubled per retry
}

// NoRetry surfaces every conflict to the caller.
var NoRetry = RetryPolicy{MaxAttempts: 1}

// DefaultRetryPolicy is used when config does not override it.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}

func (p RetryPolicy) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 1 {
		return fn(ctx)
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.WithMaxRetries(uint64(p.MaxAttempts-1), retry.NewExponential(base))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, errs.ErrStorageConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}
