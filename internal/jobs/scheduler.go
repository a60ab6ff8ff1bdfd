// Package jobs runs background housekeeping on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger drops limiter rows last touched before a cutoff.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron      *cron.Cron
	purger    Purger
	retention time.Duration
	clock     clock.Clock
	log       *zap.Logger
}

// NewScheduler registers the limiter purge at schedule (standard cron
// syntax or descriptors such as @hourly). Rows idle for longer than
// retention are removed.
func NewScheduler(schedule string, purger Purger, retention time.Duration, loc *time.Location, clk clock.Clock, log *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		purger:    purger,
		retention: retention,
		clock:     clk,
		log:       log.With(zap.String("component", "jobs")),
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.PurgeLimiter(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

// PurgeLimiter removes stale limiter state once.
func (s *Scheduler) PurgeLimiter(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := s.purger.Purge(ctx, s.clock.Now().Add(-s.retention))
	if err != nil {
		s.log.Error("limiter purge failed", zap.Error(err))
		return
	}
	s.log.Debug("limiter purged", zap.Int64("rows", n))
}
