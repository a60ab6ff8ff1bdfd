// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/and161185/rewear/migrations"
)

// connectAttempts bounds how long start-up waits for the database.
const connectAttempts = 6

// NewProvider returns a goose provider over the embedded migrations.
func NewProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
}

// Up waits for the database and runs all pending migrations.
func Up(ctx context.Context, dsn string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(500*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			log.Warn("database not ready", zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("wait for database: %w", err)
	}

	p, err := NewProvider(db)
	if err != nil {
		return err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied", zap.Int64("version", r.Source.Version), zap.Duration("dur", r.Duration))
	}
	return nil
}
