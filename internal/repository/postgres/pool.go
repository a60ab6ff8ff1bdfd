// Package postgres contains PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/and161185/rewear/internal/errs"
)

// PgxPool is a minimal abstraction over a Postgres connection pool,
// used by repositories. It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	querier
	// BeginTx starts a transaction with the provided options.
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	// Ping checks that a connection can be acquired.
	Ping(ctx context.Context) error
	// Close shuts down the pool and frees resources.
	Close()
}

// querier is what repositories need; satisfied by both the pool and pgx.Tx.
type querier interface {
	// Exec executes a SQL command and returns the command tag.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Query executes a SELECT and returns a rows iterator.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// QueryRow executes a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps pgxpool.Pool to satisfy repository constructors and allow testing.
type DB struct{ Pool PgxPool }

// New creates a new connection pool for the given DSN.
func New(ctx context.Context, dsn string, maxConns, minConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

// Postgres error codes we react to.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"

	pointsConstraint = "users_points_nonnegative"
)

// classify maps driver errors onto the errs taxonomy. Context errors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		switch pg.Code {
		case codeUniqueViolation:
			return errs.ErrAlreadyExists
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", errs.ErrStorageConflict, pg.Code)
		case codeCheckViolation:
			if pg.ConstraintName == pointsConstraint {
				return errs.ErrInsufficientPoints
			}
		}
	}
	return fmt.Errorf("%w: %v", errs.ErrStorage, err)
}

// forUpdate returns the row-lock suffix for reads made inside a transaction.
func forUpdate(lock bool) string {
	if lock {
		return " FOR UPDATE"
	}
	return ""
}

// missingOr reports errs.ErrNotFound if the row does not exist and fallback otherwise.
// Used after a conditional update matched no row.
func missingOr(ctx context.Context, q querier, table string, id any, fallback error) error {
	var exists bool
	sql := "SELECT EXISTS(SELECT 1 FROM " + table + " WHERE id=$1)"
	if err := q.QueryRow(ctx, sql, id).Scan(&exists); err != nil {
		return classify(err)
	}
	if !exists {
		return errs.ErrNotFound
	}
	return fallback
}
