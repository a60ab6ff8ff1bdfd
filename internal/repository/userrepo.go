// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/rewear/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to user accounts and their point balances.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID. Inside Store.Atomic the row stays locked until the unit ends.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// AdjustPoints adds delta to the balance and returns the new balance.
	// A debit that would make the balance negative fails with errs.ErrInsufficientPoints.
	AdjustPoints(ctx context.Context, id uuid.UUID, delta int64) (int64, error)
	// SetLastLogin records the login timestamp.
	SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AdminRepository provides access to moderator accounts.
type AdminRepository interface {
	Create(ctx context.Context, a *model.Admin) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error)
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	// ListPending returns admins awaiting approval, oldest first.
	ListPending(ctx context.Context) ([]model.Admin, error)
	// Approve marks an unapproved admin approved; errs.ErrPreconditionFailed if already approved.
	Approve(ctx context.Context, id, approverID uuid.UUID) error
}
