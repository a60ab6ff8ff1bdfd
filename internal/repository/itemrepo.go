package repository

import (
	"context"

	"github.com/and161185/rewear/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ItemRepository provides access to listings.
type ItemRepository interface {
	// Create inserts a new listing.
	Create(ctx context.Context, it *model.Item) error

	// GetByID returns a single item. Inside Store.Atomic the row stays locked until the unit ends.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error)

	// ListApproved returns the approved catalogue narrowed by filter.
	ListApproved(ctx context.Context, f model.ItemFilter) ([]model.Item, error)

	// ListByStatus returns items in the given status, oldest first.
	ListByStatus(ctx context.Context, status model.ItemStatus) ([]model.Item, error)

	// ListByUploader returns a user's items, newest first.
	ListByUploader(ctx context.Context, userID uuid.UUID) ([]model.Item, error)

	// TransitionStatus moves the item from -> to only if its current status is from.
	// Returns errs.ErrPreconditionFailed when the status differs, errs.ErrNotFound when missing.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.ItemStatus) error

	// Moderate applies an admin decision to a pending item (conditional on status pending).
	Moderate(ctx context.Context, id uuid.UUID, to model.ItemStatus, adminID uuid.UUID, reason string) error
}
