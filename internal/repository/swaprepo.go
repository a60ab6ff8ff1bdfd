package repository

import (
	"context"

	"github.com/and161185/rewear/internal/model"
	"github.com/gofrs/uuid/v5"
)

// SwapRepository provides access to swap proposals.
type SwapRepository interface {
	Create(ctx context.Context, s *model.SwapRequest) error
	// GetByID returns a proposal. Inside Store.Atomic the row stays locked until the unit ends.
	GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error)
	// ListPendingForUser returns pending proposals where the user is either party, newest first.
	ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error)
	// TransitionStatus moves the proposal from -> to only if its current status is from.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.SwapStatus) error
}

// TransactionRepository is the append-only ledger.
type TransactionRepository interface {
	Append(ctx context.Context, txs ...model.Transaction) error
	// ListByUser returns the newest records first, at most limit (0 = all).
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Transaction, error)
	// ListByUserAndType returns the user's records of one type, newest first.
	ListByUserAndType(ctx context.Context, userID uuid.UUID, typ model.TxType) ([]model.Transaction, error)
}
