package repository

import "context"

// Store groups the repositories of one backend and provides the atomic unit
// used by settlement operations.
type Store interface {
	Users() UserRepository
	Admins() AdminRepository
	Items() ItemRepository
	Swaps() SwapRepository
	Transactions() TransactionRepository

	// Atomic runs fn against a Store bound to a single unit of work.
	// All writes made through tx commit together when fn returns nil and are
	// discarded otherwise. Calling Atomic on tx runs fn in the same unit.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}
