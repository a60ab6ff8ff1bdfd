package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/rewear/internal/repository"
)

// Store implements repository.Store over a pgx pool. Inside Atomic every
// repository shares one pgx.Tx and locks the rows it reads.
type Store struct {
	db *DB
	q  querier
	tx bool
}

var _ repository.Store = (*Store)(nil)

// NewStore constructs a store over db.
func NewStore(db *DB) *Store { return &Store{db: db, q: db.Pool} }

func (s *Store) Users() repository.UserRepository { return &UserRepo{q: s.q, lock: s.tx} }
func (s *Store) Admins() repository.AdminRepository { return &AdminRepo{q: s.q, lock: s.tx} }
func (s *Store) Items() repository.ItemRepository { return &ItemRepo{q: s.q, lock: s.tx} }
func (s *Store) Swaps() repository.SwapRepository { return &SwapRepo{q: s.q, lock: s.tx} }
func (s *Store) Transactions() repository.TransactionRepository { return &TxRepo{q: s.q} }

// Atomic runs fn in a single database transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
func (s *Store) Atomic(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.tx {
		return fn(s)
	}
	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classify(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = classify(e)
		}
	}()

	return fn(&Store{db: s.db, q: tx, tx: true})
}
