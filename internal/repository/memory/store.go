// Package memory is an in-process implementation of the repository interfaces.
// It backs tests and single-node development runs.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/andres-erbsen/clock"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/repository"
)

type state struct {
	users       map[uuid.UUID]model.User
	userEmails  map[string]uuid.UUID
	admins      map[uuid.UUID]model.Admin
	adminEmails map[string]uuid.UUID
	items       map[uuid.UUID]model.Item
	itemOrder   []uuid.UUID
	swaps       map[uuid.UUID]model.SwapRequest
	swapOrder   []uuid.UUID
	txs         []model.Transaction
}

func newState() *state {
	return &state{
		users:       make(map[uuid.UUID]model.User),
		userEmails:  make(map[string]uuid.UUID),
		admins:      make(map[uuid.UUID]model.Admin),
		adminEmails: make(map[string]uuid.UUID),
		items:       make(map[uuid.UUID]model.Item),
		swaps:       make(map[uuid.UUID]model.SwapRequest),
	}
}

// clone copies the containers. Stored values are never mutated in place, so
// sharing their slices and pointers with the original is safe.
func (s *state) clone() *state {
	return &state{
		users:       maps.Clone(s.users),
		userEmails:  maps.Clone(s.userEmails),
		admins:      maps.Clone(s.admins),
		adminEmails: maps.Clone(s.adminEmails),
		items:       maps.Clone(s.items),
		itemOrder:   slices.Clone(s.itemOrder),
		swaps:       maps.Clone(s.swaps),
		swapOrder:   slices.Clone(s.swapOrder),
		txs:         slices.Clone(s.txs),
	}
}

// DB owns the committed state. Atomic units are serialized by mu.
type DB struct {
	mu    sync.RWMutex
	st    *state
	clock clock.Clock
}

// New returns an empty database. A nil clock uses wall time.
func New(clk clock.Clock) *DB {
	if clk == nil {
		clk = clock.New()
	}
	return &DB{st: newState(), clock: clk}
}

// Store implements repository.Store over DB.
type Store struct {
	db *DB
	tx *state // non-nil inside Atomic
}

var _ repository.Store = (*Store)(nil)

// NewStore returns a store over db.
func NewStore(db *DB) *Store { return &Store{db: db} }

func (s *Store) Users() repository.UserRepository { return &userRepo{s} }
func (s *Store) Admins() repository.AdminRepository { return &adminRepo{s} }
func (s *Store) Items() repository.ItemRepository { return &itemRepo{s} }
func (s *Store) Swaps() repository.SwapRepository { return &swapRepo{s} }
func (s *Store) Transactions() repository.TransactionRepository { return &txRepo{s} }

// Atomic runs fn against a private copy of the state and publishes the copy
// only when fn returns nil.
func (s *Store) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	work := s.db.st.clone()
	if err := fn(&Store{db: s.db, tx: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.st = work
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.st)
}

func (s *Store) write(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.st)
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }
