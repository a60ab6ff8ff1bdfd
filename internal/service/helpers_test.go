package service

import (
	"context"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/repository"
	"github.com/and161185/rewear/internal/repository/memory"
)

type fixture struct {
	store *memory.Store
	clock *clock.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMock()
	// 2025-03-10 09:00 UTC
	clk.Add(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC).Sub(clk.Now()))
	return &fixture{store: memory.NewStore(memory.New(clk)), clock: clk}
}

func (f *fixture) user(t *testing.T, name string, points int64) *model.User {
	t.Helper()
	u := &model.User{ID: newID(), Username: name, Email: name + "@rewear.test", Points: points}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) redeemItem(t *testing.T, owner *model.User, price int64) *model.Item {
	t.Helper()
	return f.item(t, owner, model.ListingRedeem, &price, model.ItemApproved)
}

func (f *fixture) swapItem(t *testing.T, owner *model.User) *model.Item {
	t.Helper()
	return f.item(t, owner, model.ListingSwap, nil, model.ItemApproved)
}

func (f *fixture) item(t *testing.T, owner *model.User, lt model.ListingType, price *int64, st model.ItemStatus) *model.Item {
	t.Helper()
	it := &model.Item{
		ID:          newID(),
		Name:        "item-" + owner.Username,
		Description: "d",
		Category:    model.Category{Main: "Men"},
		Images:      []string{"https://img.rewear.test/a.png"},
		Uploader:    model.Uploader{UserID: owner.ID, Username: owner.Username},
		ListingType: lt,
		PointsValue: price,
		Status:      st,
	}
	require.NoError(t, f.store.Items().Create(context.Background(), it))
	return it
}

func (f *fixture) points(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u.Points
}

func (f *fixture) status(t *testing.T, id uuid.UUID) model.ItemStatus {
	t.Helper()
	it, err := f.store.Items().GetByID(context.Background(), id)
	require.NoError(t, err)
	return it.Status
}

func (f *fixture) ledger(t *testing.T, id uuid.UUID) []model.Transaction {
	t.Helper()
	txs, err := f.store.Transactions().ListByUser(context.Background(), id, 0)
	require.NoError(t, err)
	return txs
}

// faultyStore injects errors into item transitions, including inside Atomic.
type faultyStore struct {
	repository.Store
	transitionErr error
}

func (f *faultyStore) Items() repository.ItemRepository {
	return faultyItems{ItemRepository: f.Store.Items(), err: f.transitionErr}
}

func (f *faultyStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.Atomic(ctx, func(tx repository.Store) error {
		return fn(&faultyStore{Store: tx, transitionErr: f.transitionErr})
	})
}

type faultyItems struct {
	repository.ItemRepository
	err error
}

func (f faultyItems) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.ItemStatus) error {
	if f.err != nil {
		return f.err
	}
	return f.ItemRepository.TransitionStatus(ctx, id, from, to)
}

// conflictStore fails the first n atomic units with the given error.
type conflictStore struct {
	repository.Store
	n     int
	err   error
	calls int
}

func (c *conflictStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	c.calls++
	if c.calls <= c.n {
		return c.err
	}
	return c.Store.Atomic(ctx, fn)
}
