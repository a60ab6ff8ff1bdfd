package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/repository"
)

func newStore(t *testing.T) (*Store, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Add(1000 * time.Hour)
	return NewStore(New(clk)), clk
}

func seedUser(t *testing.T, s *Store, points int64) *model.User {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	u := &model.User{ID: id, Username: "u-" + id.String()[:8], Email: id.String() + "@x.io", Points: points}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestAtomic_CommitsOnNil(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, 10)

	err := s.Atomic(ctx, func(tx repository.Store) error {
		_, err := tx.Users().AdjustPoints(ctx, u.ID, 5)
		return err
	})
	require.NoError(t, err)

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(15), got.Points)
}

func TestAtomic_DiscardsOnError(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, 10)
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().AdjustPoints(ctx, u.ID, -7); err != nil {
			return err
		}
		require.NoError(t, tx.Transactions().Append(ctx, model.Transaction{ID: uuid.Must(uuid.NewV4()), UserID: u.ID}))
		// visible inside the unit
		inner, err := tx.Users().GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, int64(3), inner.Points)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), got.Points)
	txs, err := s.Transactions().ListByUser(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestAtomic_DiscardsOnPanic(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, 10)

	require.Panics(t, func() {
		_ = s.Atomic(ctx, func(tx repository.Store) error {
			_, _ = tx.Users().AdjustPoints(ctx, u.ID, 100)
			panic("x")
		})
	})
	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), got.Points)
}

func TestAtomic_CanceledContext(t *testing.T) {
	s, _ := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.Atomic(ctx, func(tx repository.Store) error { called = true; return nil })
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestUsers_AdjustPointsNeverNegative(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, 5)

	_, err := s.Users().AdjustPoints(ctx, u.ID, -6)
	require.ErrorIs(t, err, errs.ErrInsufficientPoints)
	bal, err := s.Users().AdjustPoints(ctx, u.ID, -5)
	require.NoError(t, err)
	require.Zero(t, bal)

	_, err = s.Users().AdjustPoints(ctx, uuid.Must(uuid.NewV4()), 1)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUsers_EmailUniqueCaseInsensitive(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Users().Create(ctx, &model.User{ID: uuid.Must(uuid.NewV4()), Email: "a@b.c"}))
	err := s.Users().Create(ctx, &model.User{ID: uuid.Must(uuid.NewV4()), Email: "A@B.C"})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	u, err := s.Users().GetByEmail(ctx, " A@b.C ")
	require.NoError(t, err)
	require.Equal(t, "a@b.c", u.Email)
}

func TestAdmins_ApproveOnce(t *testing.T) {
	s, clk := newStore(t)
	ctx := context.Background()
	a := &model.Admin{ID: uuid.Must(uuid.NewV4()), Email: "a@x.io"}
	b := &model.Admin{ID: uuid.Must(uuid.NewV4()), Email: "b@x.io"}
	require.NoError(t, s.Admins().Create(ctx, a))
	clk.Add(time.Second)
	require.NoError(t, s.Admins().Create(ctx, b))

	pending, err := s.Admins().ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, a.ID, pending[0].ID)

	require.NoError(t, s.Admins().Approve(ctx, b.ID, a.ID))
	require.ErrorIs(t, s.Admins().Approve(ctx, b.ID, a.ID), errs.ErrPreconditionFailed)
	require.ErrorIs(t, s.Admins().Approve(ctx, uuid.Must(uuid.NewV4()), a.ID), errs.ErrNotFound)

	got, err := s.Admins().GetByEmail(ctx, "B@x.io")
	require.NoError(t, err)
	require.True(t, got.Approved)
	require.Equal(t, a.ID, *got.ApprovedBy)
}
