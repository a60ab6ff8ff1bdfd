package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/repository"
)

func newSettlement(t *testing.T, store repository.Store, p RetryPolicy) *SettlementServiceImpl {
	t.Helper()
	return NewSettlementService(store, p, time.UTC, zaptest.NewLogger(t))
}

func TestRedeem_TransfersPointsAndRecordsLedger(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 200)
	b := f.user(t, "bob", 10)
	x := f.redeemItem(t, b, 50)
	s := newSettlement(t, f.store, NoRetry)

	res, err := s.Redeem(context.Background(), x.ID, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(150), res.NewBalance)
	require.Equal(t, int64(150), f.points(t, a.ID))
	require.Equal(t, int64(60), f.points(t, b.ID))
	require.Equal(t, model.ItemRedeemed, f.status(t, x.ID))

	la := f.ledger(t, a.ID)
	require.Len(t, la, 1)
	require.Equal(t, model.TxRedeemItem, la[0].Type)
	require.Equal(t, int64(-50), la[0].PointsChange)
	require.Equal(t, x.ID, la[0].RelatedItems[0])
	require.Equal(t, b.ID, la[0].RelatedUsers[0])

	lb := f.ledger(t, b.ID)
	require.Len(t, lb, 1)
	require.Equal(t, model.TxListingBonus, lb[0].Type)
	require.Equal(t, int64(50), lb[0].PointsChange)
	require.Equal(t, a.ID, lb[0].RelatedUsers[0])
}

func TestRedeem_InsufficientPointsLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 10)
	b := f.user(t, "bob", 0)
	y := f.redeemItem(t, b, 50)
	s := newSettlement(t, f.store, NoRetry)

	_, err := s.Redeem(context.Background(), y.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrInsufficientPoints)
	require.Equal(t, int64(10), f.points(t, a.ID))
	require.Equal(t, int64(0), f.points(t, b.ID))
	require.Equal(t, model.ItemApproved, f.status(t, y.ID))
	require.Empty(t, f.ledger(t, a.ID))
	require.Empty(t, f.ledger(t, b.ID))
}

func TestRedeem_PreconditionOrder(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 0)
	b := f.user(t, "bob", 100)
	s := newSettlement(t, f.store, NoRetry)
	ctx := context.Background()
	price := int64(5)

	_, err := s.Redeem(ctx, newID(), a.ID)
	require.ErrorIs(t, err, errs.ErrNotAvailable, "missing item")

	pending := f.item(t, b, model.ListingRedeem, &price, model.ItemPending)
	_, err = s.Redeem(ctx, pending.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrNotAvailable, "pending item")

	swap := f.swapItem(t, b)
	_, err = s.Redeem(ctx, swap.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrNotAvailable, "swap listing")

	// own listing beats insufficient points
	own := f.redeemItem(t, a, 500)
	_, err = s.Redeem(ctx, own.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrSelfRedemptionForbidden)

	x := f.redeemItem(t, a, 10)
	_, err = s.Redeem(ctx, x.ID, b.ID)
	require.NoError(t, err)
	_, err = s.Redeem(ctx, x.ID, b.ID)
	require.ErrorIs(t, err, errs.ErrNotAvailable, "already redeemed")
}

func TestRedeem_ExactBalanceReachesZero(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 50)
	b := f.user(t, "bob", 0)
	x := f.redeemItem(t, b, 50)

	res, err := newSettlement(t, f.store, NoRetry).Redeem(context.Background(), x.ID, a.ID)
	require.NoError(t, err)
	require.Zero(t, res.NewBalance)
}

func TestRedeem_FailureAfterDebitRollsBack(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 100)
	b := f.user(t, "bob", 0)
	x := f.redeemItem(t, b, 40)
	boom := errors.New("injected")
	s := newSettlement(t, &faultyStore{Store: f.store, transitionErr: boom}, NoRetry)

	_, err := s.Redeem(context.Background(), x.ID, a.ID)
	require.ErrorIs(t, err, boom)
	require.Equal(t, int64(100), f.points(t, a.ID))
	require.Equal(t, int64(0), f.points(t, b.ID))
	require.Equal(t, model.ItemApproved, f.status(t, x.ID))
	require.Empty(t, f.ledger(t, a.ID))
	require.Empty(t, f.ledger(t, b.ID))
}

func TestRedeem_ConcurrentSameItemOneWinner(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner", 0)
	x := f.redeemItem(t, owner, 7)
	s := newSettlement(t, f.store, NoRetry)

	const n = 16
	buyers := make([]*model.User, n)
	for i := range buyers {
		buyers[i] = f.user(t, "buyer"+string(rune('a'+i)), 100)
	}

	var wins, lost atomic.Int32
	var g errgroup.Group
	for _, u := range buyers {
		g.Go(func() error {
			_, err := s.Redeem(context.Background(), x.ID, u.ID)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, errs.ErrNotAvailable):
				lost.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(n-1), lost.Load())
	require.Equal(t, int64(7), f.points(t, owner.ID))

	var total int64
	for _, u := range buyers {
		total += f.points(t, u.ID)
	}
	require.Equal(t, int64(n*100-7), total)
}

func TestRedeem_ConcurrentSameBuyerNeverNegative(t *testing.T) {
	f := newFixture(t)
	buyer := f.user(t, "buyer", 30)
	owner := f.user(t, "owner", 0)
	s := newSettlement(t, f.store, NoRetry)

	const n = 10
	var g errgroup.Group
	var wins atomic.Int32
	for range n {
		it := f.redeemItem(t, owner, 10)
		g.Go(func() error {
			_, err := s.Redeem(context.Background(), it.ID, buyer.ID)
			if err == nil {
				wins.Add(1)
				return nil
			}
			if errors.Is(err, errs.ErrInsufficientPoints) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int32(3), wins.Load())
	require.Zero(t, f.points(t, buyer.ID))
	// conservation
	require.Equal(t, int64(30), f.points(t, owner.ID))
}

func TestProposeSwap_Validation(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 0)
	b := f.user(t, "bob", 0)
	s := newSettlement(t, f.store, NoRetry)
	ctx := context.Background()

	p := f.swapItem(t, a)
	q := f.swapItem(t, b)
	redeemQ := f.redeemItem(t, b, 5)
	pendingP := f.item(t, a, model.ListingSwap, nil, model.ItemPending)
	otherA := f.swapItem(t, a)

	_, err := s.ProposeSwap(ctx, newID(), p.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = s.ProposeSwap(ctx, q.ID, newID(), a.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = s.ProposeSwap(ctx, redeemQ.ID, p.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrNotAvailable)
	_, err = s.ProposeSwap(ctx, q.ID, pendingP.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrNotAvailable)
	_, err = s.ProposeSwap(ctx, q.ID, q.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrNotAvailable, "offered item not owned")
	_, err = s.ProposeSwap(ctx, otherA.ID, p.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrSelfSwapForbidden)

	sr, err := s.ProposeSwap(ctx, q.ID, p.ID, a.ID)
	require.NoError(t, err)
	require.Equal(t, model.SwapPending, sr.Status)
	require.Equal(t, b.ID, sr.Receiver.UserID)
	require.Equal(t, a.ID, sr.Requester.UserID)
	require.Equal(t, model.ItemApproved, f.status(t, p.ID))
	require.Equal(t, model.ItemApproved, f.status(t, q.ID))
}

func TestRespondToSwap_Accept(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 10)
	b := f.user(t, "bob", 10)
	p := f.swapItem(t, a)
	q := f.swapItem(t, b)
	s := newSettlement(t, f.store, NoRetry)
	ctx := context.Background()

	sr, err := s.ProposeSwap(ctx, q.ID, p.ID, a.ID)
	require.NoError(t, err)

	got, err := s.RespondToSwap(ctx, sr.ID, b.ID, model.DecisionAccepted)
	require.NoError(t, err)
	require.Equal(t, model.SwapAccepted, got.Status)
	require.Equal(t, model.ItemSwapped, f.status(t, p.ID))
	require.Equal(t, model.ItemSwapped, f.status(t, q.ID))

	for _, u := range []*model.User{a, b} {
		l := f.ledger(t, u.ID)
		require.Len(t, l, 1)
		require.Equal(t, model.TxSwapItem, l[0].Type)
		require.Zero(t, l[0].PointsChange)
		require.ElementsMatch(t, []any{p.ID, q.ID}, []any{l[0].RelatedItems[0], l[0].RelatedItems[1]})
		require.Equal(t, int64(10), f.points(t, u.ID))
	}
	require.Equal(t, b.ID, f.ledger(t, a.ID)[0].RelatedUsers[0])

	stored, err := f.store.Swaps().GetByID(ctx, sr.ID)
	require.NoError(t, err)
	require.Equal(t, model.SwapAccepted, stored.Status)
}

func TestRespondToSwap_Errors(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 0)
	b := f.user(t, "bob", 0)
	c := f.user(t, "carol", 0)
	s := newSettlement(t, f.store, NoRetry)
	ctx := context.Background()

	sr, err := s.ProposeSwap(ctx, f.swapItem(t, b).ID, f.swapItem(t, a).ID, a.ID)
	require.NoError(t, err)

	_, err = s.RespondToSwap(ctx, newID(), b.ID, model.DecisionAccepted)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = s.RespondToSwap(ctx, sr.ID, c.ID, model.DecisionAccepted)
	require.ErrorIs(t, err, errs.ErrNotFound, "outsider")
	_, err = s.RespondToSwap(ctx, sr.ID, a.ID, model.DecisionAccepted)
	require.ErrorIs(t, err, errs.ErrNotFound, "requester cannot answer")
	_, err = s.RespondToSwap(ctx, sr.ID, b.ID, "maybe")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	got, err := s.RespondToSwap(ctx, sr.ID, b.ID, model.DecisionRejected)
	require.NoError(t, err)
	require.Equal(t, model.SwapRejected, got.Status)
	require.Empty(t, f.ledger(t, a.ID))

	_, err = s.RespondToSwap(ctx, sr.ID, b.ID, model.DecisionAccepted)
	require.ErrorIs(t, err, errs.ErrNotAvailable)
}

func TestRespondToSwap_SecondAcceptanceLoses(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 0)
	b := f.user(t, "bob", 0)
	c := f.user(t, "carol", 0)
	q := f.swapItem(t, b)
	s := newSettlement(t, f.store, NoRetry)
	ctx := context.Background()

	first, err := s.ProposeSwap(ctx, q.ID, f.swapItem(t, a).ID, a.ID)
	require.NoError(t, err)
	second, err := s.ProposeSwap(ctx, q.ID, f.swapItem(t, c).ID, c.ID)
	require.NoError(t, err)

	_, err = s.RespondToSwap(ctx, first.ID, b.ID, model.DecisionAccepted)
	require.NoError(t, err)
	_, err = s.RespondToSwap(ctx, second.ID, b.ID, model.DecisionAccepted)
	require.ErrorIs(t, err, errs.ErrItemsNoLongerAvailable)

	// the losing request stays pending and c's item is untouched
	stored, err := f.store.Swaps().GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, model.SwapPending, stored.Status)
	require.Equal(t, model.ItemApproved, f.status(t, second.Requester.ItemID))
	require.Empty(t, f.ledger(t, c.ID))
}

func TestRespondToSwap_ConcurrentAcceptancesSharingItem(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 0)
	b := f.user(t, "bob", 0)
	d := f.user(t, "dave", 0)
	q := f.swapItem(t, b)
	s := newSettlement(t, f.store, NoRetry)
	ctx := context.Background()

	// b receives an offer for q and also offers q to d
	toB, err := s.ProposeSwap(ctx, q.ID, f.swapItem(t, a).ID, a.ID)
	require.NoError(t, err)
	toD, err := s.ProposeSwap(ctx, f.swapItem(t, d).ID, q.ID, b.ID)
	require.NoError(t, err)

	errsCh := make(chan error, 2)
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.RespondToSwap(ctx, toB.ID, b.ID, model.DecisionAccepted)
		errsCh <- err
		return nil
	})
	g.Go(func() error {
		_, err := s.RespondToSwap(ctx, toD.ID, d.ID, model.DecisionAccepted)
		errsCh <- err
		return nil
	})
	require.NoError(t, g.Wait())
	close(errsCh)

	var ok, lost int
	for err := range errsCh {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errs.ErrItemsNoLongerAvailable):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, lost)
	require.Equal(t, model.ItemSwapped, f.status(t, q.ID))
}

func TestCancelSwap(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 0)
	b := f.user(t, "bob", 0)
	s := newSettlement(t, f.store, NoRetry)
	ctx := context.Background()

	sr, err := s.ProposeSwap(ctx, f.swapItem(t, b).ID, f.swapItem(t, a).ID, a.ID)
	require.NoError(t, err)

	_, err = s.CancelSwap(ctx, sr.ID, b.ID)
	require.ErrorIs(t, err, errs.ErrNotFound, "only the requester may cancel")

	got, err := s.CancelSwap(ctx, sr.ID, a.ID)
	require.NoError(t, err)
	require.Equal(t, model.SwapCancelled, got.Status)

	_, err = s.CancelSwap(ctx, sr.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrNotAvailable)
	_, err = s.RespondToSwap(ctx, sr.ID, b.ID, model.DecisionAccepted)
	require.ErrorIs(t, err, errs.ErrNotAvailable)
}

func TestAwardDailyBonus_OncePerDay(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice", 10)
	s := newSettlement(t, f.store, NoRetry)
	ctx := context.Background()
	morning := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	got, err := s.AwardDailyBonus(ctx, u.ID, morning)
	require.NoError(t, err)
	require.True(t, got.Awarded, "first login ever")
	require.Equal(t, int64(11), got.Points)

	got, err = s.AwardDailyBonus(ctx, u.ID, morning.Add(10*time.Hour))
	require.NoError(t, err)
	require.False(t, got.Awarded)
	require.Equal(t, int64(11), got.Points)

	got, err = s.AwardDailyBonus(ctx, u.ID, morning.Add(16*time.Hour))
	require.NoError(t, err)
	require.True(t, got.Awarded, "next calendar day")
	require.Equal(t, int64(12), f.points(t, u.ID))

	stored, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, stored.LastLogin.Equal(morning.Add(16*time.Hour)))

	bonus, err := f.store.Transactions().ListByUserAndType(ctx, u.ID, model.TxDailyLoginPoints)
	require.NoError(t, err)
	require.Len(t, bonus, 2)
}

func TestAwardDailyBonus_ConcurrentLoginsSameDay(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice", 0)
	s := newSettlement(t, f.store, NoRetry)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			_, err := s.AwardDailyBonus(context.Background(), u.ID, now)
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int64(1), f.points(t, u.ID))
}

func TestAwardDailyBonus_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := newSettlement(t, f.store, NoRetry).AwardDailyBonus(context.Background(), newID(), time.Now())
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRetryPolicy_NoRetrySurfacesConflict(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 100)
	b := f.user(t, "bob", 0)
	x := f.redeemItem(t, b, 10)
	cs := &conflictStore{Store: f.store, n: 1, err: errs.ErrStorageConflict}

	_, err := newSettlement(t, cs, NoRetry).Redeem(context.Background(), x.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrStorageConflict)
	require.Equal(t, 1, cs.calls)
	require.Equal(t, int64(100), f.points(t, a.ID))
}

func TestRetryPolicy_BoundedRetrySucceeds(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 100)
	b := f.user(t, "bob", 0)
	x := f.redeemItem(t, b, 10)
	cs := &conflictStore{Store: f.store, n: 2, err: errs.ErrStorageConflict}
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	res, err := newSettlement(t, cs, p).Redeem(context.Background(), x.ID, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(90), res.NewBalance)
	require.Equal(t, 3, cs.calls)
}

func TestRetryPolicy_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 100)
	b := f.user(t, "bob", 0)
	x := f.redeemItem(t, b, 10)
	cs := &conflictStore{Store: f.store, n: 10, err: errs.ErrStorageConflict}
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	_, err := newSettlement(t, cs, p).Redeem(context.Background(), x.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrStorageConflict)
	require.Equal(t, 3, cs.calls)
}

func TestRetryPolicy_FatalErrorsAreNotRetried(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", 100)
	b := f.user(t, "bob", 0)
	x := f.redeemItem(t, b, 10)
	cs := &conflictStore{Store: f.store, n: 1, err: errs.ErrStorage}
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	_, err := newSettlement(t, cs, p).Redeem(context.Background(), x.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrStorage)
	require.Equal(t, 1, cs.calls)
}
