package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
)

func TestModerateItem(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", 0)
	s := NewModerationService(f.store, zaptest.NewLogger(t))
	ctx := context.Background()
	admin := newID()

	price := int64(7)
	a := f.item(t, alice, model.ListingRedeem, &price, model.ItemPending)
	b := f.item(t, alice, model.ListingSwap, nil, model.ItemPending)

	pending, err := s.ListPendingItems(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = s.ModerateItem(ctx, admin, a.ID, "delete", "")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = s.ModerateItem(ctx, admin, a.ID, ActionReject, "  ")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	got, err := s.ModerateItem(ctx, admin, a.ID, ActionApprove, "ignored")
	require.NoError(t, err)
	require.Equal(t, model.ItemApproved, got.Status)
	require.Equal(t, admin, *got.ApprovedBy)
	require.Empty(t, got.RejectionReason)

	got, err = s.ModerateItem(ctx, admin, b.ID, ActionReject, "blurry photos")
	require.NoError(t, err)
	require.Equal(t, model.ItemRejected, got.Status)
	require.Equal(t, "blurry photos", got.RejectionReason)

	// decisions are final
	_, err = s.ModerateItem(ctx, admin, a.ID, ActionReject, "changed my mind")
	require.ErrorIs(t, err, errs.ErrNotAvailable)
	_, err = s.ModerateItem(ctx, admin, b.ID, ActionApprove, "")
	require.ErrorIs(t, err, errs.ErrNotAvailable)

	_, err = s.ModerateItem(ctx, admin, newID(), ActionApprove, "")
	require.ErrorIs(t, err, errs.ErrNotFound)

	pending, err = s.ListPendingItems(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestListPendingAdmins(t *testing.T) {
	f := newFixture(t)
	s := NewModerationService(f.store, nil)
	ctx := context.Background()

	first := &model.Admin{ID: newID(), Username: "first", Email: "first@rewear.test"}
	require.NoError(t, f.store.Admins().Create(ctx, first))
	f.clock.Add(1)
	second := &model.Admin{ID: newID(), Username: "second", Email: "second@rewear.test"}
	require.NoError(t, f.store.Admins().Create(ctx, second))

	list, err := s.ListPendingAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first.ID, list[0].ID)

	require.NoError(t, f.store.Admins().Approve(ctx, first.ID, first.ID))
	_, err = s.ApproveAdmin(ctx, first.ID, newID())
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = s.ApproveAdmin(ctx, newID(), second.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)

	list, err = s.ListPendingAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, second.ID, list[0].ID)
}
