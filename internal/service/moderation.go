package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/repository"
)

// ModerationAction is an admin verdict on a pending listing.
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
)

// ModerationService defines admin operations.
type ModerationService interface {
	ListPendingItems(ctx context.Context) ([]model.Item, error)
	// ModerateItem approves or rejects a pending listing. Rejection needs a reason.
	ModerateItem(ctx context.Context, adminID, itemID uuid.UUID, action ModerationAction, reason string) (*model.Item, error)
	ListPendingAdmins(ctx context.Context) ([]model.Admin, error)
	// ApproveAdmin lets an approved admin approve another admin account.
	ApproveAdmin(ctx context.Context, approverID, adminID uuid.UUID) (*model.Admin, error)
}

type ModerationServiceImpl struct {
	store repository.Store
	log   *zap.Logger
}

var _ ModerationService = (*ModerationServiceImpl)(nil)

// NewModerationService constructs ModerationService.
func NewModerationService(store repository.Store, log *zap.Logger) *ModerationServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModerationServiceImpl{store: store, log: log.With(zap.String("component", "moderation"))}
}

func (s *ModerationServiceImpl) ListPendingItems(ctx context.Context) ([]model.Item, error) {
	return s.store.Items().ListByStatus(ctx, model.ItemPending)
}

func (s *ModerationServiceImpl) ModerateItem(ctx context.Context, adminID, itemID uuid.UUID, action ModerationAction, reason string) (*model.Item, error) {
	var to model.ItemStatus
	reason = strings.TrimSpace(reason)
	switch action {
	case ActionApprove:
		to, reason = model.ItemApproved, ""
	case ActionReject:
		if reason == "" {
			return nil, fmt.Errorf("%w: rejection reason is required", errs.ErrInvalidArgument)
		}
		to = model.ItemRejected
	default:
		return nil, fmt.Errorf("%w: action must be approve or reject", errs.ErrInvalidArgument)
	}

	var out *model.Item
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		it, err := tx.Items().GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if !model.CanTransition(it.Status, to, it.ListingType) {
			return errs.ErrNotAvailable
		}
		err = tx.Items().Moderate(ctx, itemID, to, adminID, reason)
		if errors.Is(err, errs.ErrPreconditionFailed) {
			return errs.ErrNotAvailable
		}
		if err != nil {
			return err
		}
		out, err = tx.Items().GetByID(ctx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("item moderated", zap.Stringer("item_id", itemID), zap.Stringer("admin_id", adminID), zap.String("status", string(to)))
	return out, nil
}

func (s *ModerationServiceImpl) ListPendingAdmins(ctx context.Context) ([]model.Admin, error) {
	return s.store.Admins().ListPending(ctx)
}

func (s *ModerationServiceImpl) ApproveAdmin(ctx context.Context, approverID, adminID uuid.UUID) (*model.Admin, error) {
	var out *model.Admin
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		approver, err := tx.Admins().GetByID(ctx, approverID)
		if errors.Is(err, errs.ErrNotFound) || (err == nil && !approver.Approved) {
			return errs.ErrForbidden
		}
		if err != nil {
			return err
		}
		err = tx.Admins().Approve(ctx, adminID, approverID)
		if errors.Is(err, errs.ErrPreconditionFailed) {
			return errs.ErrNotAvailable
		}
		if err != nil {
			return err
		}
		out, err = tx.Admins().GetByID(ctx, adminID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("admin approved", zap.Stringer("admin_id", adminID), zap.Stringer("approver_id", approverID))
	return out, nil
}
