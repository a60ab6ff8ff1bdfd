package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/repository"
)

// DailyBonusPoints is credited on the first login of a calendar day.
const DailyBonusPoints = 1

// RedeemResult is returned by a successful redemption.
type RedeemResult struct {
	NewBalance int64
}

// DailyBonus reports the outcome of AwardDailyBonus.
type DailyBonus struct {
	Awarded bool
	Points  int64 // balance after the award
}

// SettlementService moves points and item ownership between users.
// Every mutating call is all-or-nothing.
type SettlementService interface {
	// Redeem buys an approved redeem listing with points.
	Redeem(ctx context.Context, itemID, userID uuid.UUID) (RedeemResult, error)
	// ProposeSwap offers requesterItemID in exchange for receiverItemID.
	ProposeSwap(ctx context.Context, receiverItemID, requesterItemID, requesterID uuid.UUID) (*model.SwapRequest, error)
	// RespondToSwap accepts or rejects a pending proposal addressed to receiverID.
	RespondToSwap(ctx context.Context, swapID, receiverID uuid.UUID, decision model.SwapDecision) (*model.SwapRequest, error)
	// CancelSwap withdraws a pending proposal made by requesterID.
	CancelSwap(ctx context.Context, swapID, requesterID uuid.UUID) (*model.SwapRequest, error)
	// AwardDailyBonus records a login at now and credits the daily bonus once per calendar day.
	AwardDailyBonus(ctx context.Context, userID uuid.UUID, now time.Time) (DailyBonus, error)
}

type SettlementServiceImpl struct {
	store repository.Store
	retry RetryPolicy
	loc   *time.Location
	log   *zap.Logger
}

var _ SettlementService = (*SettlementServiceImpl)(nil)

// NewSettlementService constructs the settlement engine. loc decides calendar days for the bonus.
func NewSettlementService(store repository.Store, policy RetryPolicy, loc *time.Location, log *zap.Logger) *SettlementServiceImpl {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SettlementServiceImpl{store: store, retry: policy, loc: loc, log: log.With(zap.String("component", "settlement"))}
}

// atomic runs fn as one unit of work under the retry policy.
func (s *SettlementServiceImpl) atomic(ctx context.Context, op string, fn func(tx repository.Store) error) error {
	attempt := 0
	return s.retry.do(ctx, func(ctx context.Context) error {
		attempt++
		err := s.store.Atomic(ctx, fn)
		if errors.Is(err, errs.ErrStorageConflict) {
			s.log.Warn("storage conflict", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
}

// Redeem validates the listing, then debits the redeemer, credits the owner,
// marks the item redeemed and writes both ledger records in one unit.
func (s *SettlementServiceImpl) Redeem(ctx context.Context, itemID, userID uuid.UUID) (RedeemResult, error) {
	var res RedeemResult
	err := s.atomic(ctx, "redeem", func(tx repository.Store) error {
		item, err := tx.Items().GetByID(ctx, itemID)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			return errs.ErrNotAvailable
		case err != nil:
			return err
		}
		if item.Status != model.ItemApproved || item.ListingType != model.ListingRedeem {
			return errs.ErrNotAvailable
		}
		ownerID := item.Uploader.UserID
		if ownerID == userID {
			return errs.ErrSelfRedemptionForbidden
		}
		price := item.Price()

		// Balance rows are touched in id order so crossing redemptions lock consistently.
		if userID.String() < ownerID.String() {
			if res.NewBalance, err = tx.Users().AdjustPoints(ctx, userID, -price); err != nil {
				return err
			}
			if _, err = tx.Users().AdjustPoints(ctx, ownerID, price); err != nil {
				return err
			}
		} else {
			if _, err = tx.Users().AdjustPoints(ctx, ownerID, price); err != nil {
				return err
			}
			if res.NewBalance, err = tx.Users().AdjustPoints(ctx, userID, -price); err != nil {
				return err
			}
		}

		err = tx.Items().TransitionStatus(ctx, itemID, model.ItemApproved, model.ItemRedeemed)
		if errors.Is(err, errs.ErrPreconditionFailed) || errors.Is(err, errs.ErrNotFound) {
			return errs.ErrNotAvailable
		}
		if err != nil {
			return err
		}

		return tx.Transactions().Append(ctx,
			model.Transaction{
				ID:           newID(),
				UserID:       userID,
				Type:         model.TxRedeemItem,
				Description:  fmt.Sprintf("Redeemed item: %s", item.Name),
				PointsChange: -price,
				RelatedItems: []uuid.UUID{itemID},
				RelatedUsers: []uuid.UUID{ownerID},
			},
			model.Transaction{
				ID:           newID(),
				UserID:       ownerID,
				Type:         model.TxListingBonus,
				Description:  fmt.Sprintf("Item redeemed: %s", item.Name),
				PointsChange: price,
				RelatedItems: []uuid.UUID{itemID},
				RelatedUsers: []uuid.UUID{userID},
			},
		)
	})
	if err != nil {
		return RedeemResult{}, err
	}
	s.log.Info("item redeemed", zap.Stringer("item_id", itemID), zap.Stringer("user_id", userID), zap.Int64("balance", res.NewBalance))
	return res, nil
}

// ProposeSwap creates a pending proposal. Items stay approved and open to other offers.
func (s *SettlementServiceImpl) ProposeSwap(ctx context.Context, receiverItemID, requesterItemID, requesterID uuid.UUID) (*model.SwapRequest, error) {
	wanted, err := s.store.Items().GetByID(ctx, receiverItemID)
	if err != nil {
		return nil, err
	}
	if wanted.Status != model.ItemApproved || wanted.ListingType != model.ListingSwap {
		return nil, errs.ErrNotAvailable
	}
	offered, err := s.store.Items().GetByID(ctx, requesterItemID)
	if err != nil {
		return nil, err
	}
	if offered.Status != model.ItemApproved || offered.ListingType != model.ListingSwap || offered.Uploader.UserID != requesterID {
		return nil, errs.ErrNotAvailable
	}
	if wanted.Uploader.UserID == requesterID {
		return nil, errs.ErrSelfSwapForbidden
	}

	sr := &model.SwapRequest{
		ID:        newID(),
		Requester: model.SwapParty{UserID: requesterID, ItemID: requesterItemID},
		Receiver:  model.SwapParty{UserID: wanted.Uploader.UserID, ItemID: receiverItemID},
		Status:    model.SwapPending,
	}
	if err := s.store.Swaps().Create(ctx, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

// RespondToSwap settles or rejects a proposal. Acceptance consumes both items.
func (s *SettlementServiceImpl) RespondToSwap(ctx context.Context, swapID, receiverID uuid.UUID, decision model.SwapDecision) (*model.SwapRequest, error) {
	var out *model.SwapRequest
	err := s.atomic(ctx, "respond_swap", func(tx repository.Store) error {
		sr, err := tx.Swaps().GetByID(ctx, swapID)
		if err != nil {
			return err
		}
		if sr.Receiver.UserID != receiverID {
			return errs.ErrNotFound
		}
		if sr.Status != model.SwapPending {
			return errs.ErrNotAvailable
		}

		switch decision {
		case model.DecisionRejected:
			if err := closeSwap(ctx, tx, sr, model.SwapRejected); err != nil {
				return err
			}
		case model.DecisionAccepted:
			if err := s.settleSwap(ctx, tx, sr); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: decision %q", errs.ErrInvalidArgument, decision)
		}
		out = sr
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("swap answered", zap.Stringer("swap_id", swapID), zap.String("status", string(out.Status)))
	return out, nil
}

func (s *SettlementServiceImpl) settleSwap(ctx context.Context, tx repository.Store, sr *model.SwapRequest) error {
	if err := tx.Swaps().TransitionStatus(ctx, sr.ID, model.SwapPending, model.SwapAccepted); err != nil {
		if errors.Is(err, errs.ErrPreconditionFailed) {
			return errs.ErrNotAvailable
		}
		return err
	}

	first, second := sr.Requester.ItemID, sr.Receiver.ItemID
	if second.String() < first.String() {
		first, second = second, first
	}
	for _, id := range []uuid.UUID{first, second} {
		err := tx.Items().TransitionStatus(ctx, id, model.ItemApproved, model.ItemSwapped)
		if errors.Is(err, errs.ErrPreconditionFailed) || errors.Is(err, errs.ErrNotFound) {
			return errs.ErrItemsNoLongerAvailable
		}
		if err != nil {
			return err
		}
	}

	req, rcv := sr.Requester, sr.Receiver
	if err := tx.Transactions().Append(ctx,
		model.Transaction{
			ID:           newID(),
			UserID:       req.UserID,
			Type:         model.TxSwapItem,
			Description:  "Item swapped",
			RelatedItems: []uuid.UUID{req.ItemID, rcv.ItemID},
			RelatedUsers: []uuid.UUID{rcv.UserID},
		},
		model.Transaction{
			ID:           newID(),
			UserID:       rcv.UserID,
			Type:         model.TxSwapItem,
			Description:  "Item swapped",
			RelatedItems: []uuid.UUID{rcv.ItemID, req.ItemID},
			RelatedUsers: []uuid.UUID{req.UserID},
		},
	); err != nil {
		return err
	}
	sr.Status = model.SwapAccepted
	return nil
}

func closeSwap(ctx context.Context, tx repository.Store, sr *model.SwapRequest, to model.SwapStatus) error {
	err := tx.Swaps().TransitionStatus(ctx, sr.ID, model.SwapPending, to)
	if errors.Is(err, errs.ErrPreconditionFailed) {
		return errs.ErrNotAvailable
	}
	if err != nil {
		return err
	}
	sr.Status = to
	return nil
}

// CancelSwap lets the requester withdraw a pending proposal.
func (s *SettlementServiceImpl) CancelSwap(ctx context.Context, swapID, requesterID uuid.UUID) (*model.SwapRequest, error) {
	var out *model.SwapRequest
	err := s.atomic(ctx, "cancel_swap", func(tx repository.Store) error {
		sr, err := tx.Swaps().GetByID(ctx, swapID)
		if err != nil {
			return err
		}
		if sr.Requester.UserID != requesterID {
			return errs.ErrNotFound
		}
		if sr.Status != model.SwapPending {
			return errs.ErrNotAvailable
		}
		if err := closeSwap(ctx, tx, sr, model.SwapCancelled); err != nil {
			return err
		}
		out = sr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AwardDailyBonus reads lastLogin under lock, credits the bonus on a new
// calendar day and always stores now as the last login.
func (s *SettlementServiceImpl) AwardDailyBonus(ctx context.Context, userID uuid.UUID, now time.Time) (DailyBonus, error) {
	var res DailyBonus
	err := s.atomic(ctx, "daily_bonus", func(tx repository.Store) error {
		res = DailyBonus{}
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		res.Points = u.Points
		if model.IsNewDay(u.LastLogin, now, s.loc) {
			if res.Points, err = tx.Users().AdjustPoints(ctx, userID, DailyBonusPoints); err != nil {
				return err
			}
			if err = tx.Transactions().Append(ctx, model.Transaction{
				ID:           newID(),
				UserID:       userID,
				Type:         model.TxDailyLoginPoints,
				Description:  "Daily login bonus",
				PointsChange: DailyBonusPoints,
			}); err != nil {
				return err
			}
			res.Awarded = true
		}
		return tx.Users().SetLastLogin(ctx, userID, now)
	})
	if err != nil {
		return DailyBonus{}, err
	}
	return res, nil
}

func newID() uuid.UUID { return uuid.Must(uuid.NewV4()) }
