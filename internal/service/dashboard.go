package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/repository"
)

// recentTransactions bounds the ledger excerpt on the dashboard.
const recentTransactions = 20

// DashboardService builds the user dashboard.
type DashboardService interface {
	Dashboard(ctx context.Context, userID uuid.UUID) (*model.Dashboard, error)
}

type DashboardServiceImpl struct {
	store repository.Store
	loc   *time.Location
}

var _ DashboardService = (*DashboardServiceImpl)(nil)

// NewDashboardService constructs DashboardService. loc formats login dates.
func NewDashboardService(store repository.Store, loc *time.Location) *DashboardServiceImpl {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardServiceImpl{store: store, loc: loc}
}

// Dashboard collects profile, listings, open swaps and recent ledger entries.
func (s *DashboardServiceImpl) Dashboard(ctx context.Context, userID uuid.UUID) (*model.Dashboard, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.Items().ListByUploader(ctx, userID)
	if err != nil {
		return nil, err
	}
	swaps, err := s.store.Swaps().ListPendingForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.Transactions().ListByUser(ctx, userID, recentTransactions)
	if err != nil {
		return nil, err
	}
	logins, err := s.store.Transactions().ListByUserAndType(ctx, userID, model.TxDailyLoginPoints)
	if err != nil {
		return nil, err
	}

	d := &model.Dashboard{
		Profile:               *u,
		ItemsOverview:         overview(items),
		Items:                 items,
		OngoingSwaps:          swaps,
		CompletedTransactions: txs,
		LoginDates:            make([]string, 0, len(logins)),
	}
	seen := make(map[string]struct{}, len(logins))
	for _, t := range logins {
		day := t.CreatedAt.In(s.loc).Format(time.DateOnly)
		if _, ok := seen[day]; !ok {
			seen[day] = struct{}{}
			d.LoginDates = append(d.LoginDates, day)
		}
	}
	return d, nil
}

func overview(items []model.Item) model.ItemsOverview {
	var o model.ItemsOverview
	for _, it := range items {
		switch it.Status {
		case model.ItemPending, model.ItemApproved:
			o.Listed++
		case model.ItemSwapped:
			o.Swapped++
		case model.ItemRedeemed:
			o.Redeemed++
		case model.ItemRejected:
			o.Rejected++
		}
	}
	return o
}
