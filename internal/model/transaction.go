package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// TxType classifies ledger records.
type TxType string

const (
	TxRedeemItem       TxType = "redeem_item"
	TxSwapItem         TxType = "swap_item"
	TxDailyLoginPoints TxType = "daily_login_points"
	TxListingBonus     TxType = "listing_bonus"
)

// Transaction is an immutable audit record of a points-affecting or swap event.
type Transaction struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Type         TxType
	Description  string
	PointsChange int64       // signed; 0 for swaps
	RelatedItems []uuid.UUID // 0..2
	RelatedUsers []uuid.UUID // 0..1
	CreatedAt    time.Time
}
