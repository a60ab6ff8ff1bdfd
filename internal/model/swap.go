package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// SwapStatus is the lifecycle state of a swap proposal.
type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapRejected  SwapStatus = "rejected"
	SwapCancelled SwapStatus = "cancelled"
)

// SwapDecision is the receiver's answer to a proposal.
type SwapDecision string

const (
	DecisionAccepted SwapDecision = "accepted"
	DecisionRejected SwapDecision = "rejected"
)

// SwapParty pairs a participant with the item they give up.
type SwapParty struct {
	UserID uuid.UUID
	ItemID uuid.UUID
}

// SwapRequest proposes exchanging Requester.ItemID for Receiver.ItemID.
type SwapRequest struct {
	ID        uuid.UUID
	Requester SwapParty
	Receiver  SwapParty
	Status    SwapStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Involves reports whether userID is either side of the proposal.
func (s *SwapRequest) Involves(userID uuid.UUID) bool {
	return s.Requester.UserID == userID || s.Receiver.UserID == userID
}
