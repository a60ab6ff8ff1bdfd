package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ListingType says how an item can change hands.
type ListingType string

const (
	ListingSwap   ListingType = "swap"
	ListingRedeem ListingType = "redeem"
)

// Valid reports whether lt is a known listing type.
func (lt ListingType) Valid() bool { return lt == ListingSwap || lt == ListingRedeem }

// ItemStatus is the moderation/settlement state of an item.
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemApproved ItemStatus = "approved"
	ItemRejected ItemStatus = "rejected"
	ItemSwapped  ItemStatus = "swapped"
	ItemRedeemed ItemStatus = "redeemed"
)

// Terminal reports whether no further transition is possible.
func (s ItemStatus) Terminal() bool {
	return s == ItemRejected || s == ItemSwapped || s == ItemRedeemed
}

// CanTransition reports whether from -> to is an edge of the item state machine
// for the given listing type.
func CanTransition(from, to ItemStatus, lt ListingType) bool {
	switch from {
	case ItemPending:
		return to == ItemApproved || to == ItemRejected
	case ItemApproved:
		return (to == ItemRedeemed && lt == ListingRedeem) || (to == ItemSwapped && lt == ListingSwap)
	default:
		return false
	}
}

// Tags is the closed set of listing tags.
var Tags = []string{
	"men", "women", "unisex", "kids", "oversized", "vintage",
	"watches", "tapered", "formal", "casual", "sports",
}

// ValidTag reports whether t belongs to Tags.
func ValidTag(t string) bool { return slices.Contains(Tags, t) }

// Category is a two-level clothing category.
type Category struct {
	Main string
	Sub  string
}

// Uploader identifies the owner of a listing; Username is a display copy.
type Uploader struct {
	UserID   uuid.UUID
	Username string
}

// Item is a listing owned by exactly one user.
type Item struct {
	ID              uuid.UUID
	Name            string
	Description     string
	Brand           string
	Category        Category
	Tags            []string
	Images          []string // opaque references: data URLs or http(s) URLs
	Uploader        Uploader
	ListingType     ListingType
	PointsValue     *int64 // set iff ListingType == ListingRedeem
	Status          ItemStatus
	RejectionReason string
	ApprovedBy      *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Price returns the redemption price or 0 for swap listings.
func (it *Item) Price() int64 {
	if it.PointsValue == nil {
		return 0
	}
	return *it.PointsValue
}

// CheckPricing enforces that PointsValue is present and positive exactly for redeem listings.
func (it *Item) CheckPricing() error {
	switch it.ListingType {
	case ListingRedeem:
		if it.PointsValue == nil || *it.PointsValue <= 0 {
			return fmt.Errorf("redeem listing requires positive points value")
		}
	case ListingSwap:
		if it.PointsValue != nil {
			return fmt.Errorf("swap listing must not carry a points value")
		}
	default:
		return fmt.Errorf("unknown listing type %q", it.ListingType)
	}
	return nil
}

// ItemSort orders approved listings.
type ItemSort string

const (
	SortNewest     ItemSort = "newest"
	SortOldest     ItemSort = "oldest"
	SortPointsAsc  ItemSort = "points_asc"
	SortPointsDesc ItemSort = "points_desc"
)

// ItemFilter narrows the approved listings catalogue.
type ItemFilter struct {
	Search   string   // case-insensitive substring over name, description, brand, tags
	Tags     []string // any-of
	Category string   // matches Category.Main
	Sort     ItemSort
}
