// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// DefaultProfilePicture is assigned to new users without an avatar.
const DefaultProfilePicture = "default_avatar.png"

// Role distinguishes marketplace users from administrators in issued tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Tokens collects an issued access token.
type Tokens struct {
	AccessToken string
	TokenID     string    // jti, used for revocation on logout
	ExpiresAt   time.Time // access token expiry
}

// Principal is an authenticated caller resolved from an access token.
type Principal struct {
	ID        uuid.UUID
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// User is a marketplace account and its points wallet.
type User struct {
	ID                uuid.UUID // PK
	Username          string    // unique, lower-cased
	Email             string    // unique, lower-cased
	PwdHash           []byte    // Argon2id(password, SaltAuth)
	SaltAuth          []byte
	ProfilePictureURL string
	Points            int64      // never negative
	LastLogin         *time.Time // nil until the first login
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Admin is a moderator account. Only approved admins may log in.
type Admin struct {
	ID         uuid.UUID
	Username   string
	Email      string
	PwdHash    []byte
	SaltAuth   []byte
	Approved   bool
	ApprovedBy *uuid.UUID
	CreatedAt  time.Time
}

// ItemsOverview counts a user's listings by outcome.
type ItemsOverview struct {
	Listed   int // pending + approved
	Swapped  int
	Redeemed int
	Rejected int
}

// Dashboard aggregates everything the user dashboard shows.
type Dashboard struct {
	Profile               User
	ItemsOverview         ItemsOverview
	Items                 []Item
	OngoingSwaps          []SwapRequest
	CompletedTransactions []Transaction
	LoginDates            []string // YYYY-MM-DD of daily bonus awards
}
