// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Settlement outcomes. All of them are expected results the caller can act on.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotAvailable indicates the entity is not in a state that permits the operation.
	ErrNotAvailable = errors.New("not available")

	// ErrSelfRedemptionForbidden indicates a user tried to redeem their own listing.
	ErrSelfRedemptionForbidden = errors.New("cannot redeem own item")

	// ErrSelfSwapForbidden indicates a user tried to swap with their own listing.
	ErrSelfSwapForbidden = errors.New("cannot swap with own item")

	// ErrInsufficientPoints indicates the balance is below the required amount.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrItemsNoLongerAvailable indicates another settlement consumed an item first.
	ErrItemsNoLongerAvailable = errors.New("items no longer available")
)

// Storage outcomes.
var (
	// ErrPreconditionFailed indicates a conditional update matched no row.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrStorageConflict indicates a serialization failure; the whole operation may be retried.
	ErrStorageConflict = errors.New("storage conflict")

	// ErrStorage indicates an unrecoverable storage failure. Never retried.
	ErrStorage = errors.New("storage failure")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")
)

// Access and input.
var (
	// ErrInvalidArgument indicates input failed validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated principal lacks permission.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)
