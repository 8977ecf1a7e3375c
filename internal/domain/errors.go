package domain

import (
	"errors"
	"fmt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Item / pricing errors
var (
	// ErrItemNotFound is returned when no item matches the given criteria.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemInactive is returned when an order targets a deactivated item.
	ErrItemInactive = errors.New("item is not active")

	// ErrPriceConflict is returned when a compare-and-set price write lost its
	// race against a concurrent writer. The caller should re-read and retry
	// from fresh state, never within the same tick.
	ErrPriceConflict = errors.New("price compare-and-set lost its race")

	// ErrInvalidBounds is returned when floor/ceiling/volatility adjustments
	// would leave the item in an inconsistent state.
	ErrInvalidBounds = errors.New("floor price must not exceed ceiling price")
)

// Order errors
var (
	// ErrOrderNotFound is returned when no order matches the given criteria.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidQuantity is returned when the order quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrInvalidPrice is returned when the locked price is not positive.
	ErrInvalidPrice = errors.New("locked price must be a positive amount")

	// ErrInvalidStatus is returned when an order status transition is not
	// allowed (only CONFIRMED orders may be cancelled or fulfilled).
	ErrInvalidStatus = errors.New("order status transition not allowed")
)

// User / auth errors
var (
	// ErrUserNotFound is returned when no user matches the given criteria.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned on registration when the email already exists.
	ErrEmailTaken = errors.New("email address is already registered")

	// ErrUsernameTaken is returned on registration when the username already exists.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserInactive is returned when a suspended user attempts an action.
	ErrUserInactive = errors.New("user account is inactive")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT or refresh token has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// Store errors
var (
	// ErrStoreUnavailable wraps timeouts and connection failures; the whole
	// operation is safe to retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ──────────────────────────────────────────────────────────────────────────────
// PriceChangedError
// ──────────────────────────────────────────────────────────────────────────────

// PriceChangedError is returned by the settlement engine when the buyer's
// locked price no longer matches the stored price. It carries the fresh
// price so the caller can re-confirm and retry.
type PriceChangedError struct {
	ItemID       string
	LockedPrice  int64
	CurrentPrice int64
}

func (e *PriceChangedError) Error() string {
	return fmt.Sprintf("price changed for item %s: locked %d, now %d",
		e.ItemID, e.LockedPrice, e.CurrentPrice)
}

// IsPriceChanged reports whether err is a stale-price rejection and returns
// the typed error for access to the fresh price.
func IsPriceChanged(err error) (*PriceChangedError, bool) {
	var pce *PriceChangedError
	if errors.As(err, &pce) {
		return pce, true
	}
	return nil, false
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrItemNotFound,
	ErrOrderNotFound,
	ErrUserNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values directly
// when you need to translate domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict (a lost
// compare-and-set race, a stale locked price, or a forbidden status change).
func IsConflict(err error) bool {
	if _, ok := IsPriceChanged(err); ok {
		return true
	}
	conflictErrors := []error{
		ErrPriceConflict,
		ErrInvalidStatus,
		ErrEmailTaken,
		ErrUsernameTaken,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsInvalidInput returns true for caller mistakes that can never succeed on
// retry without changing the request.
func IsInvalidInput(err error) bool {
	invalidErrors := []error{
		ErrInvalidQuantity,
		ErrInvalidPrice,
		ErrInvalidBounds,
		ErrItemInactive,
	}
	for _, target := range invalidErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsTransient returns true for store-level failures where retrying the whole
// operation is safe.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
