package cartstore

import (
	"context"
	"errors"

	"tourcart/internal/booking"
)

var (
	// ErrNoCredential means an authenticated-store call arrived without a
	// bearer token. That is a caller bug (the session middleware routes
	// guests to the guest store), not a validation outcome.
	ErrNoCredential = errors.New("authenticated cart access without credential")

	ErrItemNotFound = errors.New("cart item not found")
)

// Store is the single cart capability both tiers implement. The gateway
// selects the implementation from the session's authentication state; the
// merge reconciler is the only code allowed to hold both at once.
//
// Validation outcomes come back as data so batch callers can continue past
// one item's rejection; the error return is reserved for hard failures
// (storage or the mutation call itself).
type Store interface {
	CurrentCart(ctx context.Context, sess booking.Session) (*booking.Cart, error)
	AddItem(ctx context.Context, sess booking.Session, item booking.CartItem) (*booking.ValidationFailure, error)
	UpdateItemQuantity(ctx context.Context, sess booking.Session, itemID int64, quantity int) (*booking.ValidationFailure, error)
	RemoveItem(ctx context.Context, sess booking.Session, itemID int64) error
	Clear(ctx context.Context, sess booking.Session) error
}
