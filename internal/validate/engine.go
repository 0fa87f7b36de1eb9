package validate

import (
	"context"
	"errors"

	"tourcart/internal/booking"
	"tourcart/internal/inventory"
	"tourcart/internal/notifications"

	"go.uber.org/zap"
)

// InventoryReader is the slice of the inventory client the engine needs.
type InventoryReader interface {
	Get(ctx context.Context, id int64, bearer string) (*inventory.ProductItem, error)
}

// Engine decides whether a candidate item may enter a cart. Both stores run
// every content mutation through it before touching storage.
type Engine struct {
	inv    InventoryReader
	sink   notifications.Sink
	logger *zap.SugaredLogger
}

func NewEngine(inv InventoryReader, sink notifications.Sink, logger *zap.SugaredLogger) *Engine {
	return &Engine{inv: inv, sink: sink, logger: logger}
}

// Validate checks candidate against live inventory and against the other
// items already in the same cart. A nil return means the mutation may
// proceed.
//
// Check order is deliberate: availability and quantity come before
// scheduling, so an item that is gone never produces a conflict message that
// would mislead the user about the real blocker.
//
// A transport failure on the inventory read does NOT block: the engine logs
// it, warns the session through the sink, and lets the mutation proceed
// optimistically. A definite negative (item missing or unpublished) always
// blocks.
func (e *Engine) Validate(ctx context.Context, sess booking.Session, candidate booking.CartItem, existing []booking.CartItem) *booking.ValidationFailure {
	if f := checkShape(candidate); f != nil {
		return f
	}

	item, err := e.inv.Get(ctx, candidate.ItemID, sess.Bearer)
	switch {
	case errors.Is(err, inventory.ErrUnreachable):
		e.logger.Warnw("inventory unreachable, allowing mutation optimistically",
			"owner", sess.OwnerKey, "item", candidate.ItemID, "error", err)
		e.sink.Notify(ctx, sess.OwnerKey, "Added without live check",
			"We couldn't verify availability right now. Your selection was kept and will be checked again at checkout.")
		return e.checkConflicts(candidate, existing)
	case err != nil:
		return booking.ItemUnavailable()
	case !item.Published():
		return booking.ItemUnavailable()
	case candidate.Quantity > item.QuantityAvailable:
		return booking.InsufficientQuantity(item.QuantityAvailable)
	}

	return e.checkConflicts(candidate, existing)
}

// ValidateQuantity re-runs only the inventory portion for a quantity change
// on an existing line. Changing quantity on an already scheduled item cannot
// introduce a new time conflict, so the conflict scan is skipped.
func (e *Engine) ValidateQuantity(ctx context.Context, sess booking.Session, itemID int64, quantity int) *booking.ValidationFailure {
	if quantity <= 0 {
		return booking.Invalid("quantity must be positive")
	}

	item, err := e.inv.Get(ctx, itemID, sess.Bearer)
	switch {
	case errors.Is(err, inventory.ErrUnreachable):
		e.logger.Warnw("inventory unreachable, allowing quantity change optimistically",
			"owner", sess.OwnerKey, "item", itemID, "error", err)
		e.sink.Notify(ctx, sess.OwnerKey, "Updated without live check",
			"We couldn't verify availability right now. Your change was kept and will be checked again at checkout.")
		return nil
	case err != nil:
		return booking.ItemUnavailable()
	case !item.Published():
		return booking.ItemUnavailable()
	case quantity > item.QuantityAvailable:
		return booking.InsufficientQuantity(item.QuantityAvailable)
	}

	return nil
}

// checkConflicts runs the pairwise overlap scan against every other
// scheduled item in the cart. Cart-internal self-consistency is the engine's
// whole scheduling responsibility; staff and resource calendars live behind
// the inventory service.
func (e *Engine) checkConflicts(candidate booking.CartItem, existing []booking.CartItem) *booking.ValidationFailure {
	w, scheduled, err := candidate.Window()
	if err != nil {
		return booking.Invalid(err.Error())
	}
	if !scheduled {
		return nil
	}

	for _, other := range existing {
		if other.ItemID == candidate.ItemID {
			continue
		}
		ow, ok, err := other.Window()
		if err != nil || !ok {
			// An existing line with an unparsable schedule never got past
			// validation; skip rather than block the new item on it.
			continue
		}
		if w.Overlaps(ow) {
			return booking.TimeConflict()
		}
	}
	return nil
}

func checkShape(candidate booking.CartItem) *booking.ValidationFailure {
	if candidate.ItemID <= 0 {
		return booking.Invalid("missing item id")
	}
	if candidate.Quantity <= 0 {
		return booking.Invalid("quantity must be positive")
	}
	if !candidate.ProductType.Valid() {
		return booking.Invalid("unknown product type")
	}
	if _, _, err := candidate.Window(); err != nil {
		return booking.Invalid(err.Error())
	}
	return nil
}
