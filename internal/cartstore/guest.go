package cartstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tourcart/internal/booking"
	"tourcart/internal/localstore"
	"tourcart/internal/validate"

	"go.uber.org/zap"
)

// Guest keeps an unauthenticated session's cart in local durable storage.
// Same validation discipline as the authenticated store, but no server round
// trip for storage: only the inventory reads leave the process, and those go
// out on the unauthenticated path (a guest session never holds a bearer, so
// the empty Session.Bearer guarantees that).
//
// Each guest key is hydrated from its slot once, on first touch, then served
// from memory; the slot is rewritten after every content mutation so the
// cart survives a reload mid-session.
type Guest struct {
	slots  *localstore.Slots
	engine *validate.Engine
	logger *zap.SugaredLogger

	mu    sync.Mutex
	carts map[string]*booking.Cart
}

func NewGuest(slots *localstore.Slots, engine *validate.Engine, logger *zap.SugaredLogger) *Guest {
	return &Guest{
		slots:  slots,
		engine: engine,
		logger: logger,
		carts:  make(map[string]*booking.Cart),
	}
}

// load hydrates the cart for ownerKey, reading the slot on first touch.
// Callers hold g.mu.
func (g *Guest) load(ctx context.Context, ownerKey string) (*booking.Cart, error) {
	if cart, ok := g.carts[ownerKey]; ok {
		return cart, nil
	}

	raw, err := g.slots.Get(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	cart := &booking.Cart{OwnerKey: ownerKey}
	if raw != nil {
		if err := json.Unmarshal(raw, cart); err != nil {
			// A corrupt slot is unrecoverable; start the session fresh
			// rather than wedge every cart operation.
			g.logger.Errorw("guest cart slot corrupt, resetting", "owner", ownerKey, "error", err)
			cart = &booking.Cart{OwnerKey: ownerKey}
		}
	}
	g.carts[ownerKey] = cart
	return cart, nil
}

// persist writes the cart back to its slot. Callers hold g.mu.
func (g *Guest) persist(ctx context.Context, cart *booking.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}
	return g.slots.Put(ctx, cart.OwnerKey, raw)
}

func (g *Guest) CurrentCart(ctx context.Context, sess booking.Session) (*booking.Cart, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cart, err := g.load(ctx, sess.OwnerKey)
	if err != nil {
		return nil, err
	}
	// Hand back a snapshot so callers cannot bypass the validated paths.
	snapshot := *cart
	snapshot.Items = append([]booking.CartItem(nil), cart.Items...)
	return &snapshot, nil
}

// AddItem runs the full engine (conflicts included) before mutating the
// persisted list. Re-adding an existing item validates the combined
// quantity, not just the delta, against inventory.
func (g *Guest) AddItem(ctx context.Context, sess booking.Session, item booking.CartItem) (*booking.ValidationFailure, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cart, err := g.load(ctx, sess.OwnerKey)
	if err != nil {
		return nil, err
	}

	candidate := item
	if existing := cart.Item(item.ItemID); existing != nil {
		candidate.Quantity += existing.Quantity
	}
	if f := g.engine.Validate(ctx, sess, candidate, cart.Items); f != nil {
		return f, nil
	}

	cart.Upsert(item)
	if err := g.persist(ctx, cart); err != nil {
		return nil, err
	}
	return nil, nil
}

func (g *Guest) UpdateItemQuantity(ctx context.Context, sess booking.Session, itemID int64, quantity int) (*booking.ValidationFailure, error) {
	if quantity == 0 {
		return nil, g.RemoveItem(ctx, sess, itemID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cart, err := g.load(ctx, sess.OwnerKey)
	if err != nil {
		return nil, err
	}
	if cart.Item(itemID) == nil {
		return nil, ErrItemNotFound
	}
	if f := g.engine.ValidateQuantity(ctx, sess, itemID, quantity); f != nil {
		return f, nil
	}

	cart.SetQuantity(itemID, quantity)
	if err := g.persist(ctx, cart); err != nil {
		return nil, err
	}
	return nil, nil
}

func (g *Guest) RemoveItem(ctx context.Context, sess booking.Session, itemID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cart, err := g.load(ctx, sess.OwnerKey)
	if err != nil {
		return err
	}
	if !cart.Remove(itemID) {
		return ErrItemNotFound
	}
	return g.persist(ctx, cart)
}

// Clear empties the cart and deletes its slot. The merge reconciler calls
// this the moment a merge pass completes, so a guest cart never silently
// outlives a successful login.
func (g *Guest) Clear(ctx context.Context, sess booking.Session) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.carts[sess.OwnerKey] = &booking.Cart{OwnerKey: sess.OwnerKey, UpdatedAt: time.Now()}
	return g.slots.Delete(ctx, sess.OwnerKey)
}
