package cartstore

import (
	"context"
	"path/filepath"
	"testing"

	"tourcart/internal/booking"
	"tourcart/internal/inventory"
	"tourcart/internal/localstore"
	"tourcart/internal/validate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubInventory struct {
	items map[int64]*inventory.ProductItem
	err   error
}

func (s *stubInventory) Get(_ context.Context, id int64, _ string) (*inventory.ProductItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	item, ok := s.items[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	return item, nil
}

type nopSink struct{}

func (nopSink) Notify(context.Context, string, string, string) {}

func strp(s string) *string { return &s }

func published(qty int) *inventory.ProductItem {
	return &inventory.ProductItem{QuantityAvailable: qty, ItemStatus: inventory.StatusPublished}
}

func ticket(id int64, qty int) booking.CartItem {
	return booking.CartItem{ItemID: id, Quantity: qty, UnitPriceCents: 2000, ProductType: booking.ProductTicket}
}

func lessonAt(id int64, start string, qty int) booking.CartItem {
	return booking.CartItem{
		ItemID:          id,
		Quantity:        qty,
		UnitPriceCents:  5000,
		ScheduledDate:   strp("2026-10-01"),
		StartTime:       strp(start),
		DurationMinutes: 60,
		ProductType:     booking.ProductLesson,
	}
}

func newGuestStore(t *testing.T, inv validate.InventoryReader) (*Guest, *localstore.Slots) {
	t.Helper()
	slots, err := localstore.Open(filepath.Join(t.TempDir(), "carts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { slots.Close() })

	logger := zap.NewNop().Sugar()
	engine := validate.NewEngine(inv, nopSink{}, logger)
	return NewGuest(slots, engine, logger), slots
}

var guestSess = booking.Session{OwnerKey: "guest:7f3a"}

func TestGuestAddAndRead(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(10)}}
	store, _ := newGuestStore(t, inv)
	ctx := context.Background()

	failure, err := store.AddItem(ctx, guestSess, ticket(1, 2))
	require.NoError(t, err)
	require.Nil(t, failure)

	cart, err := store.CurrentCart(ctx, guestSess)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(4000), cart.TotalCents())
}

func TestGuestReAddValidatesCombinedQuantity(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(5)}}
	store, _ := newGuestStore(t, inv)
	ctx := context.Background()

	failure, err := store.AddItem(ctx, guestSess, ticket(1, 2))
	require.NoError(t, err)
	require.Nil(t, failure)

	// 2 + 3 = 5 <= available: merges into one line
	failure, err = store.AddItem(ctx, guestSess, ticket(1, 3))
	require.NoError(t, err)
	require.Nil(t, failure)

	cart, err := store.CurrentCart(ctx, guestSess)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	// 5 + 1 would exceed: the combined quantity is what gets validated
	failure, err = store.AddItem(ctx, guestSess, ticket(1, 1))
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, booking.FailureInsufficientQuantity, failure.Kind)
	assert.Equal(t, 5, failure.Available)

	cart, err = store.CurrentCart(ctx, guestSess)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestGuestRejectionDoesNotMutate(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(1)}}
	store, _ := newGuestStore(t, inv)
	ctx := context.Background()

	failure, err := store.AddItem(ctx, guestSess, ticket(1, 3))
	require.NoError(t, err)
	require.NotNil(t, failure)

	cart, err := store.CurrentCart(ctx, guestSess)
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestGuestConflictDetection(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{
		1: published(5),
		2: published(5),
	}}
	store, _ := newGuestStore(t, inv)
	ctx := context.Background()

	failure, err := store.AddItem(ctx, guestSess, lessonAt(1, "10:00", 1))
	require.NoError(t, err)
	require.Nil(t, failure)

	failure, err = store.AddItem(ctx, guestSess, lessonAt(2, "10:30", 1))
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, booking.FailureTimeConflict, failure.Kind)
}

func TestGuestCartSurvivesRehydration(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(10)}}

	slots, err := localstore.Open(filepath.Join(t.TempDir(), "carts.db"))
	require.NoError(t, err)
	defer slots.Close()

	logger := zap.NewNop().Sugar()
	engine := validate.NewEngine(inv, nopSink{}, logger)
	ctx := context.Background()

	first := NewGuest(slots, engine, logger)
	failure, err := first.AddItem(ctx, guestSess, ticket(1, 2))
	require.NoError(t, err)
	require.Nil(t, failure)

	// a fresh store over the same slots is what a page reload looks like
	second := NewGuest(slots, engine, logger)
	cart, err := second.CurrentCart(ctx, guestSess)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestGuestUpdateRemoveClear(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(10), 2: published(10)}}
	store, slots := newGuestStore(t, inv)
	ctx := context.Background()

	for _, item := range []booking.CartItem{ticket(1, 1), ticket(2, 1)} {
		failure, err := store.AddItem(ctx, guestSess, item)
		require.NoError(t, err)
		require.Nil(t, failure)
	}

	failure, err := store.UpdateItemQuantity(ctx, guestSess, 1, 4)
	require.NoError(t, err)
	require.Nil(t, failure)

	// quantity zero is a removal
	failure, err = store.UpdateItemQuantity(ctx, guestSess, 2, 0)
	require.NoError(t, err)
	require.Nil(t, failure)

	cart, err := store.CurrentCart(ctx, guestSess)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	_, err = store.UpdateItemQuantity(ctx, guestSess, 99, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	require.NoError(t, store.Clear(ctx, guestSess))

	cart, err = store.CurrentCart(ctx, guestSess)
	require.NoError(t, err)
	assert.True(t, cart.Empty())

	// the slot itself is gone, not just the in-memory copy
	raw, err := slots.Get(ctx, guestSess.OwnerKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestGuestOfflineAddIsOptimistic(t *testing.T) {
	inv := &stubInventory{err: inventory.ErrUnreachable}
	store, _ := newGuestStore(t, inv)
	ctx := context.Background()

	failure, err := store.AddItem(ctx, guestSess, ticket(1, 2))
	require.NoError(t, err)
	assert.Nil(t, failure)

	cart, err := store.CurrentCart(ctx, guestSess)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
}
