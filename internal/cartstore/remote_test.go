package cartstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"tourcart/internal/booking"
	"tourcart/internal/inventory"
	"tourcart/internal/validate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCartService is a minimal stand-in for the external cart service,
// holding one cart per bearer token.
type fakeCartService struct {
	mu       sync.Mutex
	carts    map[string][]linePayload
	reads    int
	writes   int
	failNext bool
}

func newFakeCartService() *fakeCartService {
	return &fakeCartService{carts: map[string][]linePayload{}}
}

func (f *fakeCartService) bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (f *fakeCartService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.reads++
		json.NewEncoder(w).Encode(cartPayload{
			OwnerKey:  f.bearer(r),
			Items:     f.carts[f.bearer(r)],
			UpdatedAt: time.Now(),
		})
	})

	mux.HandleFunc("POST /cart/add", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failNext {
			f.failNext = false
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.writes++
		var in addPayload
		json.NewDecoder(r.Body).Decode(&in)
		owner := f.bearer(r)
		for i, l := range f.carts[owner] {
			if l.ProductID == in.ProductID {
				f.carts[owner][i].Quantity += in.Quantity
				w.WriteHeader(http.StatusCreated)
				return
			}
		}
		f.carts[owner] = append(f.carts[owner], linePayload{
			ProductID:        in.ProductID,
			Quantity:         in.Quantity,
			UnitPriceCents:   1000,
			ProductDate:      in.ProductDate,
			ProductStartTime: in.ProductStartTime,
			DurationMinutes:  in.DurationMinutes,
			ProductType:      in.ProductType,
		})
		w.WriteHeader(http.StatusCreated)
	})

	mux.HandleFunc("PUT /cart/update", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes++
		var in updatePayload
		json.NewDecoder(r.Body).Decode(&in)
		owner := f.bearer(r)
		for i, l := range f.carts[owner] {
			if l.ProductID == in.ProductID {
				f.carts[owner][i].Quantity = in.Quantity
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("DELETE /cart/item/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes++
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		owner := f.bearer(r)
		for i, l := range f.carts[owner] {
			if l.ProductID == id {
				f.carts[owner] = append(f.carts[owner][:i], f.carts[owner][i+1:]...)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("DELETE /cart/clear", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes++
		delete(f.carts, f.bearer(r))
	})

	return mux
}

func newRemoteStore(t *testing.T, inv validate.InventoryReader) (*Remote, *fakeCartService) {
	t.Helper()
	svc := newFakeCartService()
	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)

	logger := zap.NewNop().Sugar()
	engine := validate.NewEngine(inv, nopSink{}, logger)
	return NewRemote(srv.URL, engine, logger), svc
}

var userSess = booking.Session{OwnerKey: "user:42", Bearer: "tok-42"}

func TestRemoteRequiresCredential(t *testing.T) {
	store, _ := newRemoteStore(t, &stubInventory{})
	ctx := context.Background()

	_, err := store.CurrentCart(ctx, booking.Session{OwnerKey: "guest:x"})
	assert.ErrorIs(t, err, ErrNoCredential)
	_, err = store.AddItem(ctx, booking.Session{OwnerKey: "guest:x"}, ticket(1, 1))
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestRemoteReadsAreCached(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(10)}}
	store, svc := newRemoteStore(t, inv)
	ctx := context.Background()

	_, err := store.CurrentCart(ctx, userSess)
	require.NoError(t, err)
	_, err = store.CurrentCart(ctx, userSess)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.reads)
}

func TestRemoteAddInvalidatesCache(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(10)}}
	store, svc := newRemoteStore(t, inv)
	ctx := context.Background()

	failure, err := store.AddItem(ctx, userSess, ticket(1, 2))
	require.NoError(t, err)
	require.Nil(t, failure)

	cart, err := store.CurrentCart(ctx, userSess)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	// add triggered one read for validation, the post-mutation read is fresh
	assert.Equal(t, 2, svc.reads)
	assert.Equal(t, 1, svc.writes)
}

func TestRemoteValidationFailureSkipsWrite(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(1)}}
	store, svc := newRemoteStore(t, inv)
	ctx := context.Background()

	failure, err := store.AddItem(ctx, userSess, ticket(1, 5))
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, booking.FailureInsufficientQuantity, failure.Kind)
	assert.Zero(t, svc.writes)
}

func TestRemoteConflictAgainstServerCart(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(5), 2: published(5)}}
	store, _ := newRemoteStore(t, inv)
	ctx := context.Background()

	failure, err := store.AddItem(ctx, userSess, lessonAt(1, "10:00", 1))
	require.NoError(t, err)
	require.Nil(t, failure)

	failure, err = store.AddItem(ctx, userSess, lessonAt(2, "10:45", 1))
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, booking.FailureTimeConflict, failure.Kind)
}

func TestRemoteWriteFailurePropagates(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(10)}}
	store, svc := newRemoteStore(t, inv)
	ctx := context.Background()

	svc.failNext = true
	failure, err := store.AddItem(ctx, userSess, ticket(1, 2))
	require.Error(t, err)
	assert.Nil(t, failure)

	// validation passed and the write failed, so nothing was stored upstream
	svc.mu.Lock()
	assert.Empty(t, svc.carts["tok-42"])
	svc.mu.Unlock()
}

// Offline inventory still lets the write through; only the write path
// failing is a hard error.
func TestRemoteOfflineReadVersusFailedWrite(t *testing.T) {
	inv := &stubInventory{err: inventory.ErrUnreachable}
	store, _ := newRemoteStore(t, inv)
	ctx := context.Background()

	failure, err := store.AddItem(ctx, userSess, ticket(1, 2))
	require.NoError(t, err)
	assert.Nil(t, failure)

	cart, err := store.CurrentCart(ctx, userSess)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
}

func TestRemoteRemoveThenReadIsFresh(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(10), 2: published(10)}}
	store, _ := newRemoteStore(t, inv)
	ctx := context.Background()

	for _, item := range []booking.CartItem{ticket(1, 1), ticket(2, 1)} {
		failure, err := store.AddItem(ctx, userSess, item)
		require.NoError(t, err)
		require.Nil(t, failure)
	}

	require.NoError(t, store.RemoveItem(ctx, userSess, 1))

	cart, err := store.CurrentCart(ctx, userSess)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ItemID)
}

func TestRemoteUpdateQuantityZeroRemoves(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(10)}}
	store, _ := newRemoteStore(t, inv)
	ctx := context.Background()

	failure, err := store.AddItem(ctx, userSess, ticket(1, 2))
	require.NoError(t, err)
	require.Nil(t, failure)

	failure, err = store.UpdateItemQuantity(ctx, userSess, 1, 0)
	require.NoError(t, err)
	require.Nil(t, failure)

	cart, err := store.CurrentCart(ctx, userSess)
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestRemoteCacheIsPerOwner(t *testing.T) {
	inv := &stubInventory{items: map[int64]*inventory.ProductItem{1: published(10)}}
	store, svc := newRemoteStore(t, inv)
	ctx := context.Background()

	other := booking.Session{OwnerKey: "user:43", Bearer: "tok-43"}

	_, err := store.CurrentCart(ctx, userSess)
	require.NoError(t, err)
	_, err = store.CurrentCart(ctx, other)
	require.NoError(t, err)
	require.Equal(t, 2, svc.reads)

	// a mutation by one owner must not evict the other's entry
	failure, err := store.AddItem(ctx, userSess, ticket(1, 1))
	require.NoError(t, err)
	require.Nil(t, failure)
	svcReads := svc.reads

	_, err = store.CurrentCart(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, svcReads, svc.reads)
}
