package cartstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"tourcart/internal/booking"
	"tourcart/internal/validate"

	"go.uber.org/zap"
)

// Remote fronts the external authenticated cart service. It is a proxy with
// a defined invalidation contract, not a source of truth: reads go through
// the owner-keyed cache, every successful mutation drops that owner's entry,
// and the local copy is never mutated optimistically. An abandoned in-flight
// call therefore cannot corrupt anything worse than a stale cache entry.
//
// Mutations are serialized per owner so two tabs hammering the same cart
// resolve to last-write-wins instead of interleaved half-validated writes.
type Remote struct {
	baseURL string
	http    *http.Client
	engine  *validate.Engine
	cache   *Cache
	logger  *zap.SugaredLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRemote(baseURL string, engine *validate.Engine, logger *zap.SugaredLogger) *Remote {
	return &Remote{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		engine:  engine,
		cache:   NewCache(),
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (r *Remote) ownerLock(ownerKey string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[ownerKey]
	if !ok {
		l = &sync.Mutex{}
		r.locks[ownerKey] = l
	}
	return l
}

// wire shapes of the external cart service.

type cartPayload struct {
	OwnerKey  string        `json:"ownerKey"`
	Items     []linePayload `json:"items"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type linePayload struct {
	ProductID        int64   `json:"productId"`
	TemplateID       int64   `json:"templateId"`
	VendorID         int64   `json:"vendorId"`
	Quantity         int     `json:"quantity"`
	UnitPriceCents   int64   `json:"unitPriceCents"`
	ProductDate      *string `json:"productDate,omitempty"`
	ProductStartTime *string `json:"productStartTime,omitempty"`
	DurationMinutes  int     `json:"durationMinutes,omitempty"`
	ProductType      string  `json:"productType"`
}

type addPayload struct {
	ProductID        int64   `json:"productId"`
	Quantity         int     `json:"quantity"`
	ProductDate      *string `json:"productDate,omitempty"`
	ProductStartTime *string `json:"productStartTime,omitempty"`
	DurationMinutes  int     `json:"durationMinutes,omitempty"`
	ProductType      string  `json:"productType"`
}

type updatePayload struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func fromPayload(p cartPayload, ownerKey string) *booking.Cart {
	cart := &booking.Cart{OwnerKey: ownerKey, UpdatedAt: p.UpdatedAt}
	for _, l := range p.Items {
		cart.Items = append(cart.Items, booking.CartItem{
			ItemID:          l.ProductID,
			TemplateID:      l.TemplateID,
			VendorID:        l.VendorID,
			Quantity:        l.Quantity,
			UnitPriceCents:  l.UnitPriceCents,
			ScheduledDate:   l.ProductDate,
			StartTime:       l.ProductStartTime,
			DurationMinutes: l.DurationMinutes,
			ProductType:     booking.ProductType(l.ProductType),
		})
	}
	return cart
}

// CurrentCart returns the owner's cart, serving from cache when a previous
// read is still valid.
func (r *Remote) CurrentCart(ctx context.Context, sess booking.Session) (*booking.Cart, error) {
	if !sess.Authenticated() {
		return nil, ErrNoCredential
	}
	if cart, ok := r.cache.Get(sess.OwnerKey); ok {
		return cart, nil
	}

	var payload cartPayload
	if err := r.do(ctx, sess, http.MethodGet, "/cart", nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	cart := fromPayload(payload, sess.OwnerKey)
	r.cache.Set(sess.OwnerKey, cart)
	return cart, nil
}

// AddItem validates against the cached cart's current items, then issues the
// remote mutation and invalidates the owner's cache entry so the next read
// reflects server truth.
func (r *Remote) AddItem(ctx context.Context, sess booking.Session, item booking.CartItem) (*booking.ValidationFailure, error) {
	if !sess.Authenticated() {
		return nil, ErrNoCredential
	}
	lock := r.ownerLock(sess.OwnerKey)
	lock.Lock()
	defer lock.Unlock()

	cart, err := r.CurrentCart(ctx, sess)
	if err != nil {
		return nil, err
	}
	if f := r.engine.Validate(ctx, sess, item, cart.Items); f != nil {
		return f, nil
	}

	body := addPayload{
		ProductID:        item.ItemID,
		Quantity:         item.Quantity,
		ProductDate:      item.ScheduledDate,
		ProductStartTime: item.StartTime,
		DurationMinutes:  item.DurationMinutes,
		ProductType:      string(item.ProductType),
	}
	if err := r.do(ctx, sess, http.MethodPost, "/cart/add", body, nil); err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	r.cache.Invalidate(sess.OwnerKey)
	return nil, nil
}

// UpdateItemQuantity re-checks only availability (a quantity change on an
// already scheduled line cannot create a new conflict). Quantity zero is a
// removal.
func (r *Remote) UpdateItemQuantity(ctx context.Context, sess booking.Session, itemID int64, quantity int) (*booking.ValidationFailure, error) {
	if !sess.Authenticated() {
		return nil, ErrNoCredential
	}
	if quantity == 0 {
		return nil, r.RemoveItem(ctx, sess, itemID)
	}

	lock := r.ownerLock(sess.OwnerKey)
	lock.Lock()
	defer lock.Unlock()

	if f := r.engine.ValidateQuantity(ctx, sess, itemID, quantity); f != nil {
		return f, nil
	}
	if err := r.do(ctx, sess, http.MethodPut, "/cart/update", updatePayload{ProductID: itemID, Quantity: quantity}, nil); err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	r.cache.Invalidate(sess.OwnerKey)
	return nil, nil
}

func (r *Remote) RemoveItem(ctx context.Context, sess booking.Session, itemID int64) error {
	if !sess.Authenticated() {
		return ErrNoCredential
	}
	lock := r.ownerLock(sess.OwnerKey)
	lock.Lock()
	defer lock.Unlock()

	if err := r.do(ctx, sess, http.MethodDelete, fmt.Sprintf("/cart/item/%d", itemID), nil, nil); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	r.cache.Invalidate(sess.OwnerKey)
	return nil
}

func (r *Remote) Clear(ctx context.Context, sess booking.Session) error {
	if !sess.Authenticated() {
		return ErrNoCredential
	}
	lock := r.ownerLock(sess.OwnerKey)
	lock.Lock()
	defer lock.Unlock()

	if err := r.do(ctx, sess, http.MethodDelete, "/cart/clear", nil, nil); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	r.cache.Invalidate(sess.OwnerKey)
	return nil
}

func (r *Remote) do(ctx context.Context, sess booking.Session, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sess.Bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("cart service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrItemNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("cart service: status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode cart response: %w", err)
		}
	}
	return nil
}
