package cartstore

import (
	"sync"

	"tourcart/internal/booking"
)

// Cache is the authenticated store's read-through cache, keyed by owner.
// The server cart stays authoritative: entries are only ever filled from a
// fresh read and dropped after a successful mutation, never written
// speculatively. Invalidation touches exactly one owner.
type Cache struct {
	mu    sync.RWMutex
	carts map[string]*booking.Cart
}

func NewCache() *Cache {
	return &Cache{carts: make(map[string]*booking.Cart)}
}

func (c *Cache) Get(ownerKey string) (*booking.Cart, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cart, ok := c.carts[ownerKey]
	return cart, ok
}

func (c *Cache) Set(ownerKey string, cart *booking.Cart) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[ownerKey] = cart
}

func (c *Cache) Invalidate(ownerKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, ownerKey)
}
