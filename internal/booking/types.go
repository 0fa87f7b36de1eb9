package booking

import (
	"fmt"
	"time"
)

// ProductType is the fixed set of bookable product kinds the marketplace
// sells. Anything else in a payload is rejected up front.
type ProductType string

const (
	ProductTour   ProductType = "tour"
	ProductLesson ProductType = "lesson"
	ProductRental ProductType = "rental"
	ProductTicket ProductType = "ticket"
)

func (p ProductType) Valid() bool {
	switch p {
	case ProductTour, ProductLesson, ProductRental, ProductTicket:
		return true
	}
	return false
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// CartItem is one selection in a cart, either a candidate being validated or
// a line already held by a store. ItemID is stable across the guest and
// authenticated stores, so the same selection keeps its identity through a
// merge. TemplateID and VendorID are back-references only.
type CartItem struct {
	ItemID          int64       `json:"item_id"`
	TemplateID      int64       `json:"template_id"`
	VendorID        int64       `json:"vendor_id"`
	Quantity        int         `json:"quantity"`
	UnitPriceCents  int64       `json:"unit_price_cents"`
	ScheduledDate   *string     `json:"scheduled_date,omitempty"`  // 2006-01-02
	StartTime       *string     `json:"start_time,omitempty"`      // 15:04
	DurationMinutes int         `json:"duration_minutes,omitempty"`
	ProductType     ProductType `json:"product_type"`
}

// Scheduled reports whether the item carries a reservation window at all.
// Unscheduled items (open-ended rentals, general-admission tickets) are
// exempt from conflict checking but still quantity-checked.
func (ci CartItem) Scheduled() bool {
	return ci.ScheduledDate != nil && ci.StartTime != nil && ci.DurationMinutes > 0
}

// Window resolves the item's half-open reservation interval. ok is false for
// unscheduled items; err is non-nil when the item claims a schedule but the
// date or time fields do not parse.
func (ci CartItem) Window() (w Window, ok bool, err error) {
	if !ci.Scheduled() {
		return Window{}, false, nil
	}
	day, err := time.Parse(dateLayout, *ci.ScheduledDate)
	if err != nil {
		return Window{}, false, fmt.Errorf("scheduled date %q: %w", *ci.ScheduledDate, err)
	}
	clock, err := time.Parse(timeLayout, *ci.StartTime)
	if err != nil {
		return Window{}, false, fmt.Errorf("start time %q: %w", *ci.StartTime, err)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	return Window{
		Start: start,
		End:   start.Add(time.Duration(ci.DurationMinutes) * time.Minute),
	}, true, nil
}

// Window is a half-open reservation interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps implements half-open interval overlap: touching endpoints do not
// conflict, so a 10:00–11:00 lesson and an 11:00–12:00 tour coexist.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Cart is the aggregate. Items keep their insertion order (merge outcomes
// depend on it) while staying unique per ItemID. Total is always derived
// from the items, never cached across mutations.
type Cart struct {
	OwnerKey  string     `json:"owner_key"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Item returns the line for id, or nil.
func (c *Cart) Item(id int64) *CartItem {
	for i := range c.Items {
		if c.Items[i].ItemID == id {
			return &c.Items[i]
		}
	}
	return nil
}

// Upsert adds the item, merging quantity into an existing line with the same
// ItemID instead of duplicating the entry.
func (c *Cart) Upsert(item CartItem) {
	if existing := c.Item(item.ItemID); existing != nil {
		existing.Quantity += item.Quantity
		existing.UnitPriceCents = item.UnitPriceCents
	} else {
		c.Items = append(c.Items, item)
	}
	c.UpdatedAt = time.Now()
}

// SetQuantity updates the line for id; quantity zero removes it. Reports
// whether the line existed.
func (c *Cart) SetQuantity(id int64, quantity int) bool {
	if quantity == 0 {
		return c.Remove(id)
	}
	existing := c.Item(id)
	if existing == nil {
		return false
	}
	existing.Quantity = quantity
	c.UpdatedAt = time.Now()
	return true
}

// Remove drops the line for id, preserving the order of the rest.
func (c *Cart) Remove(id int64) bool {
	for i := range c.Items {
		if c.Items[i].ItemID == id {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

func (c *Cart) Empty() bool { return len(c.Items) == 0 }

// TotalCents recomputes the cart total from its lines.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	return total
}

// Session identifies who a cart operation runs for. Bearer is empty for
// guest sessions; authenticated operations hand it to the external services.
type Session struct {
	OwnerKey string
	Bearer   string
}

func (s Session) Authenticated() bool { return s.Bearer != "" }
