package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const StatusPublished = "PUBLISHED"

var (
	// ErrNotFound is a definite negative: the service answered and the item
	// does not exist. Callers must treat it as unavailable.
	ErrNotFound = errors.New("product item not found")

	// ErrUnreachable marks transport-level failure (connection refused,
	// timeout, 5xx). The validation engine degrades to an optimistic add on
	// this error instead of blocking the user.
	ErrUnreachable = errors.New("inventory service unreachable")
)

// ProductItem is the live stock view of one bookable unit.
type ProductItem struct {
	ID                int64  `json:"id"`
	QuantityAvailable int    `json:"quantityAvailable"`
	ItemStatus        string `json:"itemStatus"`
}

func (p *ProductItem) Published() bool { return p.ItemStatus == StatusPublished }

// Client reads product items from the inventory service. The same endpoint
// serves both session kinds: guest reads go out bare, authenticated reads
// carry the session's bearer token.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Get fetches the current state of one product item. An empty bearer selects
// the unauthenticated read path.
func (c *Client) Get(ctx context.Context, id int64, bearer string) (*ProductItem, error) {
	url := fmt.Sprintf("%s/product-items/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build inventory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("inventory query for item %d: status %d", id, resp.StatusCode)
	}

	var item ProductItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode product item %d: %w", id, err)
	}
	return &item, nil
}
