package notifications

import "context"

// Sink is the fire-and-forget channel for surfacing human-readable messages
// to a session (validation rejections, offline warnings, merge outcomes).
// Implementations must never block a cart mutation on delivery and must
// swallow delivery failures after logging them.
type Sink interface {
	Notify(ctx context.Context, ownerKey, title, body string)
}
