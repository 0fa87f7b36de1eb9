package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CallAsync runs a fire-and-forget side effect (push, mail) on its own
// context so it survives the request that triggered it. Panics and errors
// are logged and dropped; delivery must never fail a cart operation.
func CallAsync(fn func(ctx context.Context) error) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				zap.S().Errorw("async notification panicked", "panic", rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := fn(ctx); err != nil {
			zap.S().Errorw("async notification failed", "error", err)
		}
	}()
}
