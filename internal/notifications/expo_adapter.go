package notifications

import (
	"context"

	"github.com/9ssi7/exponent"
	"go.uber.org/zap"
)

// TokenLookup resolves an owner key to the session's Expo push tokens.
// The gateway keeps this mapping; the adapter stays agnostic to it.
type TokenLookup func(ownerKey string) []string

// ExpoAdapter delivers notifications as Expo push messages.
type ExpoAdapter struct {
	client *exponent.Client
	tokens TokenLookup
	logger *zap.SugaredLogger
}

func NewExpoAdapter(c *exponent.Client, tokens TokenLookup, logger *zap.SugaredLogger) *ExpoAdapter {
	return &ExpoAdapter{client: c, tokens: tokens, logger: logger}
}

func (a *ExpoAdapter) Notify(ctx context.Context, ownerKey, title, body string) {
	raw := a.tokens(ownerKey)
	if len(raw) == 0 {
		return
	}

	msgs := make([]*exponent.Message, 0, len(raw))
	for _, t := range raw {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
		})
	}

	if _, err := a.client.Publish(ctx, msgs); err != nil {
		a.logger.Errorw("push notification failed", "owner", ownerKey, "error", err)
	}
}
