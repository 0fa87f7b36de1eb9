package notifications

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes notifications to the application log. Used when no push
// credential is configured and as the delivery path for guest sessions that
// never registered a push token.
type LogSink struct {
	logger *zap.SugaredLogger
}

func NewLogSink(logger *zap.SugaredLogger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(_ context.Context, ownerKey, title, body string) {
	s.logger.Infow("notification", "owner", ownerKey, "title", title, "body", body)
}
