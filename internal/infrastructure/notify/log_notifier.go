package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/waterworks/backend/internal/domain/shared"
)

// LogNotifier implements shared.Notifier by writing notifications to the
// application log. It is the fallback channel when Redis is disabled,
// keeping the notification stream visible in single-node deployments.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs instead of publishing
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(ctx context.Context, eventType string, payload map[string]interface{}, audience string) {
	n.logger.Info("notification",
		zap.String("event_type", eventType),
		zap.String("audience", audience),
		zap.Any("payload", payload),
	)
}

// Ensure LogNotifier implements Notifier
var _ shared.Notifier = (*LogNotifier)(nil)
