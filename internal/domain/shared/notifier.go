package shared

import "context"

// Notification audiences. Operational staff follow field activity (readings,
// meter moves); administrative staff follow money (invoices, payments).
const (
	AudienceOperations     = "operations"
	AudienceAdministration = "administration"
)

// Notifier delivers best-effort notifications to a named audience.
// Delivery is fire-and-forget: implementations swallow and log transport
// failures, and callers never treat a failed notification as a request
// failure.
type Notifier interface {
	Notify(ctx context.Context, eventType string, payload map[string]interface{}, audience string)
}

// NopNotifier discards all notifications. Useful in tests and as a default
// when no notification channel is configured.
type NopNotifier struct{}

// Notify implements Notifier
func (NopNotifier) Notify(ctx context.Context, eventType string, payload map[string]interface{}, audience string) {
}

var _ Notifier = (*NopNotifier)(nil)
