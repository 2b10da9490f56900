// Package event contains application-level consumers for domain events
// published on the in-memory event bus.
package event

import (
	"context"
	"fmt"

	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BusinessMetricsHandler feeds domain events into the business metrics
// counters. It subscribes to the reading, invoice, and payment events and
// translates each one into a counter update, keeping the application
// services free of any metrics dependency.
type BusinessMetricsHandler struct {
	logger  *zap.Logger
	metrics *telemetry.BusinessMetrics
}

// NewBusinessMetricsHandler creates a handler that records business metrics
// for the events it receives.
func NewBusinessMetricsHandler(metrics *telemetry.BusinessMetrics, logger *zap.Logger) *BusinessMetricsHandler {
	return &BusinessMetricsHandler{
		logger:  logger,
		metrics: metrics,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *BusinessMetricsHandler) EventTypes() []string {
	return []string{
		metering.EventTypeReadingRegistered,
		billing.EventTypeInvoiceGenerated,
		billing.EventTypePaymentApplied,
	}
}

// Handle records the counter update matching the received event
func (h *BusinessMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.metrics == nil {
		return nil
	}

	switch e := event.(type) {
	case *metering.ReadingRegisteredEvent:
		h.metrics.RecordReadingRegistered(ctx, e.RouteID, e.Period)
	case *billing.InvoiceGeneratedEvent:
		h.metrics.RecordInvoiceWithTotal(ctx, e.Period, e.Total.Amount())
	case *billing.PaymentAppliedEvent:
		h.metrics.RecordPaymentApplied(ctx, e.Method, e.Applied.Amount())
	default:
		h.logger.Error("unexpected event type",
			zap.String("event_type", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	return nil
}

// Ensure BusinessMetricsHandler implements shared.EventHandler
var _ shared.EventHandler = (*BusinessMetricsHandler)(nil)
