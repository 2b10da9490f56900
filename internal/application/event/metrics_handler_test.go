package event

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"github.com/waterworks/backend/internal/infrastructure/telemetry"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// newMetricsHandler wires a handler to an in-memory metric reader so tests
// can assert on recorded counter values.
func newMetricsHandler(t *testing.T) (*BusinessMetricsHandler, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  provider.Meter("test"),
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	return NewBusinessMetricsHandler(bm, zaptest.NewLogger(t)), reader
}

// counterValue sums every data point of the named int64 counter.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s should be an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestBusinessMetricsHandler_Handle(t *testing.T) {
	t.Run("records reading registration", func(t *testing.T) {
		handler, reader := newMetricsHandler(t)

		readingID := uuid.New()
		event := &metering.ReadingRegisteredEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(metering.EventTypeReadingRegistered, metering.AggregateTypeReading, readingID),
			ReadingID:       readingID,
			MeterID:         uuid.New(),
			RouteID:         uuid.New(),
			Period:          "2025-06",
			ConsumptionM3:   decimal.RequireFromString("12.5"),
		}

		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)

		assert.Equal(t, int64(1), counterValue(t, reader, "waterworks_reading_registered_total"))
	})

	t.Run("records invoice count and amount", func(t *testing.T) {
		handler, reader := newMetricsHandler(t)

		invoiceID := uuid.New()
		event := &billing.InvoiceGeneratedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(billing.EventTypeInvoiceGenerated, billing.AggregateTypeInvoice, invoiceID),
			InvoiceID:       invoiceID,
			ReadingID:       uuid.New(),
			CustomerID:      uuid.New(),
			TariffID:        uuid.New(),
			Period:          "2025-06",
			ConsumptionM3:   decimal.RequireFromString("12.5"),
			Total:           valueobject.NewMoneyUSD(decimal.RequireFromString("42.50")),
		}

		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)

		assert.Equal(t, int64(1), counterValue(t, reader, "waterworks_invoice_generated_total"))
		assert.Equal(t, int64(4250), counterValue(t, reader, "waterworks_invoice_amount_total"))
	})

	t.Run("records payment count and applied amount", func(t *testing.T) {
		handler, reader := newMetricsHandler(t)

		invoiceID := uuid.New()
		event := &billing.PaymentAppliedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(billing.EventTypePaymentApplied, billing.AggregateTypeInvoice, invoiceID),
			PaymentID:       uuid.New(),
			InvoiceID:       invoiceID,
			Tendered:        valueobject.NewMoneyUSD(decimal.RequireFromString("50.00")),
			Applied:         valueobject.NewMoneyUSD(decimal.RequireFromString("30.25")),
			Change:          valueobject.NewMoneyUSD(decimal.RequireFromString("19.75")),
			Method:          "cash",
		}

		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)

		assert.Equal(t, int64(1), counterValue(t, reader, "waterworks_payment_applied_total"))
		assert.Equal(t, int64(3025), counterValue(t, reader, "waterworks_payment_amount_total"))
	})

	t.Run("returns error for unexpected event type", func(t *testing.T) {
		handler, _ := newMetricsHandler(t)

		tariff := &billing.Tariff{}
		tariff.ID = uuid.New()
		wrongEvent := billing.NewTariffCreatedEvent(tariff)

		err := handler.Handle(context.Background(), wrongEvent)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})

	t.Run("is a no-op without metrics", func(t *testing.T) {
		handler := NewBusinessMetricsHandler(nil, zap.NewNop())

		event := &metering.ReadingRegisteredEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(metering.EventTypeReadingRegistered, metering.AggregateTypeReading, uuid.New()),
		}

		err := handler.Handle(context.Background(), event)
		assert.NoError(t, err)
	})
}

func TestBusinessMetricsHandler_EventTypes(t *testing.T) {
	handler := NewBusinessMetricsHandler(nil, zap.NewNop())

	eventTypes := handler.EventTypes()
	assert.Len(t, eventTypes, 3)
	assert.Contains(t, eventTypes, metering.EventTypeReadingRegistered)
	assert.Contains(t, eventTypes, billing.EventTypeInvoiceGenerated)
	assert.Contains(t, eventTypes, billing.EventTypePaymentApplied)
}
