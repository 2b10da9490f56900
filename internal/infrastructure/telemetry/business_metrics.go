// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the billing engine.
// It tracks reading intake, invoicing activity, and receivables health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	readingRegisteredTotal *Counter
	invoiceGeneratedTotal  *Counter
	invoiceAmountTotal     *Counter
	paymentAppliedTotal    *Counter
	paymentAmountTotal     *Counter

	// Gauge metrics (point-in-time values)
	invoiceOutstandingBalance *Gauge
	invoiceOverdueCount       *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	billingProvider BillingMetricsProvider
}

// BillingMetricsProvider provides receivables data for periodic metrics
// collection. This interface allows the telemetry layer to query invoice
// state without depending on the billing domain directly.
type BillingMetricsProvider interface {
	// GetOutstandingBalanceByPeriod returns the summed open invoice balance per billing period
	GetOutstandingBalanceByPeriod(ctx context.Context) (map[string]decimal.Decimal, error)

	// GetOverdueInvoiceCount returns the number of invoices past their due date with an open balance
	GetOverdueInvoiceCount(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	BillingProvider BillingMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		billingProvider: cfg.BillingProvider,
	}

	// Initialize counter metrics
	var err error

	// Reading metrics
	bm.readingRegisteredTotal, err = NewCounter(
		cfg.Meter,
		"waterworks_reading_registered_total",
		"Total number of meter readings registered",
		"{readings}",
	)
	if err != nil {
		return nil, err
	}

	// Invoice metrics
	bm.invoiceGeneratedTotal, err = NewCounter(
		cfg.Meter,
		"waterworks_invoice_generated_total",
		"Total number of invoices generated",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoiceAmountTotal, err = NewCounter(
		cfg.Meter,
		"waterworks_invoice_amount_total",
		"Total invoiced amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Payment metrics
	bm.paymentAppliedTotal, err = NewCounter(
		cfg.Meter,
		"waterworks_payment_applied_total",
		"Total number of payments applied to invoices",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentAmountTotal, err = NewCounter(
		cfg.Meter,
		"waterworks_payment_amount_total",
		"Total amount applied to invoice balances in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Receivables gauge metrics
	bm.invoiceOutstandingBalance, err = NewGauge(
		cfg.Meter,
		"waterworks_invoice_outstanding_balance",
		"Current open invoice balance in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoiceOverdueCount, err = NewGauge(
		cfg.Meter,
		"waterworks_invoice_overdue_count",
		"Number of invoices past their due date with an open balance",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Reading Metrics
// =============================================================================

// RecordReadingRegistered records a registered meter reading.
// This should be called from the application layer when a reading is accepted.
func (bm *BusinessMetrics) RecordReadingRegistered(ctx context.Context, routeID uuid.UUID, period string) {
	bm.readingRegisteredTotal.Inc(ctx,
		AttrRouteID.String(routeID.String()),
		AttrPeriod.String(period),
	)
}

// =============================================================================
// Invoice Metrics
// =============================================================================

// RecordInvoiceGenerated records an invoice generation event.
// This should be called from the application layer when an invoice is emitted.
func (bm *BusinessMetrics) RecordInvoiceGenerated(ctx context.Context, period string) {
	bm.invoiceGeneratedTotal.Inc(ctx,
		AttrPeriod.String(period),
	)
}

// RecordInvoiceAmount records the invoiced amount.
// Amount should be in the smallest currency unit (cents).
func (bm *BusinessMetrics) RecordInvoiceAmount(ctx context.Context, period string, amountCents int64) {
	bm.invoiceAmountTotal.Add(ctx, amountCents,
		AttrPeriod.String(period),
	)
}

// RecordInvoiceWithTotal is a convenience method that records both invoice count and amount.
func (bm *BusinessMetrics) RecordInvoiceWithTotal(ctx context.Context, period string, total decimal.Decimal) {
	bm.RecordInvoiceGenerated(ctx, period)

	// Convert to cents (multiply by 100)
	amountCents := total.Mul(decimal.NewFromInt(100)).IntPart()
	bm.RecordInvoiceAmount(ctx, period, amountCents)
}

// =============================================================================
// Payment Metrics
// =============================================================================

// RecordPaymentApplied records a payment applied to an invoice.
// Applied is the portion of the tender that went to the invoice balance.
func (bm *BusinessMetrics) RecordPaymentApplied(ctx context.Context, method string, applied decimal.Decimal) {
	attrs := []attribute.KeyValue{
		AttrPaymentMethod.String(method),
	}

	bm.paymentAppliedTotal.Inc(ctx, attrs...)

	appliedCents := applied.Mul(decimal.NewFromInt(100)).IntPart()
	bm.paymentAmountTotal.Add(ctx, appliedCents, attrs...)
}

// =============================================================================
// Receivables Metrics
// =============================================================================

// RecordOutstandingBalance records the current open balance for a billing period.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOutstandingBalance(ctx context.Context, period string, balanceCents int64) {
	bm.invoiceOutstandingBalance.Record(ctx, balanceCents,
		AttrPeriod.String(period),
	)
}

// RecordOverdueInvoiceCount records the number of invoices past due with an open balance.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOverdueInvoiceCount(ctx context.Context, count int64) {
	bm.invoiceOverdueCount.Record(ctx, count)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects receivables metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectReceivablesMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectReceivablesMetrics(ctx)
		}
	}
}

// collectReceivablesMetrics refreshes the receivables gauge metrics.
func (bm *BusinessMetrics) collectReceivablesMetrics(ctx context.Context) {
	if bm.billingProvider == nil {
		bm.logger.Debug("No billing provider configured, skipping receivables metrics collection")
		return
	}

	// Collect open balance by billing period
	outstandingByPeriod, err := bm.billingProvider.GetOutstandingBalanceByPeriod(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get outstanding balance by period",
			zap.Error(err),
		)
	} else {
		for period, balance := range outstandingByPeriod {
			balanceCents := balance.Mul(decimal.NewFromInt(100)).IntPart()
			bm.RecordOutstandingBalance(ctx, period, balanceCents)
		}
	}

	// Collect overdue invoice count
	overdueCount, err := bm.billingProvider.GetOverdueInvoiceCount(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get overdue invoice count",
			zap.Error(err),
		)
	} else {
		bm.RecordOverdueInvoiceCount(ctx, overdueCount)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
