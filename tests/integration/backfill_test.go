// Integration tests for the bulk invoice backfill: qualification rules,
// partial-failure reporting, and idempotency of repeated runs.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingapp "github.com/waterworks/backend/internal/application/billing"
	customerapp "github.com/waterworks/backend/internal/application/customer"
	meteringapp "github.com/waterworks/backend/internal/application/metering"
	"github.com/waterworks/backend/internal/domain/shared"
)

// registerPendingReading records a reading while the customer has no
// tariff, so no invoice is generated, then assigns the tariff afterwards.
// This is how readings end up pending a backfill in production: the
// tariff assignment arrives after the field collection.
func registerPendingReading(t *testing.T, ctx context.Context, setup *BillingTestSetup, code, serial, period string, consumption int64, tariffID uuid.UUID) (customerID, readingID uuid.UUID) {
	t.Helper()

	customerID, meterID, routeID := setup.CreateServicePoint(t, ctx, code, serial, nil)

	resp, err := setup.Readings.Register(ctx, meteringapp.RegisterReadingRequest{
		MeterID:       meterID,
		RouteID:       routeID,
		Period:        period,
		ConsumptionM3: decimal.NewFromInt(consumption),
		ActingUserID:  uuid.New(),
	})
	require.NoError(t, err)
	require.Nil(t, resp.Invoice, "no tariff yet, reading must stay uninvoiced")

	_, err = setup.Customers.Update(ctx, customerID, customerapp.UpdateCustomerRequest{
		TariffID:     &tariffID,
		ActingUserID: uuid.New(),
	})
	require.NoError(t, err)

	return customerID, resp.Reading.ID
}

func TestBackfill_PartialFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	tariffID := setup.CreateStandardTariff(t, ctx)

	emptyTariff, err := setup.Tariffs.Create(ctx, billingapp.CreateTariffRequest{
		Name:     "Misconfigured Tariff",
		StartsOn: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Three qualifying readings for 2025-08; the second one's customer is
	// on a tariff with no ranges, so its generation must fail.
	_, reading1 := registerPendingReading(t, ctx, setup, "BF-001", "WM-1001", "2025-08", 15, tariffID)
	_, reading2 := registerPendingReading(t, ctx, setup, "BF-002", "WM-1002", "2025-08", 8, emptyTariff.ID)
	_, reading3 := registerPendingReading(t, ctx, setup, "BF-003", "WM-1003", "2025-08", 25, tariffID)

	// Non-qualifying noise: an unowned meter's reading for the same period
	// must not show up in the batch.
	route, err := setup.Routes.Create(ctx, meteringapp.CreateRouteRequest{Name: "Orphan Route"})
	require.NoError(t, err)
	orphanMeter, err := setup.Meters.Register(ctx, meteringapp.RegisterMeterRequest{
		SerialNumber: "WM-1999",
		RouteID:      &route.ID,
	})
	require.NoError(t, err)
	_, err = setup.Readings.Register(ctx, meteringapp.RegisterReadingRequest{
		MeterID:       orphanMeter.ID,
		RouteID:       route.ID,
		Period:        "2025-08",
		ConsumptionM3: decimal.NewFromInt(5),
		ActingUserID:  uuid.New(),
	})
	require.NoError(t, err)

	report, err := setup.Invoices.Backfill(ctx, billingapp.BackfillRequest{
		Period:       "2025-08",
		ActingUserID: uuid.New(),
	})
	require.NoError(t, err, "per-item failures must not abort the batch")

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Items, 3, "the orphan meter's reading must not qualify")

	outcomes := make(map[uuid.UUID]billingapp.BackfillItemResponse, len(report.Items))
	for _, item := range report.Items {
		outcomes[item.ReadingID] = item
	}

	assert.Equal(t, billingapp.BackfillOutcomeGenerated, outcomes[reading1].Outcome)
	assert.Equal(t, billingapp.BackfillOutcomeGenerated, outcomes[reading3].Outcome)

	failed := outcomes[reading2]
	assert.Equal(t, billingapp.BackfillOutcomeFailed, failed.Outcome)
	assert.Contains(t, failed.Error, "no ranges defined")
	assert.Equal(t, "WM-1002", failed.MeterSerial)
	assert.Nil(t, failed.InvoiceID)

	// The two successes are persisted regardless of the sibling failure.
	for _, readingID := range []uuid.UUID{reading1, reading3} {
		exists, err := setup.InvoiceRepo.ExistsForReading(ctx, readingID)
		require.NoError(t, err)
		assert.True(t, exists)
	}
	exists, err := setup.InvoiceRepo.ExistsForReading(ctx, reading2)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBackfill_NoPendingReadings(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	report, err := setup.Invoices.Backfill(ctx, billingapp.BackfillRequest{
		Period:       "2025-08",
		ActingUserID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, report.Items)
	assert.Equal(t, "no readings pending", report.Message)
}

func TestBackfill_RerunSkipsInvoicedReadings(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	tariffID := setup.CreateStandardTariff(t, ctx)
	registerPendingReading(t, ctx, setup, "BF-010", "WM-1010", "2025-08", 15, tariffID)

	first, err := setup.Invoices.Backfill(ctx, billingapp.BackfillRequest{
		Period:       "2025-08",
		ActingUserID: uuid.New(),
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.Succeeded)

	second, err := setup.Invoices.Backfill(ctx, billingapp.BackfillRequest{
		Period:       "2025-08",
		ActingUserID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 0, second.Failed)
	assert.Equal(t, "no readings pending", second.Message)

	_, total, err := setup.Invoices.List(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestBackfill_InvalidPeriod(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	_, err := setup.Invoices.Backfill(ctx, billingapp.BackfillRequest{
		Period:       "August 2025",
		ActingUserID: uuid.New(),
	})
	requireDomainCode(t, err, shared.CodeValidation)
}
