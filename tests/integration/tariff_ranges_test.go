// Integration tests for tariff range registration and modification:
// full pre-validation against the submitted batch, no partial writes on
// rejection, and in-place updates by range id.
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
	"github.com/waterworks/backend/internal/domain/shared"
)

func createBareTariff(t *testing.T, ctx context.Context, setup *BillingTestSetup, name string) uuid.UUID {
	t.Helper()
	tariff, err := setup.Tariffs.Create(ctx, billingapp.CreateTariffRequest{
		Name:     name,
		StartsOn: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return tariff.ID
}

func tier(minM3, maxM3 int64, price float64) billingapp.TariffRangeInput {
	p := decimal.NewFromFloat(price)
	return billingapp.TariffRangeInput{MinM3: &minM3, MaxM3: &maxM3, PricePerM3: &p}
}

func tierWithID(id uuid.UUID, minM3, maxM3 int64, price float64) billingapp.TariffRangeInput {
	in := tier(minM3, maxM3, price)
	in.ID = &id
	return in
}

func TestTariffRanges_Registration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	t.Run("contiguous ranges are accepted", func(t *testing.T) {
		tariffID := createBareTariff(t, ctx, setup, "Contiguous")

		resp, err := setup.Tariffs.RegisterRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				tier(0, 10, 5.00),
				tier(11, 20, 1.20),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Processed)

		stored, err := setup.Tariffs.GetByID(ctx, tariffID)
		require.NoError(t, err)
		require.Len(t, stored.Ranges, 2)
		// Persisted ordered by minimum ascending.
		assert.Equal(t, int64(0), stored.Ranges[0].MinM3)
		assert.Equal(t, int64(11), stored.Ranges[1].MinM3)
	})

	t.Run("a gap between consecutive ranges is rejected with no writes", func(t *testing.T) {
		tariffID := createBareTariff(t, ctx, setup, "Gapped")

		_, err := setup.Tariffs.RegisterRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				tier(0, 10, 5.00),
				tier(12, 20, 1.20),
			},
		})
		requireDomainCode(t, err, shared.CodeValidation)

		stored, err := setup.Tariffs.GetByID(ctx, tariffID)
		require.NoError(t, err)
		assert.Empty(t, stored.Ranges, "validation failure must not persist any range")
	})

	t.Run("duplicate bounds in the same batch are rejected", func(t *testing.T) {
		tariffID := createBareTariff(t, ctx, setup, "Duplicated")

		_, err := setup.Tariffs.RegisterRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				tier(0, 10, 5.00),
				tier(0, 10, 4.00),
			},
		})
		requireDomainCode(t, err, shared.CodeValidation)
	})

	t.Run("a minimum equal to another range's maximum is rejected", func(t *testing.T) {
		tariffID := createBareTariff(t, ctx, setup, "Boundary")

		_, err := setup.Tariffs.RegisterRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				tier(0, 10, 5.00),
				tier(10, 20, 1.20),
			},
		})
		requireDomainCode(t, err, shared.CodeValidation)
	})

	t.Run("inverted bounds are rejected", func(t *testing.T) {
		tariffID := createBareTariff(t, ctx, setup, "Inverted")

		_, err := setup.Tariffs.RegisterRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				tier(10, 10, 5.00),
			},
		})
		requireDomainCode(t, err, shared.CodeValidation)
	})

	t.Run("negative price is rejected", func(t *testing.T) {
		tariffID := createBareTariff(t, ctx, setup, "Negative")

		_, err := setup.Tariffs.RegisterRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				tier(0, 10, -1.00),
			},
		})
		requireDomainCode(t, err, shared.CodeValidation)
	})

	t.Run("a range without a stated minimum is rejected with no writes", func(t *testing.T) {
		tariffID := createBareTariff(t, ctx, setup, "Unbounded")

		// An omitted bound must not default to 0 and be persisted.
		missing := tier(0, 10, 5.00)
		missing.MinM3 = nil
		_, err := setup.Tariffs.RegisterRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				missing,
				tier(11, 20, 1.20),
			},
		})
		requireDomainCode(t, err, shared.CodeValidation)

		stored, err := setup.Tariffs.GetByID(ctx, tariffID)
		require.NoError(t, err)
		assert.Empty(t, stored.Ranges)
	})

	t.Run("unknown tariff fails with not found", func(t *testing.T) {
		_, err := setup.Tariffs.RegisterRanges(ctx, uuid.New(), billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				tier(0, 10, 5.00),
			},
		})
		requireDomainCode(t, err, shared.CodeNotFound)
	})
}

func TestTariffRanges_Modification(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	tariffID := createBareTariff(t, ctx, setup, "Modifiable")

	_, err := setup.Tariffs.RegisterRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
		Ranges: []billingapp.TariffRangeInput{
			tier(0, 10, 5.00),
			tier(11, 20, 1.20),
		},
	})
	require.NoError(t, err)

	stored, err := setup.Tariffs.GetByID(ctx, tariffID)
	require.NoError(t, err)
	require.Len(t, stored.Ranges, 2)
	firstID := stored.Ranges[0].ID
	secondID := stored.Ranges[1].ID

	t.Run("tiers with ids update in place, the rest insert", func(t *testing.T) {
		resp, err := setup.Tariffs.ModifyRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				tierWithID(firstID, 0, 10, 6.00),
				tierWithID(secondID, 11, 30, 1.50),
				tier(31, 100, 2.50),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Processed)

		updated, err := setup.Tariffs.GetByID(ctx, tariffID)
		require.NoError(t, err)
		require.Len(t, updated.Ranges, 3, "two updates plus one insert")

		assert.Equal(t, firstID, updated.Ranges[0].ID, "first tier rewritten under its original id")
		assert.True(t, decimal.NewFromFloat(6.00).Equal(updated.Ranges[0].PricePerM3))
		assert.Equal(t, int64(30), updated.Ranges[1].MaxM3)
		assert.Equal(t, int64(31), updated.Ranges[2].MinM3)
	})

	t.Run("modification referencing a foreign range id fails", func(t *testing.T) {
		ghost := uuid.New()
		_, err := setup.Tariffs.ModifyRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				tierWithID(ghost, 0, 10, 5.00),
			},
		})
		requireDomainCode(t, err, shared.CodeNotFound)
	})

	t.Run("modification is validated as a complete batch", func(t *testing.T) {
		// Moving only the first tier's bounds so it no longer touches the
		// second must fail, even though each tier is valid in isolation.
		_, err := setup.Tariffs.ModifyRanges(ctx, tariffID, billingapp.RegisterRangesRequest{
			Ranges: []billingapp.TariffRangeInput{
				tierWithID(firstID, 0, 5, 6.00),
				tierWithID(secondID, 11, 30, 1.50),
			},
		})
		requireDomainCode(t, err, shared.CodeValidation)
	})
}
