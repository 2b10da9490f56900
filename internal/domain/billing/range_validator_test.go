package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tier(minM3, maxM3 int64, price string) TariffRange {
	return TariffRange{
		MinM3:      minM3,
		MaxM3:      maxM3,
		PricePerM3: decimal.RequireFromString(price),
	}
}

func TestValidateRangeSet(t *testing.T) {
	t.Run("accepts contiguous ranges", func(t *testing.T) {
		err := ValidateRangeSet([]TariffRange{
			tier(0, 10, "5.00"),
			tier(11, 20, "1.20"),
			tier(21, 30, "2.00"),
		})

		assert.NoError(t, err)
	})

	t.Run("accepts contiguous ranges given out of order", func(t *testing.T) {
		err := ValidateRangeSet([]TariffRange{
			tier(11, 20, "1.20"),
			tier(0, 10, "5.00"),
		})

		assert.NoError(t, err)
	})

	t.Run("accepts a single range", func(t *testing.T) {
		err := ValidateRangeSet([]TariffRange{tier(0, 10, "5.00")})

		assert.NoError(t, err)
	})

	t.Run("rejects empty set", func(t *testing.T) {
		err := ValidateRangeSet(nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no ranges defined")
	})

	t.Run("rejects gap between ranges", func(t *testing.T) {
		err := ValidateRangeSet([]TariffRange{
			tier(0, 10, "5.00"),
			tier(12, 20, "1.20"),
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "tiers must be contiguous")
	})

	t.Run("rejects duplicate bounds", func(t *testing.T) {
		err := ValidateRangeSet([]TariffRange{
			tier(0, 10, "5.00"),
			tier(0, 10, "1.20"),
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate range [0,10]")
	})

	t.Run("rejects minimum equal to another maximum", func(t *testing.T) {
		err := ValidateRangeSet([]TariffRange{
			tier(0, 10, "5.00"),
			tier(10, 20, "1.20"),
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "collides with another range's maximum")
	})

	t.Run("rejects negative minimum", func(t *testing.T) {
		err := ValidateRangeSet([]TariffRange{tier(-1, 10, "5.00")})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "minimum cannot be negative")
	})

	t.Run("rejects minimum not below maximum", func(t *testing.T) {
		err := ValidateRangeSet([]TariffRange{tier(10, 10, "5.00")})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be below maximum")
	})

	t.Run("rejects negative price", func(t *testing.T) {
		err := ValidateRangeSet([]TariffRange{tier(0, 10, "-5.00")})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "price cannot be negative")
	})

	t.Run("reports bounds violation before duplicate check", func(t *testing.T) {
		err := ValidateRangeSet([]TariffRange{
			tier(10, 5, "5.00"),
			tier(10, 5, "5.00"),
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be below maximum")
	})
}

func TestSortRangesByMin(t *testing.T) {
	ranges := []TariffRange{
		tier(21, 30, "2.00"),
		tier(0, 10, "5.00"),
		tier(11, 20, "1.20"),
	}

	sorted := SortRangesByMin(ranges)

	assert.Equal(t, int64(0), sorted[0].MinM3)
	assert.Equal(t, int64(11), sorted[1].MinM3)
	assert.Equal(t, int64(21), sorted[2].MinM3)
	// input untouched
	assert.Equal(t, int64(21), ranges[0].MinM3)
}
