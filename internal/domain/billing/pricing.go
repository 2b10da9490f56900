package billing

import (
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
)

// PriceConsumption computes the billed amount for a consumption value over
// a tariff's tier set. Tier lookup, not marginal pricing: exactly one tier
// prices the whole consumption.
//
// The consumption is floored to whole cubic meters for tier selection.
// Consumption inside the first tier bills that tier's price as a fixed
// minimum charge regardless of the actual consumption; consumption at or
// beyond the last tier's minimum bills consumption times the last tier's
// price; anything between bills consumption times the containing tier's
// price. The result is rounded to 2 decimal places.
func PriceConsumption(consumptionM3 decimal.Decimal, ranges []TariffRange) (valueobject.Money, error) {
	if consumptionM3.IsNegative() {
		return valueobject.Money{}, shared.NewValidationError("consumption cannot be negative")
	}
	if len(ranges) == 0 {
		return valueobject.Money{}, shared.NewValidationError("tariff has no ranges defined")
	}

	sorted := SortRangesByMin(ranges)
	floored := consumptionM3.Floor().IntPart()

	first := sorted[0]
	last := sorted[len(sorted)-1]

	var amount decimal.Decimal
	switch {
	case first.Contains(floored):
		// Fixed minimum charge for the first tier.
		amount = first.PricePerM3
	case floored >= last.MinM3:
		amount = consumptionM3.Mul(last.PricePerM3)
	default:
		matched := false
		for _, r := range sorted {
			if r.Contains(floored) {
				amount = consumptionM3.Mul(r.PricePerM3)
				matched = true
				break
			}
		}
		if !matched {
			return valueobject.Money{}, shared.NewValidationError("consumption outside defined ranges")
		}
	}

	return valueobject.NewMoneyUSD(amount.Round(2)), nil
}
