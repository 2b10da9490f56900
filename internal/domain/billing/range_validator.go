package billing

import (
	"sort"

	"github.com/waterworks/backend/internal/domain/shared"
)

// ValidateRangeSet checks a complete candidate tier set for a tariff.
// It is a full pre-check: callers persist the set only when this returns
// nil, so a rejected batch never writes anything.
//
// Check order is fixed because the first violation is the one reported:
// per-range bounds, duplicate (min,max) pairs, a range's min colliding
// with another range's max (ambiguous boundary), then contiguity over the
// min-sorted set.
func ValidateRangeSet(ranges []TariffRange) error {
	if len(ranges) == 0 {
		return shared.NewValidationError("tariff has no ranges defined")
	}

	for i := range ranges {
		if err := validateRangeBounds(ranges[i].MinM3, ranges[i].MaxM3, ranges[i].PricePerM3); err != nil {
			return err
		}
	}

	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].MinM3 == ranges[j].MinM3 && ranges[i].MaxM3 == ranges[j].MaxM3 {
				return shared.NewValidationError("duplicate range [%d,%d]", ranges[i].MinM3, ranges[i].MaxM3)
			}
		}
	}

	for i := range ranges {
		for j := range ranges {
			if i == j {
				continue
			}
			if ranges[i].MinM3 == ranges[j].MaxM3 {
				return shared.NewValidationError("range minimum %d collides with another range's maximum", ranges[i].MinM3)
			}
		}
	}

	sorted := SortRangesByMin(ranges)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinM3 != sorted[i-1].MaxM3+1 {
			return shared.NewValidationError("gap between ranges [%d,%d] and [%d,%d]: tiers must be contiguous",
				sorted[i-1].MinM3, sorted[i-1].MaxM3, sorted[i].MinM3, sorted[i].MaxM3)
		}
	}

	return nil
}

// SortRangesByMin returns a copy of the ranges ordered by minimum ascending
func SortRangesByMin(ranges []TariffRange) []TariffRange {
	sorted := make([]TariffRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinM3 < sorted[j].MinM3
	})
	return sorted
}
