package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/shared"
)

// TariffRange is one consumption tier of a tariff: the [MinM3, MaxM3] band
// (inclusive, whole cubic meters) priced at PricePerM3. Bands of a tariff
// are contiguous; the last band also prices all consumption beyond its max.
type TariffRange struct {
	shared.BaseEntity
	TariffID   uuid.UUID
	MinM3      int64
	MaxM3      int64
	PricePerM3 decimal.Decimal
}

// NewTariffRange creates a consumption tier for a tariff
func NewTariffRange(tariffID uuid.UUID, minM3, maxM3 int64, pricePerM3 decimal.Decimal) (*TariffRange, error) {
	if tariffID == uuid.Nil {
		return nil, shared.NewValidationError("tariff id is required")
	}
	if err := validateRangeBounds(minM3, maxM3, pricePerM3); err != nil {
		return nil, err
	}

	return &TariffRange{
		BaseEntity: shared.NewBaseEntity(),
		TariffID:   tariffID,
		MinM3:      minM3,
		MaxM3:      maxM3,
		PricePerM3: pricePerM3,
	}, nil
}

// UpdateBounds rewrites the tier in place (modify-ranges path)
func (r *TariffRange) UpdateBounds(minM3, maxM3 int64, pricePerM3 decimal.Decimal) error {
	if err := validateRangeBounds(minM3, maxM3, pricePerM3); err != nil {
		return err
	}

	r.MinM3 = minM3
	r.MaxM3 = maxM3
	r.PricePerM3 = pricePerM3
	r.UpdatedAt = time.Now()

	return nil
}

// Contains reports whether the whole-m³ value falls inside the band
func (r *TariffRange) Contains(m3 int64) bool {
	return m3 >= r.MinM3 && m3 <= r.MaxM3
}

func validateRangeBounds(minM3, maxM3 int64, pricePerM3 decimal.Decimal) error {
	if minM3 < 0 {
		return shared.NewValidationError("range minimum cannot be negative")
	}
	if maxM3 < 0 {
		return shared.NewValidationError("range maximum cannot be negative")
	}
	if pricePerM3.IsNegative() {
		return shared.NewValidationError("range price cannot be negative")
	}
	if minM3 >= maxM3 {
		return shared.NewValidationError("range minimum %d must be below maximum %d", minM3, maxM3)
	}
	return nil
}
