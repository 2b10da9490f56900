package metering

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
)

// Reading is one recorded consumption value for a meter in a billing
// period. At most one reading exists per (meter, period); the database
// unique constraint is the authoritative guard, the application pre-check
// is a fast path.
type Reading struct {
	shared.BaseAggregateRoot
	MeterID       uuid.UUID
	RouteID       uuid.UUID
	Period        valueobject.Period
	ConsumptionM3 decimal.Decimal
	ReadOn        time.Time
	RecordedBy    uuid.UUID
}

// NewReading records a consumption value for a meter in a period
func NewReading(meterID, routeID uuid.UUID, period valueobject.Period, consumptionM3 decimal.Decimal, readOn time.Time, recordedBy uuid.UUID) (*Reading, error) {
	if meterID == uuid.Nil {
		return nil, shared.NewValidationError("meter id is required")
	}
	if routeID == uuid.Nil {
		return nil, shared.NewValidationError("route id is required")
	}
	if period.IsZero() {
		return nil, shared.NewValidationError("period is required")
	}
	if consumptionM3.IsNegative() {
		return nil, shared.NewValidationError("consumption cannot be negative")
	}
	if readOn.IsZero() {
		return nil, shared.NewValidationError("reading date is required")
	}

	reading := &Reading{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MeterID:           meterID,
		RouteID:           routeID,
		Period:            period,
		ConsumptionM3:     consumptionM3,
		ReadOn:            readOn,
		RecordedBy:        recordedBy,
	}

	reading.AddDomainEvent(NewReadingRegisteredEvent(reading))

	return reading, nil
}
