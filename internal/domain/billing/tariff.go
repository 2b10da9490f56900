package billing

import (
	"time"

	"github.com/waterworks/backend/internal/domain/shared"
)

// Tariff is a priced schedule: a validity window plus an ordered set of
// consumption tiers. Customers are billed under the tariff assigned to
// their account at invoice time.
type Tariff struct {
	shared.BaseAggregateRoot
	Name     string
	StartsOn time.Time
	EndsOn   *time.Time // nil = open-ended
	Ranges   []TariffRange
}

// NewTariff creates a tariff schedule with a validity window
func NewTariff(name string, startsOn time.Time, endsOn *time.Time) (*Tariff, error) {
	if name == "" {
		return nil, shared.NewValidationError("tariff name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("tariff name cannot exceed 100 characters")
	}
	if startsOn.IsZero() {
		return nil, shared.NewValidationError("tariff start date is required")
	}
	if endsOn != nil && !endsOn.After(startsOn) {
		return nil, shared.NewValidationError("tariff end date must be after the start date")
	}

	tariff := &Tariff{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		StartsOn:          startsOn,
		EndsOn:            endsOn,
	}

	tariff.AddDomainEvent(NewTariffCreatedEvent(tariff))

	return tariff, nil
}

// Update updates the tariff's name and validity window
func (t *Tariff) Update(name string, startsOn time.Time, endsOn *time.Time) error {
	if name == "" {
		return shared.NewValidationError("tariff name cannot be empty")
	}
	if startsOn.IsZero() {
		return shared.NewValidationError("tariff start date is required")
	}
	if endsOn != nil && !endsOn.After(startsOn) {
		return shared.NewValidationError("tariff end date must be after the start date")
	}

	t.Name = name
	t.StartsOn = startsOn
	t.EndsOn = endsOn
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// ReplaceRanges validates the incoming tier set as a whole and, only if
// every check passes, adopts it as the tariff's range set. Nothing is
// kept from a set that fails validation.
func (t *Tariff) ReplaceRanges(ranges []TariffRange) error {
	if err := ValidateRangeSet(ranges); err != nil {
		return err
	}

	adopted := SortRangesByMin(ranges)
	for i := range adopted {
		adopted[i].TariffID = t.ID
	}

	t.Ranges = adopted
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTariffRangesRegisteredEvent(t, len(adopted)))

	return nil
}

// IsActiveOn reports whether the tariff's validity window covers the date
func (t *Tariff) IsActiveOn(date time.Time) bool {
	if date.Before(t.StartsOn) {
		return false
	}
	if t.EndsOn != nil && date.After(*t.EndsOn) {
		return false
	}
	return true
}

// HasRanges returns true when the tariff carries at least one tier
func (t *Tariff) HasRanges() bool {
	return len(t.Ranges) > 0
}

// SortedRanges returns the tiers ordered by minimum ascending
func (t *Tariff) SortedRanges() []TariffRange {
	return SortRangesByMin(t.Ranges)
}
