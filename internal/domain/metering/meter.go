package metering

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/shared"
)

// MeterStatus represents the operational status of a meter
type MeterStatus string

const (
	MeterStatusActive   MeterStatus = "active"
	MeterStatusInactive MeterStatus = "inactive"
	MeterStatusRetired  MeterStatus = "retired"
)

// Meter is a physical measuring device installed at a service point.
// A meter is owned by at most one customer at any instant; CustomerID is nil
// while the meter is unassigned. Ownership changes go through AssignTo and
// ReleaseFrom so the invariant holds at the aggregate boundary.
type Meter struct {
	shared.BaseAggregateRoot
	SerialNumber string
	CustomerID   *uuid.UUID // owning customer, nil = unassigned
	RouteID      *uuid.UUID // collection route the meter is visited on
	Status       MeterStatus
	InstalledAt  time.Time
}

// NewMeter registers a new meter with the given serial number
func NewMeter(serialNumber string, installedAt time.Time) (*Meter, error) {
	if err := validateSerialNumber(serialNumber); err != nil {
		return nil, err
	}
	if installedAt.IsZero() {
		installedAt = time.Now()
	}

	meter := &Meter{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SerialNumber:      strings.ToUpper(serialNumber),
		Status:            MeterStatusActive,
		InstalledAt:       installedAt,
	}

	meter.AddDomainEvent(NewMeterRegisteredEvent(meter))

	return meter, nil
}

// AssignTo assigns the meter to a customer. Assigning a meter that is
// already owned by a different customer fails; assigning to the current
// owner is a no-op.
func (m *Meter) AssignTo(customerID uuid.UUID) error {
	if m.CustomerID != nil {
		if *m.CustomerID == customerID {
			return nil
		}
		return shared.NewConflictError("meter %s is already assigned elsewhere", m.SerialNumber)
	}
	if m.Status == MeterStatusRetired {
		return shared.NewValidationError("meter %s is retired", m.SerialNumber)
	}

	m.CustomerID = &customerID
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMeterAssignedEvent(m, customerID))

	return nil
}

// ReleaseFrom releases the meter from the given customer. The meter must
// currently be owned by that customer.
func (m *Meter) ReleaseFrom(customerID uuid.UUID) error {
	if m.CustomerID == nil || *m.CustomerID != customerID {
		return shared.NewValidationError("meter %s is not assigned to this customer", m.SerialNumber)
	}

	m.CustomerID = nil
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMeterReleasedEvent(m, customerID))

	return nil
}

// SetRoute places the meter on a collection route
func (m *Meter) SetRoute(routeID uuid.UUID) {
	if m.RouteID != nil && *m.RouteID == routeID {
		return
	}

	m.RouteID = &routeID
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
}

// ClearRoute removes the meter from its collection route
func (m *Meter) ClearRoute() {
	if m.RouteID == nil {
		return
	}

	m.RouteID = nil
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
}

// SetStatus transitions the meter's operational status. Retired is terminal.
func (m *Meter) SetStatus(status MeterStatus) error {
	switch status {
	case MeterStatusActive, MeterStatusInactive, MeterStatusRetired:
	default:
		return shared.NewValidationError("invalid meter status %q", status)
	}
	if m.Status == MeterStatusRetired && status != MeterStatusRetired {
		return shared.NewValidationError("meter %s is retired and cannot be reactivated", m.SerialNumber)
	}
	if m.Status == status {
		return nil
	}

	old := m.Status
	m.Status = status
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMeterStatusChangedEvent(m, old, status))

	return nil
}

// IsAssigned returns true if the meter has an owning customer
func (m *Meter) IsAssigned() bool {
	return m.CustomerID != nil
}

// IsOwnedBy returns true if the meter is owned by the given customer
func (m *Meter) IsOwnedBy(customerID uuid.UUID) bool {
	return m.CustomerID != nil && *m.CustomerID == customerID
}

func validateSerialNumber(serial string) error {
	if serial == "" {
		return shared.NewValidationError("meter serial number cannot be empty")
	}
	if len(serial) > 50 {
		return shared.NewValidationError("meter serial number cannot exceed 50 characters")
	}
	for _, r := range serial {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return shared.NewValidationError("meter serial number can only contain letters, numbers, and hyphens")
		}
	}
	return nil
}
