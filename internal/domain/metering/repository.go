package metering

import (
	"context"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
)

// MeterRepository defines the interface for meter persistence
type MeterRepository interface {
	// FindByID finds a meter by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Meter, error)

	// FindBySerialNumber finds a meter by its serial number
	FindBySerialNumber(ctx context.Context, serial string) (*Meter, error)

	// FindAll finds all meters matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Meter, error)

	// FindByCustomer finds all meters owned by a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]Meter, error)

	// FindUnassigned finds meters with no owning customer
	FindUnassigned(ctx context.Context, filter shared.Filter) ([]Meter, error)

	// Save creates or updates a meter
	Save(ctx context.Context, meter *Meter) error

	// SaveWithLock saves a meter with optimistic locking (version check)
	SaveWithLock(ctx context.Context, meter *Meter) error

	// Count counts meters matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsBySerialNumber checks if a meter with the serial number exists
	ExistsBySerialNumber(ctx context.Context, serial string) (bool, error)
}

// RouteRepository defines the interface for collection route persistence
type RouteRepository interface {
	// FindByID finds a route by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Route, error)

	// FindAll finds all routes matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Route, error)

	// Save creates or updates a route
	Save(ctx context.Context, route *Route) error

	// Count counts routes matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// ReadingRepository defines the interface for reading persistence
type ReadingRepository interface {
	// FindByID finds a reading by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Reading, error)

	// FindByMeterAndPeriod finds the reading for a meter in a period
	FindByMeterAndPeriod(ctx context.Context, meterID uuid.UUID, period valueobject.Period) (*Reading, error)

	// ExistsForMeterAndPeriod checks whether a reading exists for (meter, period).
	// Advisory fast path; the unique constraint on the readings table is the
	// authoritative duplicate guard.
	ExistsForMeterAndPeriod(ctx context.Context, meterID uuid.UUID, period valueobject.Period) (bool, error)

	// FindByMeter finds readings for a meter, most recent period first
	FindByMeter(ctx context.Context, meterID uuid.UUID, filter shared.Filter) ([]Reading, error)

	// FindByPeriod finds all readings in a period
	FindByPeriod(ctx context.Context, period valueobject.Period, filter shared.Filter) ([]Reading, error)

	// Save persists a reading. A duplicate (meter, period) insert surfaces
	// as an ALREADY_EXISTS domain error.
	Save(ctx context.Context, reading *Reading) error

	// Count counts readings matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// ReadingAttachmentRepository defines the interface for reading photo persistence
type ReadingAttachmentRepository interface {
	// FindByID finds a photo record by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ReadingAttachment, error)

	// FindByReading finds a reading's photos, excluding deleted ones,
	// oldest first
	FindByReading(ctx context.Context, readingID uuid.UUID) ([]*ReadingAttachment, error)

	// CountActiveByReading counts a reading's photos that are pending or
	// active, used to enforce the per-reading photo cap
	CountActiveByReading(ctx context.Context, readingID uuid.UUID) (int64, error)

	// Save creates or updates a photo record
	Save(ctx context.Context, attachment *ReadingAttachment) error

	// Delete removes a photo record permanently
	Delete(ctx context.Context, id uuid.UUID) error
}
