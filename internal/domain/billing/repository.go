package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
)

// TariffRepository defines the persistence contract for tariffs and
// their range sets
type TariffRepository interface {
	// FindByID retrieves a tariff by its unique identifier, without ranges
	FindByID(ctx context.Context, id uuid.UUID) (*Tariff, error)

	// FindByIDWithRanges retrieves a tariff with its range set preloaded
	FindByIDWithRanges(ctx context.Context, id uuid.UUID) (*Tariff, error)

	// FindAll retrieves tariffs with pagination
	FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*Tariff], error)

	// FindRanges retrieves the range set of a tariff ordered by minimum
	FindRanges(ctx context.Context, tariffID uuid.UUID) ([]TariffRange, error)

	// Save persists a tariff (insert or update), without touching ranges
	Save(ctx context.Context, tariff *Tariff) error

	// SaveRanges persists a range set in one transaction: ranges whose id
	// matches an existing row are updated in place, the rest are inserted.
	// Returns the number of ranges processed.
	SaveRanges(ctx context.Context, tariffID uuid.UUID, ranges []TariffRange) (int, error)

	// Count returns the total number of tariffs
	Count(ctx context.Context) (int64, error)
}

// BillableReading is a denormalized projection of a reading that has no
// invoice yet together with the owning customer and tariff needed to
// generate one.
type BillableReading struct {
	ReadingID     uuid.UUID
	MeterID       uuid.UUID
	MeterSerial   string
	CustomerID    uuid.UUID
	CustomerName  string
	TariffID      uuid.UUID
	Period        valueobject.Period
	ConsumptionM3 decimal.Decimal
}

// InvoiceRepository defines the persistence contract for invoices
type InvoiceRepository interface {
	// FindByID retrieves an invoice by its unique identifier
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByReadingID retrieves the invoice generated from a reading
	FindByReadingID(ctx context.Context, readingID uuid.UUID) (*Invoice, error)

	// ExistsForReading checks whether a reading already has an invoice.
	// This is a fast-path check only; the unique constraint on reading_id
	// remains the authoritative guard.
	ExistsForReading(ctx context.Context, readingID uuid.UUID) (bool, error)

	// FindByCustomer retrieves a customer's invoices with pagination
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (shared.Paginated[*Invoice], error)

	// FindAll retrieves invoices with pagination
	FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*Invoice], error)

	// FindBillableReadings retrieves readings for the period that have no
	// invoice, belong to a meter with an owner, and whose owner has a
	// tariff assigned. Results are ordered by reading id; afterReading
	// (uuid.Nil for the first page) and limit page through the set without
	// revisiting readings whose generation already failed this run.
	FindBillableReadings(ctx context.Context, period valueobject.Period, afterReading uuid.UUID, limit int) ([]BillableReading, error)

	// Save persists an invoice (insert or update)
	Save(ctx context.Context, invoice *Invoice) error

	// Count returns the total number of invoices
	Count(ctx context.Context) (int64, error)
}

// PaymentRepository defines the persistence contract for payments.
// Payments are append-only; there is no update or delete.
type PaymentRepository interface {
	// FindByID retrieves a payment by its unique identifier
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByInvoice retrieves all payments applied to an invoice,
	// oldest first
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)

	// Save inserts a payment record
	Save(ctx context.Context, payment *Payment) error

	// Count returns the total number of payments
	Count(ctx context.Context) (int64, error)
}

// DashboardSummary aggregates the figures shown on the back-office
// landing page
type DashboardSummary struct {
	TotalCustomers     int64
	ActiveCustomers    int64
	TotalMeters        int64
	AssignedMeters     int64
	ReadingsThisPeriod int64
	PendingInvoices    int64
	PaidInvoices       int64
	OverdueInvoices    int64
	TotalOutstanding   decimal.Decimal
	CollectedThisMonth decimal.Decimal
}

// DashboardRepository computes aggregate figures across the billing schema
type DashboardRepository interface {
	// Summary computes the dashboard figures for the given period
	Summary(ctx context.Context, period valueobject.Period) (*DashboardSummary, error)
}

// DashboardCache holds recently computed dashboard summaries so repeated
// landing-page loads do not rescan the billing tables.
type DashboardCache interface {
	// Get retrieves the cached summary for a period.
	// Returns nil, nil if the period is not in cache (cache miss).
	Get(ctx context.Context, period valueobject.Period) (*DashboardSummary, error)

	// Set stores a summary in cache with the specified TTL.
	// If ttl is 0, implementation should use a default TTL.
	Set(ctx context.Context, period valueobject.Period, summary *DashboardSummary, ttl time.Duration) error

	// Invalidate removes the cached summary for a period.
	Invalidate(ctx context.Context, period valueobject.Period) error

	// Close releases any resources held by the cache.
	Close() error
}
