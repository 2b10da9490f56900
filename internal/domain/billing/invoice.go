package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the payment status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending       InvoiceStatus = "PENDING"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
)

// IsValid checks if the status is a known value
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartiallyPaid, InvoiceStatusPaid:
		return true
	}
	return false
}

// String returns the string representation
func (s InvoiceStatus) String() string {
	return string(s)
}

// paymentTermDays is the fixed payment term: due date = emission + 30 days.
const paymentTermDays = 30

// Invoice is the monetary obligation generated from exactly one reading.
// The reading id is the idempotency key: the invoices table carries a
// unique constraint on it, and the application-level existence pre-check
// is only a fast path.
//
// Balance and status are derived from the sum of applied payments by the
// storage layer (a trigger maintained in the migrations); payment
// application never recomputes them in process.
type Invoice struct {
	shared.BaseAggregateRoot
	ReadingID     uuid.UUID
	CustomerID    uuid.UUID
	TariffID      uuid.UUID
	Period        valueobject.Period
	ConsumptionM3 decimal.Decimal
	EmittedOn     time.Time
	DueOn         time.Time
	Total         valueobject.Money
	Balance       valueobject.Money
	Status        InvoiceStatus
}

// NewInvoice creates a pending invoice for a reading with the computed
// total. The outstanding balance starts equal to the total.
func NewInvoice(readingID, customerID, tariffID uuid.UUID, period valueobject.Period, consumptionM3 decimal.Decimal, emittedOn time.Time, total valueobject.Money) (*Invoice, error) {
	if readingID == uuid.Nil {
		return nil, shared.NewValidationError("reading id is required")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("customer id is required")
	}
	if tariffID == uuid.Nil {
		return nil, shared.NewValidationError("tariff id is required")
	}
	if period.IsZero() {
		return nil, shared.NewValidationError("period is required")
	}
	if emittedOn.IsZero() {
		return nil, shared.NewValidationError("emission date is required")
	}
	if total.IsNegative() {
		return nil, shared.NewValidationError("invoice total cannot be negative")
	}

	invoice := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReadingID:         readingID,
		CustomerID:        customerID,
		TariffID:          tariffID,
		Period:            period,
		ConsumptionM3:     consumptionM3,
		EmittedOn:         emittedOn,
		DueOn:             emittedOn.AddDate(0, 0, paymentTermDays),
		Total:             total,
		Balance:           total,
		Status:            InvoiceStatusPending,
	}

	invoice.AddDomainEvent(NewInvoiceGeneratedEvent(invoice))

	return invoice, nil
}

// PaidAmount returns the sum already applied against this invoice
func (i *Invoice) PaidAmount() valueobject.Money {
	return i.Total.MustSubtract(i.Balance)
}

// IsPaid returns true once the outstanding balance reaches zero
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid || i.Balance.IsZero()
}

// IsOverdue returns true when the invoice is unpaid past its due date
func (i *Invoice) IsOverdue(at time.Time) bool {
	return !i.IsPaid() && at.After(i.DueOn)
}

// Correct applies an administrative total correction. The new total must
// cover what has already been paid; the balance absorbs the difference and
// the status is re-derived for this explicit correction path.
func (i *Invoice) Correct(newTotal valueobject.Money) error {
	if newTotal.IsNegative() {
		return shared.NewValidationError("invoice total cannot be negative")
	}

	paid := i.PaidAmount()
	covered, err := newTotal.GreaterThanOrEqual(paid)
	if err != nil {
		return shared.NewValidationError("correction currency mismatch")
	}
	if !covered {
		return shared.NewValidationError("corrected total %s cannot be below the amount already paid %s", newTotal.String(), paid.String())
	}

	oldTotal := i.Total
	i.Total = newTotal
	i.Balance = newTotal.MustSubtract(paid)
	switch {
	case i.Balance.IsZero():
		i.Status = InvoiceStatusPaid
	case paid.IsPositive():
		i.Status = InvoiceStatusPartiallyPaid
	default:
		i.Status = InvoiceStatusPending
	}
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceCorrectedEvent(i, oldTotal, newTotal))

	return nil
}
