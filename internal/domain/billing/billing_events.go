package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
)

const (
	AggregateTypeTariff  = "Tariff"
	AggregateTypeInvoice = "Invoice"
)

// Billing event types
const (
	EventTypeTariffCreated          = "TariffCreated"
	EventTypeTariffRangesRegistered = "TariffRangesRegistered"
	EventTypeInvoiceGenerated       = "InvoiceGenerated"
	EventTypeInvoiceCorrected       = "InvoiceCorrected"
	EventTypePaymentApplied         = "PaymentApplied"
)

// TariffCreatedEvent is published when a new tariff is created
type TariffCreatedEvent struct {
	shared.BaseDomainEvent
	TariffID uuid.UUID  `json:"tariff_id"`
	Name     string     `json:"name"`
	StartsOn time.Time  `json:"starts_on"`
	EndsOn   *time.Time `json:"ends_on,omitempty"`
}

// NewTariffCreatedEvent creates a new tariff created event
func NewTariffCreatedEvent(t *Tariff) *TariffCreatedEvent {
	return &TariffCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTariffCreated, AggregateTypeTariff, t.ID),
		TariffID:        t.ID,
		Name:            t.Name,
		StartsOn:        t.StartsOn,
		EndsOn:          t.EndsOn,
	}
}

// TariffRangesRegisteredEvent is published when a tariff's range set is
// registered or modified
type TariffRangesRegisteredEvent struct {
	shared.BaseDomainEvent
	TariffID   uuid.UUID `json:"tariff_id"`
	RangeCount int       `json:"range_count"`
}

// NewTariffRangesRegisteredEvent creates a new tariff ranges registered event
func NewTariffRangesRegisteredEvent(t *Tariff, rangeCount int) *TariffRangesRegisteredEvent {
	return &TariffRangesRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTariffRangesRegistered, AggregateTypeTariff, t.ID),
		TariffID:        t.ID,
		RangeCount:      rangeCount,
	}
}

// InvoiceGeneratedEvent is published when an invoice is generated from a reading
type InvoiceGeneratedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID         `json:"invoice_id"`
	ReadingID     uuid.UUID         `json:"reading_id"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	TariffID      uuid.UUID         `json:"tariff_id"`
	Period        string            `json:"period"`
	ConsumptionM3 decimal.Decimal   `json:"consumption_m3"`
	Total         valueobject.Money `json:"total"`
	DueOn         time.Time         `json:"due_on"`
}

// NewInvoiceGeneratedEvent creates a new invoice generated event
func NewInvoiceGeneratedEvent(i *Invoice) *InvoiceGeneratedEvent {
	return &InvoiceGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceGenerated, AggregateTypeInvoice, i.ID),
		InvoiceID:       i.ID,
		ReadingID:       i.ReadingID,
		CustomerID:      i.CustomerID,
		TariffID:        i.TariffID,
		Period:          i.Period.String(),
		ConsumptionM3:   i.ConsumptionM3,
		Total:           i.Total,
		DueOn:           i.DueOn,
	}
}

// InvoiceCorrectedEvent is published when an invoice total is corrected
type InvoiceCorrectedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID         `json:"invoice_id"`
	OldTotal  valueobject.Money `json:"old_total"`
	NewTotal  valueobject.Money `json:"new_total"`
	Balance   valueobject.Money `json:"balance"`
	Status    string            `json:"status"`
}

// NewInvoiceCorrectedEvent creates a new invoice corrected event
func NewInvoiceCorrectedEvent(i *Invoice, oldTotal, newTotal valueobject.Money) *InvoiceCorrectedEvent {
	return &InvoiceCorrectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCorrected, AggregateTypeInvoice, i.ID),
		InvoiceID:       i.ID,
		OldTotal:        oldTotal,
		NewTotal:        newTotal,
		Balance:         i.Balance,
		Status:          i.Status.String(),
	}
}

// PaymentAppliedEvent is published when a payment is applied to an invoice
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID         `json:"payment_id"`
	InvoiceID uuid.UUID         `json:"invoice_id"`
	Tendered  valueobject.Money `json:"tendered"`
	Applied   valueobject.Money `json:"applied"`
	Change    valueobject.Money `json:"change"`
	Method    string            `json:"method"`
}

// NewPaymentAppliedEvent creates a new payment applied event
func NewPaymentAppliedEvent(p *Payment) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentApplied, AggregateTypeInvoice, p.InvoiceID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		Tendered:        p.Tendered,
		Applied:         p.Applied,
		Change:          p.Change,
		Method:          string(p.Method),
	}
}
