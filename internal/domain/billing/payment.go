package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
)

// PaymentMethod is how the customer tendered the money
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCheck    PaymentMethod = "check"
)

// IsValid checks if the method is a known value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodCheck:
		return true
	}
	return false
}

// Payment is an append-only record of money applied against an invoice.
// Payments are never updated or deleted; the invoice balance and status
// are derived from the applied sum by the storage layer.
type Payment struct {
	shared.BaseEntity
	InvoiceID  uuid.UUID
	PaidOn     time.Time
	Tendered   valueobject.Money
	Applied    valueobject.Money
	Change     valueobject.Money
	Method     PaymentMethod
	ReceivedBy uuid.UUID
}

// NewPayment applies a tendered amount against the invoice's outstanding
// balance. The applied amount is capped at the balance; whatever exceeds
// it is returned to the customer as change. Overpayment never produces
// credit. A zero paidOn defaults to now.
func NewPayment(invoice *Invoice, paidOn time.Time, tendered valueobject.Money, method PaymentMethod, receivedBy uuid.UUID) (*Payment, error) {
	if invoice == nil {
		return nil, shared.NewValidationError("invoice is required")
	}
	if !tendered.IsPositive() {
		return nil, shared.NewValidationError("tendered amount must be positive")
	}
	if !invoice.Balance.IsPositive() {
		return nil, shared.NewValidationError("invoice %s is already fully paid", invoice.ID)
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("unknown payment method: %s", method)
	}

	applied, err := invoice.Balance.Min(tendered)
	if err != nil {
		return nil, shared.NewValidationError("payment currency mismatch: %v", err)
	}
	change := tendered.MustSubtract(applied).Round(2)

	if paidOn.IsZero() {
		paidOn = time.Now()
	}

	return &Payment{
		BaseEntity: shared.NewBaseEntity(),
		InvoiceID:  invoice.ID,
		PaidOn:     paidOn,
		Tendered:   tendered,
		Applied:    applied,
		Change:     change,
		Method:     method,
		ReceivedBy: receivedBy,
	}, nil
}
