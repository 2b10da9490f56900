package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
)

// TariffModel is the persistence model for the Tariff domain entity.
// Ranges are persisted separately in tariff_ranges.
type TariffModel struct {
	AggregateModel
	Name     string     `gorm:"type:varchar(100);not null"`
	StartsOn time.Time  `gorm:"type:date;not null"`
	EndsOn   *time.Time `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (TariffModel) TableName() string {
	return "tariffs"
}

// ToDomain converts the persistence model to a domain Tariff entity.
func (m *TariffModel) ToDomain() *billing.Tariff {
	tariff := &billing.Tariff{
		Name:     m.Name,
		StartsOn: m.StartsOn,
		EndsOn:   m.EndsOn,
	}
	m.PopulateAggregateRoot(&tariff.BaseAggregateRoot)
	return tariff
}

// FromDomain populates the persistence model from a domain Tariff entity.
func (m *TariffModel) FromDomain(tariff *billing.Tariff) {
	m.FromDomainAggregateRoot(tariff.BaseAggregateRoot)
	m.Name = tariff.Name
	m.StartsOn = tariff.StartsOn
	m.EndsOn = tariff.EndsOn
}

// TariffModelFromDomain creates a new persistence model from a domain Tariff entity.
func TariffModelFromDomain(tariff *billing.Tariff) *TariffModel {
	m := &TariffModel{}
	m.FromDomain(tariff)
	return m
}

// TariffRangeModel is the persistence model for the TariffRange entity.
type TariffRangeModel struct {
	BaseModel
	TariffID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	MinM3      int64           `gorm:"not null"`
	MaxM3      int64           `gorm:"not null"`
	PricePerM3 decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (TariffRangeModel) TableName() string {
	return "tariff_ranges"
}

// ToDomain converts the persistence model to a domain TariffRange entity.
func (m *TariffRangeModel) ToDomain() billing.TariffRange {
	return billing.TariffRange{
		BaseEntity: m.BaseModel.ToDomain(),
		TariffID:   m.TariffID,
		MinM3:      m.MinM3,
		MaxM3:      m.MaxM3,
		PricePerM3: m.PricePerM3,
	}
}

// FromDomain populates the persistence model from a domain TariffRange entity.
func (m *TariffRangeModel) FromDomain(r billing.TariffRange) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.TariffID = r.TariffID
	m.MinM3 = r.MinM3
	m.MaxM3 = r.MaxM3
	m.PricePerM3 = r.PricePerM3
}

// TariffRangeModelFromDomain creates a new persistence model from a domain TariffRange entity.
func TariffRangeModelFromDomain(r billing.TariffRange) *TariffRangeModel {
	m := &TariffRangeModel{}
	m.FromDomain(r)
	return m
}

// InvoiceModel is the persistence model for the Invoice domain entity.
// The unique index on reading_id enforces the one-invoice-per-reading
// idempotency rule; balance and status are recomputed by the payments
// trigger, so FromDomain values for those columns only matter on insert.
type InvoiceModel struct {
	AggregateModel
	ReadingID     uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_reading_id"`
	CustomerID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	TariffID      uuid.UUID             `gorm:"type:uuid;not null"`
	Period        valueobject.Period    `gorm:"type:varchar(7);not null;index"`
	ConsumptionM3 decimal.Decimal       `gorm:"type:decimal(12,3);not null"`
	EmittedOn     time.Time             `gorm:"not null"`
	DueOn         time.Time             `gorm:"not null"`
	Total         valueobject.Money     `gorm:"type:decimal(18,2);not null"`
	Balance       valueobject.Money     `gorm:"type:decimal(18,2);not null"`
	Status        billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	invoice := &billing.Invoice{
		ReadingID:     m.ReadingID,
		CustomerID:    m.CustomerID,
		TariffID:      m.TariffID,
		Period:        m.Period,
		ConsumptionM3: m.ConsumptionM3,
		EmittedOn:     m.EmittedOn,
		DueOn:         m.DueOn,
		Total:         m.Total,
		Balance:       m.Balance,
		Status:        m.Status,
	}
	m.PopulateAggregateRoot(&invoice.BaseAggregateRoot)
	return invoice
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(invoice *billing.Invoice) {
	m.FromDomainAggregateRoot(invoice.BaseAggregateRoot)
	m.ReadingID = invoice.ReadingID
	m.CustomerID = invoice.CustomerID
	m.TariffID = invoice.TariffID
	m.Period = invoice.Period
	m.ConsumptionM3 = invoice.ConsumptionM3
	m.EmittedOn = invoice.EmittedOn
	m.DueOn = invoice.DueOn
	m.Total = invoice.Total
	m.Balance = invoice.Balance
	m.Status = invoice.Status
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(invoice *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(invoice)
	return m
}

// PaymentModel is the persistence model for the Payment domain entity.
// Rows are append-only; the invoices balance/status trigger fires on insert.
type PaymentModel struct {
	BaseModel
	InvoiceID  uuid.UUID             `gorm:"type:uuid;not null;index"`
	PaidOn     time.Time             `gorm:"not null"`
	Tendered   valueobject.Money     `gorm:"type:decimal(18,2);not null"`
	Applied    valueobject.Money     `gorm:"type:decimal(18,2);not null"`
	Change     valueobject.Money     `gorm:"type:decimal(18,2);not null"`
	Method     billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	ReceivedBy uuid.UUID             `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseEntity: m.BaseModel.ToDomain(),
		InvoiceID:  m.InvoiceID,
		PaidOn:     m.PaidOn,
		Tendered:   m.Tendered,
		Applied:    m.Applied,
		Change:     m.Change,
		Method:     m.Method,
		ReceivedBy: m.ReceivedBy,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(payment *billing.Payment) {
	m.FromDomainBaseEntity(payment.BaseEntity)
	m.InvoiceID = payment.InvoiceID
	m.PaidOn = payment.PaidOn
	m.Tendered = payment.Tendered
	m.Applied = payment.Applied
	m.Change = payment.Change
	m.Method = payment.Method
	m.ReceivedBy = payment.ReceivedBy
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment entity.
func PaymentModelFromDomain(payment *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(payment)
	return m
}
