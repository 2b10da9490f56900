package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared"
)

// =============================================================================
// Tariff DTOs
// =============================================================================

// CreateTariffRequest represents a request to create a new tariff
type CreateTariffRequest struct {
	Name     string     `json:"name" binding:"required,min=1,max=100"`
	StartsOn time.Time  `json:"starts_on" binding:"required"`
	EndsOn   *time.Time `json:"ends_on"`
}

// UpdateTariffRequest represents a request to update a tariff
type UpdateTariffRequest struct {
	Name     *string    `json:"name" binding:"omitempty,min=1,max=100"`
	StartsOn *time.Time `json:"starts_on"`
	EndsOn   *time.Time `json:"ends_on"`
}

// TariffRangeInput is one tier of a range registration or modification.
// The id is set only on modification, to rewrite an existing tier in place.
// Bounds and price are pointers so an omitted or null field is rejected
// instead of binding to zero; an explicit 0 still passes.
type TariffRangeInput struct {
	ID         *uuid.UUID       `json:"id"`
	MinM3      *int64           `json:"min_m3" binding:"required,min=0"`
	MaxM3      *int64           `json:"max_m3" binding:"required,min=0"`
	PricePerM3 *decimal.Decimal `json:"price_per_m3" binding:"required"`
}

// validate rejects a tier whose bounds or price were omitted. The domain
// constructor handles everything else (ordering, negatives).
func (i TariffRangeInput) validate() error {
	if i.MinM3 == nil || i.MaxM3 == nil {
		return shared.NewValidationError("range min_m3 and max_m3 are required")
	}
	if i.PricePerM3 == nil {
		return shared.NewValidationError("range price_per_m3 is required")
	}
	return nil
}

// RegisterRangesRequest carries the complete candidate tier set for a tariff
type RegisterRangesRequest struct {
	Ranges []TariffRangeInput `json:"ranges" binding:"required,min=1,dive"`
}

// RangesProcessedResponse reports how many tiers a registration touched
type RangesProcessedResponse struct {
	TariffID  uuid.UUID `json:"tariff_id"`
	Processed int       `json:"processed"`
}

// TariffRangeResponse represents a tier in API responses
type TariffRangeResponse struct {
	ID         uuid.UUID       `json:"id"`
	MinM3      int64           `json:"min_m3"`
	MaxM3      int64           `json:"max_m3"`
	PricePerM3 decimal.Decimal `json:"price_per_m3"`
}

// TariffResponse represents a tariff in API responses
type TariffResponse struct {
	ID        uuid.UUID             `json:"id"`
	Name      string                `json:"name"`
	StartsOn  time.Time             `json:"starts_on"`
	EndsOn    *time.Time            `json:"ends_on,omitempty"`
	Ranges    []TariffRangeResponse `json:"ranges,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	Version   int                   `json:"version"`
}

// TariffListResponse represents a tariff in list API responses
type TariffListResponse struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	StartsOn time.Time  `json:"starts_on"`
	EndsOn   *time.Time `json:"ends_on,omitempty"`
}

// =============================================================================
// Invoice DTOs
// =============================================================================

// GenerateInvoiceRequest represents a request to generate an invoice from a reading
type GenerateInvoiceRequest struct {
	ReadingID    uuid.UUID  `json:"reading_id" binding:"required"`
	EmittedOn    *time.Time `json:"emitted_on"`
	ActingUserID uuid.UUID  `json:"-"`
}

// CorrectInvoiceRequest represents an administrative total correction
type CorrectInvoiceRequest struct {
	NewTotal     decimal.Decimal `json:"new_total" binding:"required"`
	ActingUserID uuid.UUID       `json:"-"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID       `json:"id"`
	ReadingID     uuid.UUID       `json:"reading_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TariffID      uuid.UUID       `json:"tariff_id"`
	Period        string          `json:"period"`
	ConsumptionM3 decimal.Decimal `json:"consumption_m3"`
	EmittedOn     time.Time       `json:"emitted_on"`
	DueOn         time.Time       `json:"due_on"`
	Total         decimal.Decimal `json:"total"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Version       int             `json:"version"`
}

// =============================================================================
// Backfill DTOs
// =============================================================================

// BackfillRequest represents a request to generate invoices for all
// pending readings of a period
type BackfillRequest struct {
	Period       string     `json:"period" binding:"required,period"`
	EmittedOn    *time.Time `json:"emitted_on"`
	ActingUserID uuid.UUID  `json:"-"`
}

// Backfill item outcomes
const (
	BackfillOutcomeGenerated = "generated"
	BackfillOutcomeFailed    = "failed"
)

// BackfillItemResponse reports the outcome for one reading of a backfill batch
type BackfillItemResponse struct {
	ReadingID     uuid.UUID       `json:"reading_id"`
	CustomerName  string          `json:"customer_name"`
	MeterSerial   string          `json:"meter_serial"`
	ConsumptionM3 decimal.Decimal `json:"consumption_m3"`
	Outcome       string          `json:"outcome"`
	InvoiceID     *uuid.UUID      `json:"invoice_id,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// BackfillResponse is the aggregate report of a backfill batch
type BackfillResponse struct {
	Period    string                 `json:"period"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Message   string                 `json:"message,omitempty"`
	Items     []BackfillItemResponse `json:"items"`
}

// =============================================================================
// Payment DTOs
// =============================================================================

// ApplyPaymentRequest represents a request to apply a payment to an invoice
type ApplyPaymentRequest struct {
	PaidOn       *time.Time      `json:"paid_on"`
	Tendered     decimal.Decimal `json:"tendered" binding:"required"`
	Method       string          `json:"method" binding:"required,oneof=cash card transfer check"`
	ActingUserID uuid.UUID       `json:"-"`
}

// PaymentResponse represents an applied payment in API responses. It
// carries the invoice balance and status as re-read after the write, so
// the caller sees the storage-derived state.
type PaymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	PaidOn         time.Time       `json:"paid_on"`
	Tendered       decimal.Decimal `json:"tendered"`
	Applied        decimal.Decimal `json:"applied"`
	Change         decimal.Decimal `json:"change"`
	Method         string          `json:"method"`
	InvoiceBalance decimal.Decimal `json:"invoice_balance"`
	InvoiceStatus  string          `json:"invoice_status"`
}

// =============================================================================
// Dashboard DTOs
// =============================================================================

// DashboardResponse aggregates the landing-page figures
type DashboardResponse struct {
	Period             string          `json:"period"`
	TotalCustomers     int64           `json:"total_customers"`
	ActiveCustomers    int64           `json:"active_customers"`
	TotalMeters        int64           `json:"total_meters"`
	AssignedMeters     int64           `json:"assigned_meters"`
	ReadingsThisPeriod int64           `json:"readings_this_period"`
	PendingInvoices    int64           `json:"pending_invoices"`
	PaidInvoices       int64           `json:"paid_invoices"`
	OverdueInvoices    int64           `json:"overdue_invoices"`
	TotalOutstanding   decimal.Decimal `json:"total_outstanding"`
	CollectedThisMonth decimal.Decimal `json:"collected_this_month"`
}

// =============================================================================
// Mappers
// =============================================================================

// ToTariffRangeResponse converts a domain tariff range to a response DTO
func ToTariffRangeResponse(r billing.TariffRange) TariffRangeResponse {
	return TariffRangeResponse{
		ID:         r.ID,
		MinM3:      r.MinM3,
		MaxM3:      r.MaxM3,
		PricePerM3: r.PricePerM3,
	}
}

// ToTariffRangeResponses converts a slice of domain tariff ranges to response DTOs
func ToTariffRangeResponses(ranges []billing.TariffRange) []TariffRangeResponse {
	responses := make([]TariffRangeResponse, len(ranges))
	for i, r := range ranges {
		responses[i] = ToTariffRangeResponse(r)
	}
	return responses
}

// ToTariffResponse converts a domain tariff to a response DTO
func ToTariffResponse(t *billing.Tariff) TariffResponse {
	return TariffResponse{
		ID:        t.ID,
		Name:      t.Name,
		StartsOn:  t.StartsOn,
		EndsOn:    t.EndsOn,
		Ranges:    ToTariffRangeResponses(t.SortedRanges()),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Version:   t.Version,
	}
}

// ToTariffListResponses converts domain tariffs to list response DTOs
func ToTariffListResponses(tariffs []*billing.Tariff) []TariffListResponse {
	responses := make([]TariffListResponse, len(tariffs))
	for i, t := range tariffs {
		responses[i] = TariffListResponse{
			ID:       t.ID,
			Name:     t.Name,
			StartsOn: t.StartsOn,
			EndsOn:   t.EndsOn,
		}
	}
	return responses
}

// ToInvoiceResponse converts a domain invoice to a response DTO
func ToInvoiceResponse(i *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            i.ID,
		ReadingID:     i.ReadingID,
		CustomerID:    i.CustomerID,
		TariffID:      i.TariffID,
		Period:        i.Period.String(),
		ConsumptionM3: i.ConsumptionM3,
		EmittedOn:     i.EmittedOn,
		DueOn:         i.DueOn,
		Total:         i.Total.Amount(),
		Balance:       i.Balance.Amount(),
		Status:        i.Status.String(),
		CreatedAt:     i.CreatedAt,
		Version:       i.Version,
	}
}

// ToInvoiceResponses converts domain invoices to response DTOs
func ToInvoiceResponses(invoices []*billing.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, len(invoices))
	for i, invoice := range invoices {
		responses[i] = ToInvoiceResponse(invoice)
	}
	return responses
}

// ToPaymentResponse converts a payment and the re-read invoice to a response DTO
func ToPaymentResponse(p *billing.Payment, invoice *billing.Invoice) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		InvoiceID:      p.InvoiceID,
		PaidOn:         p.PaidOn,
		Tendered:       p.Tendered.Amount(),
		Applied:        p.Applied.Amount(),
		Change:         p.Change.Amount(),
		Method:         string(p.Method),
		InvoiceBalance: invoice.Balance.Amount(),
		InvoiceStatus:  invoice.Status.String(),
	}
}
