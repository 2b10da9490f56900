package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"github.com/waterworks/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PaymentService applies payments against invoice balances. The balance
// and status of the invoice are derived from the sum of applied payments
// by the storage layer; this service persists the payment and re-reads the
// invoice to report the derived state.
type PaymentService struct {
	paymentRepo billing.PaymentRepository
	invoiceRepo billing.InvoiceRepository
	notifier    shared.Notifier
	logger      *zap.Logger

	eventPublisher shared.EventPublisher
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo billing.PaymentRepository,
	invoiceRepo billing.InvoiceRepository,
	notifier shared.Notifier,
	logger *zap.Logger,
) *PaymentService {
	if notifier == nil {
		notifier = shared.NopNotifier{}
	}
	return &PaymentService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Apply applies a tendered amount against an invoice. The applied amount
// is capped at the outstanding balance; the excess comes back as change.
func (s *PaymentService) Apply(ctx context.Context, invoiceID uuid.UUID, req ApplyPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
		telemetry.SpanAttrAmount, req.Tendered.String(),
	)

	var response *PaymentResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.BillingOperationLabels(telemetry.OperationApplyPayment), func(c context.Context) {
		response, operationErr = s.apply(c, invoiceID, req)
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceStatus, response.InvoiceStatus)
	return response, nil
}

func (s *PaymentService) apply(ctx context.Context, invoiceID uuid.UUID, req ApplyPaymentRequest) (*PaymentResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	paidOn := time.Time{}
	if req.PaidOn != nil {
		paidOn = *req.PaidOn
	}

	tendered := valueobject.NewMoneyUSD(req.Tendered)
	payment, err := billing.NewPayment(invoice, paidOn, tendered, billing.PaymentMethod(req.Method), req.ActingUserID)
	if err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, err
	}

	// The write fired the storage-side derivation; re-read for the
	// current balance and status.
	updated, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, "payment.applied", map[string]interface{}{
		"payment_id":      payment.ID.String(),
		"invoice_id":      invoice.ID.String(),
		"customer_id":     invoice.CustomerID.String(),
		"tendered":        payment.Tendered.StringFixed(2),
		"applied":         payment.Applied.StringFixed(2),
		"change":          payment.Change.StringFixed(2),
		"method":          string(payment.Method),
		"invoice_balance": updated.Balance.StringFixed(2),
		"invoice_status":  updated.Status.String(),
	}, shared.AudienceAdministration)

	if s.eventPublisher != nil {
		// Payments carry no aggregate event list; publish directly.
		_ = s.eventPublisher.Publish(ctx, billing.NewPaymentAppliedEvent(payment))
	}

	s.logger.Info("payment applied",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("applied", payment.Applied.StringFixed(2)),
		zap.String("change", payment.Change.StringFixed(2)),
		zap.String("invoice_status", updated.Status.String()))

	response := ToPaymentResponse(payment, updated)
	return &response, nil
}

// ListByInvoice retrieves the payments applied to an invoice, oldest first
func (s *PaymentService) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	responses := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		responses[i] = ToPaymentResponse(p, invoice)
	}
	return responses, nil
}
