package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/audit"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/customer"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"github.com/waterworks/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// defaultBackfillPageSize bounds how many billable readings are held in
// memory at once during a backfill run.
const defaultBackfillPageSize = 500

// InvoiceService generates and manages invoices. Generation from a single
// reading is the unit reused by both the reading-ingestion flow and the
// bulk backfill.
type InvoiceService struct {
	invoiceRepo   billing.InvoiceRepository
	tariffRepo    billing.TariffRepository
	customerRepo  customer.CustomerRepository
	meterRepo     metering.MeterRepository
	readingRepo   metering.ReadingRepository
	changeLogRepo audit.ChangeLogRepository
	notifier      shared.Notifier
	logger        *zap.Logger

	eventPublisher   shared.EventPublisher
	backfillPageSize int
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	tariffRepo billing.TariffRepository,
	customerRepo customer.CustomerRepository,
	meterRepo metering.MeterRepository,
	readingRepo metering.ReadingRepository,
	changeLogRepo audit.ChangeLogRepository,
	notifier shared.Notifier,
	logger *zap.Logger,
) *InvoiceService {
	if notifier == nil {
		notifier = shared.NopNotifier{}
	}
	return &InvoiceService{
		invoiceRepo:      invoiceRepo,
		tariffRepo:       tariffRepo,
		customerRepo:     customerRepo,
		meterRepo:        meterRepo,
		readingRepo:      readingRepo,
		changeLogRepo:    changeLogRepo,
		notifier:         notifier,
		logger:           logger,
		backfillPageSize: defaultBackfillPageSize,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBackfillPageSize overrides the number of billable readings fetched
// per page during a backfill run. Values below 1 are ignored.
func (s *InvoiceService) SetBackfillPageSize(size int) {
	if size > 0 {
		s.backfillPageSize = size
	}
}

// Generate creates the invoice for a reading. Exactly one invoice may
// exist per reading: a repeated request fails with a conflict, whether it
// is caught by the fast-path existence check or by the unique constraint
// on the write itself.
func (s *InvoiceService) Generate(ctx context.Context, req GenerateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "generate")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrReadingID, req.ReadingID.String())

	var response *InvoiceResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.BillingOperationLabels(telemetry.OperationGenerateInvoice), func(c context.Context) {
		response, operationErr = s.generate(c, span, req)
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}
	return response, nil
}

func (s *InvoiceService) generate(ctx context.Context, span trace.Span, req GenerateInvoiceRequest) (*InvoiceResponse, error) {
	// Fast-path idempotency check; the unique constraint on reading_id is
	// the authoritative guard under concurrency.
	exists, err := s.invoiceRepo.ExistsForReading(ctx, req.ReadingID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewConflictError("invoice already exists for reading %s", req.ReadingID)
	}

	reading, err := s.readingRepo.FindByID(ctx, req.ReadingID)
	if err != nil {
		return nil, err
	}

	meter, err := s.meterRepo.FindByID(ctx, reading.MeterID)
	if err != nil {
		return nil, err
	}
	if meter.CustomerID == nil {
		return nil, shared.NewNotFoundError("meter %s has no owning customer", meter.SerialNumber)
	}

	owner, err := s.customerRepo.FindByID(ctx, *meter.CustomerID)
	if err != nil {
		return nil, err
	}
	if owner.TariffID == nil {
		return nil, shared.NewNotFoundError("customer %s has no assigned tariff", owner.Code)
	}

	tariff, err := s.tariffRepo.FindByID(ctx, *owner.TariffID)
	if err != nil {
		return nil, err
	}

	ranges, err := s.tariffRepo.FindRanges(ctx, tariff.ID)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, shared.NewValidationError("tariff has no ranges defined")
	}

	total, err := billing.PriceConsumption(reading.ConsumptionM3, ranges)
	if err != nil {
		return nil, err
	}

	emittedOn := time.Now()
	if req.EmittedOn != nil {
		emittedOn = *req.EmittedOn
	}

	invoice, err := billing.NewInvoice(reading.ID, owner.ID, tariff.ID, reading.Period, reading.ConsumptionM3, emittedOn, total)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		// A concurrent generation that won the race surfaces here as a
		// duplicate-key conflict from the storage layer.
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrAmount, invoice.Total.String(),
	)

	s.notifier.Notify(ctx, "invoice.generated", map[string]interface{}{
		"invoice_id":     invoice.ID.String(),
		"reading_id":     reading.ID.String(),
		"customer_id":    owner.ID.String(),
		"customer_name":  owner.Name,
		"meter_serial":   meter.SerialNumber,
		"period":         invoice.Period.String(),
		"consumption_m3": invoice.ConsumptionM3.String(),
		"total":          invoice.Total.StringFixed(2),
		"due_on":         invoice.DueOn.Format(time.RFC3339),
	}, shared.AudienceAdministration)

	s.publishInvoiceEvents(ctx, invoice)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// GenerateForReading generates the invoice for a just-ingested reading
// with the emission date defaulting to now
func (s *InvoiceService) GenerateForReading(ctx context.Context, readingID, actingUserID uuid.UUID) (*InvoiceResponse, error) {
	return s.Generate(ctx, GenerateInvoiceRequest{ReadingID: readingID, ActingUserID: actingUserID})
}

// Backfill generates invoices for every reading of the period that has
// none yet, whose meter has an owner and whose owner has a tariff.
// Generation is serialized across readings; a per-item failure is recorded
// in the report and never aborts the batch.
func (s *InvoiceService) Backfill(ctx context.Context, req BackfillRequest) (*BackfillResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "backfill")
	defer span.End()

	period, err := valueobject.ParsePeriod(req.Period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewValidationError("invalid period %q: must be YYYY-MM", req.Period)
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrPeriod, period.String())

	report := &BackfillResponse{
		Period: period.String(),
		Items:  make([]BackfillItemResponse, 0),
	}

	// Pages advance on reading id, so readings whose generation failed
	// are never refetched within the same run.
	cursor := uuid.Nil
	for {
		billable, err := s.invoiceRepo.FindBillableReadings(ctx, period, cursor, s.backfillPageSize)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if len(billable) == 0 {
			break
		}
		cursor = billable[len(billable)-1].ReadingID

		for _, candidate := range billable {
			item := BackfillItemResponse{
				ReadingID:     candidate.ReadingID,
				CustomerName:  candidate.CustomerName,
				MeterSerial:   candidate.MeterSerial,
				ConsumptionM3: candidate.ConsumptionM3,
			}

			invoice, genErr := s.Generate(ctx, GenerateInvoiceRequest{
				ReadingID:    candidate.ReadingID,
				EmittedOn:    req.EmittedOn,
				ActingUserID: req.ActingUserID,
			})
			if genErr != nil {
				item.Outcome = BackfillOutcomeFailed
				item.Error = genErr.Error()
				report.Failed++
				s.logger.Warn("backfill item failed",
					zap.String("reading_id", candidate.ReadingID.String()),
					zap.String("meter_serial", candidate.MeterSerial),
					zap.String("period", period.String()),
					zap.Error(genErr))
			} else {
				item.Outcome = BackfillOutcomeGenerated
				item.InvoiceID = &invoice.ID
				report.Succeeded++
			}

			report.Items = append(report.Items, item)
		}
	}

	if len(report.Items) == 0 {
		report.Message = "no readings pending"
		return report, nil
	}

	s.logger.Info("backfill completed",
		zap.String("period", period.String()),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))

	return report, nil
}

// GetByID retrieves an invoice by id
func (s *InvoiceService) GetByID(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// List retrieves invoices with pagination
func (s *InvoiceService) List(ctx context.Context, filter shared.Filter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	page, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return ToInvoiceResponses(page.Items), page.Total, nil
}

// ListByCustomer retrieves a customer's invoices with pagination
func (s *InvoiceService) ListByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	page, err := s.invoiceRepo.FindByCustomer(ctx, customerID, filter)
	if err != nil {
		return nil, 0, err
	}

	return ToInvoiceResponses(page.Items), page.Total, nil
}

// Correct applies an administrative correction to an invoice's total
func (s *InvoiceService) Correct(ctx context.Context, invoiceID uuid.UUID, req CorrectInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	oldTotal := invoice.Total.StringFixed(2)
	if err := invoice.Correct(valueobject.NewMoneyUSD(req.NewTotal)); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.recordChangeLog(ctx, invoice.ID, audit.FieldChanges{
		{Field: "total", Old: oldTotal, New: invoice.Total.StringFixed(2)},
	}, req.ActingUserID)

	s.publishInvoiceEvents(ctx, invoice)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// recordChangeLog appends an audit entry; audit failures on a correction
// are logged, not propagated.
func (s *InvoiceService) recordChangeLog(ctx context.Context, invoiceID uuid.UUID, changes audit.FieldChanges, performedBy uuid.UUID) {
	entry, err := audit.NewChangeLogEntry(audit.EntityTypeInvoice, invoiceID, audit.ChangeActionUpdated, changes, performedBy)
	if err != nil {
		s.logger.Warn("could not build change log entry", zap.Error(err))
		return
	}
	if err := s.changeLogRepo.Save(ctx, entry); err != nil {
		s.logger.Warn("could not write change log entry",
			zap.String("entity_type", audit.EntityTypeInvoice),
			zap.String("entity_id", invoiceID.String()),
			zap.Error(err))
	}
}

// publishInvoiceEvents publishes all domain events from the invoice
func (s *InvoiceService) publishInvoiceEvents(ctx context.Context, invoice *billing.Invoice) {
	if s.eventPublisher == nil {
		return
	}
	events := invoice.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = s.eventPublisher.Publish(ctx, events...)
	invoice.ClearDomainEvents()
}
