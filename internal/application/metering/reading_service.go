package metering

import (
	"context"
	"time"

	"github.com/google/uuid"
	billingapp "github.com/waterworks/backend/internal/application/billing"
	"github.com/waterworks/backend/internal/domain/customer"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"github.com/waterworks/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InvoiceGenerator generates the invoice for a just-ingested reading.
// Satisfied by the billing invoice service.
type InvoiceGenerator interface {
	GenerateForReading(ctx context.Context, readingID, actingUserID uuid.UUID) (*billingapp.InvoiceResponse, error)
}

// ReadingService registers meter readings and coordinates the follow-up:
// notifications to the field and office staff, and automatic invoicing
// when the meter's owner has a tariff assigned.
type ReadingService struct {
	readingRepo  metering.ReadingRepository
	meterRepo    metering.MeterRepository
	routeRepo    metering.RouteRepository
	customerRepo customer.CustomerRepository
	invoices     InvoiceGenerator
	notifier     shared.Notifier
	logger       *zap.Logger

	eventPublisher shared.EventPublisher
}

// NewReadingService creates a new ReadingService
func NewReadingService(
	readingRepo metering.ReadingRepository,
	meterRepo metering.MeterRepository,
	routeRepo metering.RouteRepository,
	customerRepo customer.CustomerRepository,
	invoices InvoiceGenerator,
	notifier shared.Notifier,
	logger *zap.Logger,
) *ReadingService {
	if notifier == nil {
		notifier = shared.NopNotifier{}
	}
	return &ReadingService{
		readingRepo:  readingRepo,
		meterRepo:    meterRepo,
		routeRepo:    routeRepo,
		customerRepo: customerRepo,
		invoices:     invoices,
		notifier:     notifier,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *ReadingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Register persists a reading and runs the ingestion follow-up. A failed
// automatic invoice generation comes back as a warning on the response;
// the reading itself stays persisted.
func (s *ReadingService) Register(ctx context.Context, req RegisterReadingRequest) (*RegisterReadingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reading", "register")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrMeterID, req.MeterID.String(),
		telemetry.SpanAttrPeriod, req.Period,
	)

	var response *RegisterReadingResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.BillingOperationLabels(telemetry.OperationRegisterReading), func(c context.Context) {
		response, operationErr = s.register(c, req)
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}
	return response, nil
}

func (s *ReadingService) register(ctx context.Context, req RegisterReadingRequest) (*RegisterReadingResponse, error) {
	meter, err := s.meterRepo.FindByID(ctx, req.MeterID)
	if err != nil {
		return nil, err
	}

	route, err := s.routeRepo.FindByID(ctx, req.RouteID)
	if err != nil {
		return nil, err
	}

	period, err := valueobject.ParsePeriod(req.Period)
	if err != nil {
		return nil, shared.NewValidationError("invalid period %q: must be YYYY-MM", req.Period)
	}

	// Fast-path duplicate check; the unique constraint on (meter, period)
	// is the authoritative guard under concurrency.
	exists, err := s.readingRepo.ExistsForMeterAndPeriod(ctx, meter.ID, period)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewConflictError("reading already exists for meter %s in period %s", meter.SerialNumber, period)
	}

	readOn := time.Now()
	if req.ReadOn != nil {
		readOn = *req.ReadOn
	}

	reading, err := metering.NewReading(meter.ID, route.ID, period, req.ConsumptionM3, readOn, req.ActingUserID)
	if err != nil {
		return nil, err
	}

	if err := s.readingRepo.Save(ctx, reading); err != nil {
		// A concurrent registration that won the race surfaces here as a
		// duplicate-key conflict from the storage layer.
		return nil, err
	}

	// Denormalized context for notification payloads and the auto-invoice
	// decision.
	var owner *customer.Customer
	if meter.CustomerID != nil {
		owner, err = s.customerRepo.FindByID(ctx, *meter.CustomerID)
		if err != nil {
			s.logger.Warn("reading registered but owner lookup failed",
				zap.String("reading_id", reading.ID.String()),
				zap.String("customer_id", meter.CustomerID.String()),
				zap.Error(err))
			owner = nil
		}
	}

	payload := map[string]interface{}{
		"reading_id":     reading.ID.String(),
		"meter_serial":   meter.SerialNumber,
		"route_name":     route.Name,
		"period":         period.String(),
		"consumption_m3": reading.ConsumptionM3.String(),
	}
	if owner != nil {
		payload["customer_name"] = owner.Name
		payload["customer_code"] = owner.Code
	}
	s.notifier.Notify(ctx, "reading.registered", payload, shared.AudienceOperations)
	s.notifier.Notify(ctx, "reading.registered", payload, shared.AudienceAdministration)

	s.publishReadingEvents(ctx, reading)

	response := &RegisterReadingResponse{Reading: ToReadingResponse(reading)}

	if owner != nil && owner.TariffID != nil && s.invoices != nil {
		invoice, genErr := s.invoices.GenerateForReading(ctx, reading.ID, req.ActingUserID)
		if genErr != nil {
			s.logger.Warn("automatic invoice generation failed",
				zap.String("reading_id", reading.ID.String()),
				zap.String("meter_serial", meter.SerialNumber),
				zap.Error(genErr))
			response.Warning = "invoice generation failed: " + genErr.Error()
		} else {
			response.Invoice = invoice
		}
	}

	return response, nil
}

// GetByID retrieves a reading by id
func (s *ReadingService) GetByID(ctx context.Context, readingID uuid.UUID) (*ReadingResponse, error) {
	reading, err := s.readingRepo.FindByID(ctx, readingID)
	if err != nil {
		return nil, err
	}

	response := ToReadingResponse(reading)
	return &response, nil
}

// ListByMeter retrieves a meter's readings with pagination
func (s *ReadingService) ListByMeter(ctx context.Context, meterID uuid.UUID, filter shared.Filter) ([]ReadingResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	readings, err := s.readingRepo.FindByMeter(ctx, meterID, filter)
	if err != nil {
		return nil, 0, err
	}

	countFilter := filter
	countFilter.Filters = map[string]interface{}{"meter_id": meterID}
	total, err := s.readingRepo.Count(ctx, countFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToReadingResponses(readings), total, nil
}

// ListByPeriod retrieves all readings of a period with pagination
func (s *ReadingService) ListByPeriod(ctx context.Context, periodToken string, filter shared.Filter) ([]ReadingResponse, int64, error) {
	period, err := valueobject.ParsePeriod(periodToken)
	if err != nil {
		return nil, 0, shared.NewValidationError("invalid period %q: must be YYYY-MM", periodToken)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	readings, err := s.readingRepo.FindByPeriod(ctx, period, filter)
	if err != nil {
		return nil, 0, err
	}

	countFilter := filter
	countFilter.Filters = map[string]interface{}{"period": period.String()}
	total, err := s.readingRepo.Count(ctx, countFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToReadingResponses(readings), total, nil
}

// publishReadingEvents publishes all domain events from the reading
func (s *ReadingService) publishReadingEvents(ctx context.Context, reading *metering.Reading) {
	if s.eventPublisher == nil {
		return
	}
	events := reading.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = s.eventPublisher.Publish(ctx, events...)
	reading.ClearDomainEvents()
}
