package customer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	meteringapp "github.com/waterworks/backend/internal/application/metering"
	"github.com/waterworks/backend/internal/domain/audit"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/customer"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CustomerService handles customer account operations, including the
// coordinated update that moves meter ownership between customers.
type CustomerService struct {
	customerRepo  customer.CustomerRepository
	meterRepo     metering.MeterRepository
	tariffRepo    billing.TariffRepository
	changeLogRepo audit.ChangeLogRepository
	logger        *zap.Logger

	eventPublisher shared.EventPublisher
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(
	customerRepo customer.CustomerRepository,
	meterRepo metering.MeterRepository,
	tariffRepo billing.TariffRepository,
	changeLogRepo audit.ChangeLogRepository,
	logger *zap.Logger,
) *CustomerService {
	return &CustomerService{
		customerRepo:  customerRepo,
		meterRepo:     meterRepo,
		tariffRepo:    tariffRepo,
		changeLogRepo: changeLogRepo,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *CustomerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create opens a new customer account
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	exists, err := s.customerRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewConflictError("customer with code %s already exists", req.Code)
	}

	cust, err := customer.NewCustomer(req.Code, req.Name)
	if err != nil {
		return nil, err
	}

	if req.Phone != "" || req.Email != "" || req.Address != "" {
		if err := cust.UpdateDetails(cust.Name, req.Phone, req.Email, req.Address); err != nil {
			return nil, err
		}
	}

	if req.TariffID != nil {
		if _, err := s.tariffRepo.FindByID(ctx, *req.TariffID); err != nil {
			return nil, err
		}
		cust.AssignTariff(*req.TariffID)
	}

	if err := s.customerRepo.Save(ctx, cust); err != nil {
		return nil, err
	}

	s.recordChangeLog(ctx, audit.EntityTypeCustomer, cust.ID, audit.ChangeActionCreated, audit.FieldChanges{
		{Field: "code", New: cust.Code},
		{Field: "name", New: cust.Name},
	}, uuid.Nil)

	s.publishDomainEvents(ctx, cust)

	response := ToCustomerResponse(cust)
	return &response, nil
}

// GetByID retrieves a customer with its owned-meter projection
func (s *CustomerService) GetByID(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	cust, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	return s.toProjection(ctx, cust)
}

// GetByCode retrieves a customer by its account code
func (s *CustomerService) GetByCode(ctx context.Context, code string) (*CustomerResponse, error) {
	cust, err := s.customerRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	return s.toProjection(ctx, cust)
}

// List retrieves customers with pagination
func (s *CustomerService) List(ctx context.Context, filter shared.Filter) (*CustomerListResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	customers, err := s.customerRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.customerRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &CustomerListResponse{
		Customers: ToCustomerResponses(customers),
		Total:     total,
		Page:      filter.Page,
		PageSize:  filter.PageSize,
	}, nil
}

// Update applies a coordinated customer update: field changes, tariff
// assignment, and meter ownership moves. Per-meter operations run
// concurrently; there is no cross-meter transaction. When any per-item
// operation fails, the update returns a validation error listing every
// failure, but operations that already completed are not rolled back.
func (s *CustomerService) Update(ctx context.Context, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "update")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, customerID.String(),
	)

	var response *CustomerResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.BillingOperationLabels(telemetry.OperationUpdateCustomer), func(c context.Context) {
		response, operationErr = s.update(c, customerID, req)
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}

	return response, nil
}

func (s *CustomerService) update(ctx context.Context, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	cust, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	changes := make(audit.FieldChanges, 0, 4+len(req.ReleaseMeterIDs)+len(req.AssignMeterIDs))

	// Field-level updates are validated in full before any write.
	if req.Name != nil || req.Phone != nil || req.Email != nil || req.Address != nil {
		name, phone, email, address := cust.Name, cust.Phone, cust.Email, cust.Address
		if req.Name != nil {
			name = *req.Name
		}
		if req.Phone != nil {
			phone = *req.Phone
		}
		if req.Email != nil {
			email = *req.Email
		}
		if req.Address != nil {
			address = *req.Address
		}

		changes = appendFieldDelta(changes, "name", cust.Name, name)
		changes = appendFieldDelta(changes, "phone", cust.Phone, phone)
		changes = appendFieldDelta(changes, "email", cust.Email, email)
		changes = appendFieldDelta(changes, "address", cust.Address, address)

		if err := cust.UpdateDetails(name, phone, email, address); err != nil {
			return nil, err
		}
	}

	if req.ClearTariff {
		if cust.TariffID != nil {
			changes = append(changes, audit.FieldChange{Field: "tariff_id", Old: cust.TariffID.String()})
			cust.ClearTariff()
		}
	} else if req.TariffID != nil {
		if _, err := s.tariffRepo.FindByID(ctx, *req.TariffID); err != nil {
			return nil, err
		}
		if cust.TariffID == nil || *cust.TariffID != *req.TariffID {
			old := ""
			if cust.TariffID != nil {
				old = cust.TariffID.String()
			}
			changes = append(changes, audit.FieldChange{Field: "tariff_id", Old: old, New: req.TariffID.String()})
			cust.AssignTariff(*req.TariffID)
		}
	}

	if err := s.customerRepo.SaveWithLock(ctx, cust); err != nil {
		return nil, err
	}

	// Meter ownership fan-out. Each meter is independent; operations run
	// concurrently and join on completion of the full set. Already-applied
	// mutations are not rolled back when a sibling operation fails.
	total := len(req.ReleaseMeterIDs) + len(req.AssignMeterIDs)
	if total > 0 {
		results := make([]meterOpResult, total)
		var wg sync.WaitGroup
		wg.Add(total)

		slot := 0
		for _, meterID := range req.ReleaseMeterIDs {
			go func(slot int, meterID uuid.UUID) {
				defer wg.Done()
				results[slot] = s.releaseMeter(ctx, cust.ID, meterID)
			}(slot, meterID)
			slot++
		}
		for _, meterID := range req.AssignMeterIDs {
			go func(slot int, meterID uuid.UUID) {
				defer wg.Done()
				results[slot] = s.assignMeter(ctx, cust.ID, meterID)
			}(slot, meterID)
			slot++
		}
		wg.Wait()

		var failures []string
		for _, result := range results {
			if result.err != nil {
				failures = append(failures, fmt.Sprintf("meter %s: %s", result.meterID, result.err.Error()))
				continue
			}
			if result.change != nil {
				changes = append(changes, *result.change)
			}
		}
		if len(failures) > 0 {
			s.logger.Warn("customer update completed with meter operation failures",
				zap.String("customer_id", cust.ID.String()),
				zap.Int("failed", len(failures)),
				zap.Int("total", total))
			return nil, shared.NewValidationError("%d of %d meter operations failed: %s",
				len(failures), total, strings.Join(failures, "; "))
		}
	}

	entry, err := audit.NewChangeLogEntry(audit.EntityTypeCustomer, cust.ID, audit.ChangeActionUpdated, changes, req.ActingUserID)
	if err != nil {
		return nil, err
	}
	if err := s.changeLogRepo.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, cust)

	return s.toProjection(ctx, cust)
}

// Activate activates a customer account
func (s *CustomerService) Activate(ctx context.Context, customerID uuid.UUID, actingUserID uuid.UUID) (*CustomerResponse, error) {
	return s.changeStatus(ctx, customerID, actingUserID, func(c *customer.Customer) error {
		return c.Activate()
	})
}

// Deactivate deactivates a customer account. The record is kept; the
// engine never physically deletes customers.
func (s *CustomerService) Deactivate(ctx context.Context, customerID uuid.UUID, actingUserID uuid.UUID) (*CustomerResponse, error) {
	return s.changeStatus(ctx, customerID, actingUserID, func(c *customer.Customer) error {
		return c.Deactivate()
	})
}

func (s *CustomerService) changeStatus(ctx context.Context, customerID uuid.UUID, actingUserID uuid.UUID, transition func(*customer.Customer) error) (*CustomerResponse, error) {
	cust, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	oldStatus := string(cust.Status)
	if err := transition(cust); err != nil {
		return nil, err
	}

	if err := s.customerRepo.Save(ctx, cust); err != nil {
		return nil, err
	}

	s.recordChangeLog(ctx, audit.EntityTypeCustomer, cust.ID, audit.ChangeActionUpdated, audit.FieldChanges{
		{Field: "status", Old: oldStatus, New: string(cust.Status)},
	}, actingUserID)

	s.publishDomainEvents(ctx, cust)

	response := ToCustomerResponse(cust)
	return &response, nil
}

// meterOpResult is one per-meter outcome from the ownership fan-out
type meterOpResult struct {
	meterID uuid.UUID
	change  *audit.FieldChange
	err     error
}

func (s *CustomerService) releaseMeter(ctx context.Context, customerID, meterID uuid.UUID) meterOpResult {
	result := meterOpResult{meterID: meterID}

	meter, err := s.meterRepo.FindByID(ctx, meterID)
	if err != nil {
		result.err = err
		return result
	}
	if err := meter.ReleaseFrom(customerID); err != nil {
		result.err = err
		return result
	}
	if err := s.meterRepo.Save(ctx, meter); err != nil {
		result.err = err
		return result
	}

	s.publishMeterEvents(ctx, meter)
	result.change = &audit.FieldChange{
		Field: "meter:" + meter.SerialNumber,
		Old:   customerID.String(),
	}
	return result
}

func (s *CustomerService) assignMeter(ctx context.Context, customerID, meterID uuid.UUID) meterOpResult {
	result := meterOpResult{meterID: meterID}

	meter, err := s.meterRepo.FindByID(ctx, meterID)
	if err != nil {
		result.err = err
		return result
	}
	if meter.IsOwnedBy(customerID) {
		// Assigning to the current owner is a no-op, not an error.
		return result
	}
	if err := meter.AssignTo(customerID); err != nil {
		result.err = err
		return result
	}
	if err := s.meterRepo.Save(ctx, meter); err != nil {
		result.err = err
		return result
	}

	s.publishMeterEvents(ctx, meter)
	result.change = &audit.FieldChange{
		Field: "meter:" + meter.SerialNumber,
		New:   customerID.String(),
	}
	return result
}

// toProjection builds the customer response with its owned meters
func (s *CustomerService) toProjection(ctx context.Context, cust *customer.Customer) (*CustomerResponse, error) {
	meters, err := s.meterRepo.FindByCustomer(ctx, cust.ID)
	if err != nil {
		return nil, err
	}

	response := ToCustomerResponse(cust)
	response.Meters = meteringapp.ToMeterResponses(meters)
	return &response, nil
}

// recordChangeLog appends an audit entry; audit failures on simple
// mutations are logged, not propagated.
func (s *CustomerService) recordChangeLog(ctx context.Context, entityType string, entityID uuid.UUID, action audit.ChangeAction, changes audit.FieldChanges, performedBy uuid.UUID) {
	entry, err := audit.NewChangeLogEntry(entityType, entityID, action, changes, performedBy)
	if err != nil {
		s.logger.Warn("could not build change log entry", zap.Error(err))
		return
	}
	if err := s.changeLogRepo.Save(ctx, entry); err != nil {
		s.logger.Warn("could not write change log entry",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
	}
}

func appendFieldDelta(changes audit.FieldChanges, field, old, updated string) audit.FieldChanges {
	if old == updated {
		return changes
	}
	return append(changes, audit.FieldChange{Field: field, Old: old, New: updated})
}

// publishDomainEvents publishes all domain events from the customer
func (s *CustomerService) publishDomainEvents(ctx context.Context, cust *customer.Customer) {
	if s.eventPublisher == nil {
		return
	}
	events := cust.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = s.eventPublisher.Publish(ctx, events...)
	cust.ClearDomainEvents()
}

func (s *CustomerService) publishMeterEvents(ctx context.Context, meter *metering.Meter) {
	if s.eventPublisher == nil {
		return
	}
	events := meter.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	meter.ClearDomainEvents()
}
