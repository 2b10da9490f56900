package metering

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/audit"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MeterService handles meter registry operations. Ownership changes go
// through the customer update coordination, not through this service.
type MeterService struct {
	meterRepo     metering.MeterRepository
	routeRepo     metering.RouteRepository
	changeLogRepo audit.ChangeLogRepository
	logger        *zap.Logger

	eventPublisher shared.EventPublisher
}

// NewMeterService creates a new MeterService
func NewMeterService(
	meterRepo metering.MeterRepository,
	routeRepo metering.RouteRepository,
	changeLogRepo audit.ChangeLogRepository,
	logger *zap.Logger,
) *MeterService {
	return &MeterService{
		meterRepo:     meterRepo,
		routeRepo:     routeRepo,
		changeLogRepo: changeLogRepo,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *MeterService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Register registers a new meter in the registry
func (s *MeterService) Register(ctx context.Context, req RegisterMeterRequest) (*MeterResponse, error) {
	exists, err := s.meterRepo.ExistsBySerialNumber(ctx, req.SerialNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewConflictError("meter with serial number %s already exists", req.SerialNumber)
	}

	installedAt := time.Now()
	if req.InstalledAt != nil {
		installedAt = *req.InstalledAt
	}

	meter, err := metering.NewMeter(req.SerialNumber, installedAt)
	if err != nil {
		return nil, err
	}

	if req.RouteID != nil {
		if _, err := s.routeRepo.FindByID(ctx, *req.RouteID); err != nil {
			return nil, err
		}
		meter.SetRoute(*req.RouteID)
	}

	if err := s.meterRepo.Save(ctx, meter); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, meter)

	response := ToMeterResponse(meter)
	return &response, nil
}

// GetByID retrieves a meter by id
func (s *MeterService) GetByID(ctx context.Context, meterID uuid.UUID) (*MeterResponse, error) {
	meter, err := s.meterRepo.FindByID(ctx, meterID)
	if err != nil {
		return nil, err
	}

	response := ToMeterResponse(meter)
	return &response, nil
}

// GetBySerialNumber retrieves a meter by its serial number
func (s *MeterService) GetBySerialNumber(ctx context.Context, serial string) (*MeterResponse, error) {
	meter, err := s.meterRepo.FindBySerialNumber(ctx, serial)
	if err != nil {
		return nil, err
	}

	response := ToMeterResponse(meter)
	return &response, nil
}

// List retrieves meters with pagination
func (s *MeterService) List(ctx context.Context, filter shared.Filter) ([]MeterResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	meters, err := s.meterRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.meterRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return ToMeterResponses(meters), total, nil
}

// ListByCustomer retrieves the meters owned by a customer
func (s *MeterService) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]MeterResponse, error) {
	meters, err := s.meterRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	return ToMeterResponses(meters), nil
}

// ListUnassigned retrieves meters with no owning customer
func (s *MeterService) ListUnassigned(ctx context.Context, filter shared.Filter) ([]MeterResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	meters, err := s.meterRepo.FindUnassigned(ctx, filter)
	if err != nil {
		return nil, err
	}

	return ToMeterResponses(meters), nil
}

// SetRoute places a meter on a route, or takes it off when the route id
// is null
func (s *MeterService) SetRoute(ctx context.Context, meterID uuid.UUID, req SetMeterRouteRequest) (*MeterResponse, error) {
	meter, err := s.meterRepo.FindByID(ctx, meterID)
	if err != nil {
		return nil, err
	}

	oldRoute := routeIDString(meter.RouteID)
	if req.RouteID == nil {
		meter.ClearRoute()
	} else {
		if _, err := s.routeRepo.FindByID(ctx, *req.RouteID); err != nil {
			return nil, err
		}
		meter.SetRoute(*req.RouteID)
	}

	if err := s.meterRepo.Save(ctx, meter); err != nil {
		return nil, err
	}

	s.recordChangeLog(ctx, meter.ID, appendFieldDelta(nil, "route_id", oldRoute, routeIDString(meter.RouteID)), req.ActingUserID)

	response := ToMeterResponse(meter)
	return &response, nil
}

// UpdateStatus changes a meter's lifecycle status
func (s *MeterService) UpdateStatus(ctx context.Context, meterID uuid.UUID, req UpdateMeterStatusRequest) (*MeterResponse, error) {
	meter, err := s.meterRepo.FindByID(ctx, meterID)
	if err != nil {
		return nil, err
	}

	oldStatus := string(meter.Status)
	if err := meter.SetStatus(metering.MeterStatus(req.Status)); err != nil {
		return nil, err
	}

	if err := s.meterRepo.Save(ctx, meter); err != nil {
		return nil, err
	}

	s.recordChangeLog(ctx, meter.ID, appendFieldDelta(nil, "status", oldStatus, string(meter.Status)), req.ActingUserID)

	s.publishDomainEvents(ctx, meter)

	response := ToMeterResponse(meter)
	return &response, nil
}

// recordChangeLog appends an audit entry; audit failures on simple
// mutations are logged, not propagated. A no-op mutation records nothing.
func (s *MeterService) recordChangeLog(ctx context.Context, meterID uuid.UUID, changes audit.FieldChanges, performedBy uuid.UUID) {
	if len(changes) == 0 {
		return
	}
	entry, err := audit.NewChangeLogEntry(audit.EntityTypeMeter, meterID, audit.ChangeActionUpdated, changes, performedBy)
	if err != nil {
		s.logger.Warn("could not build change log entry", zap.Error(err))
		return
	}
	if err := s.changeLogRepo.Save(ctx, entry); err != nil {
		s.logger.Warn("could not write change log entry",
			zap.String("entity_type", audit.EntityTypeMeter),
			zap.String("entity_id", meterID.String()),
			zap.Error(err))
	}
}

func appendFieldDelta(changes audit.FieldChanges, field, old, updated string) audit.FieldChanges {
	if old == updated {
		return changes
	}
	return append(changes, audit.FieldChange{Field: field, Old: old, New: updated})
}

func routeIDString(routeID *uuid.UUID) string {
	if routeID == nil {
		return ""
	}
	return routeID.String()
}

// publishDomainEvents publishes all domain events from the meter
func (s *MeterService) publishDomainEvents(ctx context.Context, meter *metering.Meter) {
	if s.eventPublisher == nil {
		return
	}
	events := meter.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = s.eventPublisher.Publish(ctx, events...)
	meter.ClearDomainEvents()
}
