package importapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/customer"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	csvimport "github.com/waterworks/backend/internal/infrastructure/import"
	"go.uber.org/zap"
)

// installedAtFormat is the layout for the optional installed_at column
const installedAtFormat = "2006-01-02"

// MeterImportService handles bulk import of meters from CSV. A row may name
// an owning customer by code; the meter is assigned on creation. Serial
// numbers are immutable, so ConflictModeUpdate is rejected and ownership
// changes go through the reassignment endpoint instead.
type MeterImportService struct {
	meterRepo    metering.MeterRepository
	customerRepo customer.CustomerRepository
	logger       *zap.Logger

	eventPublisher shared.EventPublisher
}

// NewMeterImportService creates a new MeterImportService
func NewMeterImportService(
	meterRepo metering.MeterRepository,
	customerRepo customer.CustomerRepository,
	logger *zap.Logger,
) *MeterImportService {
	return &MeterImportService{
		meterRepo:    meterRepo,
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *MeterImportService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetValidationRules returns the validation rules for meter import
func (s *MeterImportService) GetValidationRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("serial_number").Required().String().MaxLength(50).Unique().Build(),
		csvimport.Field("installed_at").Date().DateFormat(installedAtFormat).Build(),
		csvimport.Field("customer_code").String().MaxLength(50).Reference("customer").Build(),
	}
}

// LookupCustomer checks whether a customer with the given code exists
func (s *MeterImportService) LookupCustomer(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return true, nil // optional column, meter stays unassigned
	}
	return s.customerRepo.ExistsByCode(ctx, strings.ToUpper(code))
}

// LookupUnique checks if a value is unique for a given field
func (s *MeterImportService) LookupUnique(ctx context.Context, field, value string) (bool, error) {
	if value == "" {
		return false, nil // empty is not a duplicate
	}
	switch field {
	case "serial_number":
		return s.meterRepo.ExistsBySerialNumber(ctx, strings.ToUpper(value))
	default:
		return false, nil
	}
}

// Import imports meters from validated rows
func (s *MeterImportService) Import(
	ctx context.Context,
	userID uuid.UUID,
	session *csvimport.ImportSession,
	validRows []*csvimport.Row,
	conflictMode ConflictMode,
) (*ImportResult, error) {
	if session.State != csvimport.StateValidated {
		return nil, shared.NewDomainError("INVALID_STATE", "Import session must be in validated state")
	}

	if !session.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERRORS", "Cannot import session with validation errors")
	}

	if conflictMode == ConflictModeUpdate {
		return nil, shared.NewValidationError("meters cannot be updated by import: use conflict mode 'skip' or 'fail'")
	}

	session.UpdateState(csvimport.StateImporting)

	result := &ImportResult{
		TotalRows: len(validRows),
	}
	errors := csvimport.NewErrorCollection(100)

	for _, row := range validRows {
		select {
		case <-ctx.Done():
			session.UpdateState(csvimport.StateCancelled)
			return nil, ctx.Err()
		default:
		}

		err := s.importRow(ctx, row, conflictMode, result, errors)
		if err != nil {
			// Critical error - stop import
			session.UpdateState(csvimport.StateFailed)
			return nil, err
		}
	}

	result.Errors = errors.Errors()
	result.IsTruncated = errors.IsTruncated()
	result.TotalErrors = errors.TotalCount()

	if result.ErrorRows > 0 {
		session.UpdateState(csvimport.StateFailed)
	} else {
		session.UpdateState(csvimport.StateCompleted)
	}

	return result, nil
}

// importRow imports a single meter row
func (s *MeterImportService) importRow(
	ctx context.Context,
	row *csvimport.Row,
	conflictMode ConflictMode,
	result *ImportResult,
	errors *csvimport.ErrorCollection,
) error {
	serial := strings.ToUpper(strings.TrimSpace(row.Get("serial_number")))
	installedAtStr := strings.TrimSpace(row.Get("installed_at"))
	customerCode := strings.ToUpper(strings.TrimSpace(row.Get("customer_code")))

	exists, err := s.meterRepo.ExistsBySerialNumber(ctx, serial)
	if err != nil {
		return fmt.Errorf("failed to check existing meter: %w", err)
	}

	if exists {
		switch conflictMode {
		case ConflictModeSkip:
			result.SkippedRows++
			return nil
		default:
			errors.Add(csvimport.NewRowErrorWithValue(row.LineNumber, "serial_number", csvimport.ErrCodeImportDuplicateInDB,
				fmt.Sprintf("meter with serial number '%s' already exists", serial), serial))
			result.ErrorRows++
			return nil
		}
	}

	var installedAt time.Time
	if installedAtStr != "" {
		installedAt, err = time.Parse(installedAtFormat, installedAtStr)
		if err != nil {
			errors.Add(csvimport.NewRowErrorWithValue(row.LineNumber, "installed_at", csvimport.ErrCodeImportInvalidType,
				"invalid date, expected YYYY-MM-DD", installedAtStr))
			result.ErrorRows++
			return nil
		}
	}

	meter, err := metering.NewMeter(serial, installedAt)
	if err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, err.Error()))
		result.ErrorRows++
		return nil
	}

	if customerCode != "" {
		owner, err := s.customerRepo.FindByCode(ctx, customerCode)
		if err != nil {
			if shared.IsNotFound(err) {
				errors.Add(csvimport.NewRowErrorWithValue(row.LineNumber, "customer_code", csvimport.ErrCodeImportReferenceNotFound,
					fmt.Sprintf("customer '%s' not found", customerCode), customerCode))
				result.ErrorRows++
				return nil
			}
			return fmt.Errorf("failed to look up customer: %w", err)
		}
		if err := meter.AssignTo(owner.ID); err != nil {
			errors.Add(csvimport.NewRowError(row.LineNumber, "customer_code", csvimport.ErrCodeImportValidation, err.Error()))
			result.ErrorRows++
			return nil
		}
	}

	if err := s.meterRepo.Save(ctx, meter); err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, "failed to save meter: "+err.Error()))
		result.ErrorRows++
		return nil
	}

	s.publishMeterEvents(ctx, meter)

	result.ImportedRows++
	return nil
}

func (s *MeterImportService) publishMeterEvents(ctx context.Context, meter *metering.Meter) {
	if s.eventPublisher == nil {
		return
	}
	events := meter.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events for imported meter",
			zap.String("serial_number", meter.SerialNumber),
			zap.Error(err))
	}
	meter.ClearDomainEvents()
}
