package importapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	csvimport "github.com/waterworks/backend/internal/infrastructure/import"
	"go.uber.org/zap"
)

// ConflictMode defines how to handle conflicts during import
type ConflictMode string

const (
	// ConflictModeSkip skips rows that conflict with existing data
	ConflictModeSkip ConflictMode = "skip"
	// ConflictModeUpdate updates existing records with new data
	ConflictModeUpdate ConflictMode = "update"
	// ConflictModeFail fails the import if any conflicts are found
	ConflictModeFail ConflictMode = "fail"
)

// IsValid checks if the conflict mode is valid
func (c ConflictMode) IsValid() bool {
	switch c {
	case ConflictModeSkip, ConflictModeUpdate, ConflictModeFail:
		return true
	}
	return false
}

// ImportResult summarizes an executed import
type ImportResult struct {
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	UpdatedRows  int                  `json:"updated_rows"`
	SkippedRows  int                  `json:"skipped_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// readOnFormat is the layout for the optional read_on column
const readOnFormat = "2006-01-02"

// ReadingImportService handles bulk import of meter readings from CSV.
// Imported readings do not trigger automatic invoicing; the bulk backfill
// covers invoice generation for historical periods.
type ReadingImportService struct {
	readingRepo metering.ReadingRepository
	meterRepo   metering.MeterRepository
	notifier    shared.Notifier
	logger      *zap.Logger

	eventPublisher shared.EventPublisher
}

// NewReadingImportService creates a new ReadingImportService
func NewReadingImportService(
	readingRepo metering.ReadingRepository,
	meterRepo metering.MeterRepository,
	notifier shared.Notifier,
	logger *zap.Logger,
) *ReadingImportService {
	if notifier == nil {
		notifier = shared.NopNotifier{}
	}
	return &ReadingImportService{
		readingRepo: readingRepo,
		meterRepo:   meterRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *ReadingImportService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetValidationRules returns the validation rules for reading import
func (s *ReadingImportService) GetValidationRules() []csvimport.FieldRule {
	zero := decimal.Zero
	return []csvimport.FieldRule{
		csvimport.Field("meter_serial").Required().String().MaxLength(50).Reference("meter").Build(),
		csvimport.Field("period").Required().Period().Build(),
		csvimport.Field("consumption_m3").Required().Decimal().MinValue(zero).Build(),
		csvimport.Field("read_on").Date().DateFormat(readOnFormat).Build(),
	}
}

// LookupMeter checks whether a meter with the given serial number exists
func (s *ReadingImportService) LookupMeter(ctx context.Context, serial string) (bool, error) {
	if serial == "" {
		return false, nil
	}
	return s.meterRepo.ExistsBySerialNumber(ctx, strings.ToUpper(serial))
}

// Import imports readings from validated rows. Readings are immutable once
// recorded, so ConflictModeUpdate is rejected; duplicates in the target
// period are skipped or fail the row depending on the mode.
func (s *ReadingImportService) Import(
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
		return nil, shared.NewValidationError("readings cannot be updated by import: use conflict mode 'skip' or 'fail'")
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

		err := s.importRow(ctx, userID, row, conflictMode, result, errors)
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

	s.notifier.Notify(ctx, "import.completed", map[string]interface{}{
		"entity_type":   string(csvimport.EntityReadings),
		"file_name":     session.FileName,
		"total_rows":    result.TotalRows,
		"imported_rows": result.ImportedRows,
		"skipped_rows":  result.SkippedRows,
		"error_rows":    result.ErrorRows,
	}, shared.AudienceOperations)

	return result, nil
}

// importRow imports a single reading row
func (s *ReadingImportService) importRow(
	ctx context.Context,
	userID uuid.UUID,
	row *csvimport.Row,
	conflictMode ConflictMode,
	result *ImportResult,
	errors *csvimport.ErrorCollection,
) error {
	serial := strings.ToUpper(strings.TrimSpace(row.Get("meter_serial")))
	periodStr := strings.TrimSpace(row.Get("period"))
	consumptionStr := strings.TrimSpace(row.Get("consumption_m3"))
	readOnStr := strings.TrimSpace(row.Get("read_on"))

	// The meter can disappear between validation and import.
	meter, err := s.meterRepo.FindBySerialNumber(ctx, serial)
	if err != nil {
		if shared.IsNotFound(err) {
			errors.Add(csvimport.NewRowErrorWithValue(row.LineNumber, "meter_serial", csvimport.ErrCodeImportReferenceNotFound,
				fmt.Sprintf("meter '%s' not found", serial), serial))
			result.ErrorRows++
			return nil
		}
		return fmt.Errorf("failed to look up meter: %w", err)
	}

	if meter.RouteID == nil {
		errors.Add(csvimport.NewRowErrorWithValue(row.LineNumber, "meter_serial", csvimport.ErrCodeImportValidation,
			fmt.Sprintf("meter '%s' has no collection route assigned", serial), serial))
		result.ErrorRows++
		return nil
	}

	period, err := valueobject.ParsePeriod(periodStr)
	if err != nil {
		errors.Add(csvimport.NewRowErrorWithValue(row.LineNumber, "period", csvimport.ErrCodeImportInvalidType,
			"invalid billing period, expected YYYY-MM", periodStr))
		result.ErrorRows++
		return nil
	}

	consumption, err := decimal.NewFromString(consumptionStr)
	if err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "consumption_m3", csvimport.ErrCodeImportInvalidType, "invalid decimal value"))
		result.ErrorRows++
		return nil
	}

	readOn := time.Now()
	if readOnStr != "" {
		readOn, err = time.Parse(readOnFormat, readOnStr)
		if err != nil {
			errors.Add(csvimport.NewRowErrorWithValue(row.LineNumber, "read_on", csvimport.ErrCodeImportInvalidType,
				"invalid date, expected YYYY-MM-DD", readOnStr))
			result.ErrorRows++
			return nil
		}
	}

	exists, err := s.readingRepo.ExistsForMeterAndPeriod(ctx, meter.ID, period)
	if err != nil {
		return fmt.Errorf("failed to check existing reading: %w", err)
	}

	if exists {
		switch conflictMode {
		case ConflictModeSkip:
			result.SkippedRows++
			return nil
		default:
			errors.Add(csvimport.NewRowErrorWithValue(row.LineNumber, "period", csvimport.ErrCodeImportDuplicateInDB,
				fmt.Sprintf("reading already exists for meter '%s' in period %s", serial, period), periodStr))
			result.ErrorRows++
			return nil
		}
	}

	reading, err := metering.NewReading(meter.ID, *meter.RouteID, period, consumption, readOn, userID)
	if err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, err.Error()))
		result.ErrorRows++
		return nil
	}

	if err := s.readingRepo.Save(ctx, reading); err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, "failed to save reading: "+err.Error()))
		result.ErrorRows++
		return nil
	}

	s.publishEvents(ctx, reading, serial)

	result.ImportedRows++
	return nil
}

func (s *ReadingImportService) publishEvents(ctx context.Context, reading *metering.Reading, serial string) {
	if s.eventPublisher == nil {
		return
	}
	events := reading.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events for imported reading",
			zap.String("meter_serial", serial),
			zap.Error(err))
	}
	reading.ClearDomainEvents()
}
