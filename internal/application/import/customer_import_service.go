package importapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/customer"
	"github.com/waterworks/backend/internal/domain/shared"
	csvimport "github.com/waterworks/backend/internal/infrastructure/import"
	"go.uber.org/zap"
)

// CustomerImportService handles bulk import of customer accounts from CSV.
// Account codes come from the utility's own numbering scheme and are
// required on every row; the import never invents codes.
type CustomerImportService struct {
	customerRepo customer.CustomerRepository
	logger       *zap.Logger

	eventPublisher shared.EventPublisher
}

// NewCustomerImportService creates a new CustomerImportService
func NewCustomerImportService(customerRepo customer.CustomerRepository, logger *zap.Logger) *CustomerImportService {
	return &CustomerImportService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *CustomerImportService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetValidationRules returns the validation rules for customer import
func (s *CustomerImportService) GetValidationRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("customer_code").Required().String().MaxLength(50).Unique().Build(),
		csvimport.Field("name").Required().String().MinLength(1).MaxLength(200).Build(),
		csvimport.Field("phone").String().MaxLength(50).Build(),
		csvimport.Field("email").Email().Build(),
		csvimport.Field("address").String().MaxLength(500).Build(),
	}
}

// LookupUnique checks if a value is unique for a given field
func (s *CustomerImportService) LookupUnique(ctx context.Context, field, value string) (bool, error) {
	if value == "" {
		return false, nil // empty is not a duplicate
	}
	switch field {
	case "customer_code":
		return s.customerRepo.ExistsByCode(ctx, strings.ToUpper(value))
	default:
		return false, nil
	}
}

// Import imports customers from validated rows
func (s *CustomerImportService) Import(
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

// importRow imports a single customer row
func (s *CustomerImportService) importRow(
	ctx context.Context,
	row *csvimport.Row,
	conflictMode ConflictMode,
	result *ImportResult,
	errors *csvimport.ErrorCollection,
) error {
	code := strings.ToUpper(strings.TrimSpace(row.Get("customer_code")))
	name := strings.TrimSpace(row.Get("name"))
	phone := strings.TrimSpace(row.Get("phone"))
	email := strings.TrimSpace(row.Get("email"))
	address := strings.TrimSpace(row.Get("address"))

	exists, err := s.customerRepo.ExistsByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to check existing customer: %w", err)
	}

	if exists {
		switch conflictMode {
		case ConflictModeSkip:
			result.SkippedRows++
			return nil
		case ConflictModeFail:
			errors.Add(csvimport.NewRowErrorWithValue(row.LineNumber, "customer_code", csvimport.ErrCodeImportDuplicateInDB,
				fmt.Sprintf("customer with code '%s' already exists", code), code))
			result.ErrorRows++
			return nil
		case ConflictModeUpdate:
			return s.updateExistingCustomer(ctx, code, name, phone, email, address, row, result, errors)
		}
	}

	acct, err := customer.NewCustomer(code, name)
	if err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, err.Error()))
		result.ErrorRows++
		return nil
	}

	if phone != "" || email != "" || address != "" {
		if err := acct.UpdateDetails(name, phone, email, address); err != nil {
			errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, err.Error()))
			result.ErrorRows++
			return nil
		}
	}

	if err := s.customerRepo.Save(ctx, acct); err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, "failed to save customer: "+err.Error()))
		result.ErrorRows++
		return nil
	}

	s.publishCustomerEvents(ctx, acct)

	result.ImportedRows++
	return nil
}

// updateExistingCustomer updates an existing customer with import data
func (s *CustomerImportService) updateExistingCustomer(
	ctx context.Context,
	code, name, phone, email, address string,
	row *csvimport.Row,
	result *ImportResult,
	errors *csvimport.ErrorCollection,
) error {
	acct, err := s.customerRepo.FindByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to load customer for update: %w", err)
	}

	if err := acct.UpdateDetails(name, phone, email, address); err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, err.Error()))
		result.ErrorRows++
		return nil
	}

	if err := s.customerRepo.Save(ctx, acct); err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, "failed to save customer: "+err.Error()))
		result.ErrorRows++
		return nil
	}

	s.publishCustomerEvents(ctx, acct)

	result.UpdatedRows++
	return nil
}

func (s *CustomerImportService) publishCustomerEvents(ctx context.Context, acct *customer.Customer) {
	if s.eventPublisher == nil {
		return
	}
	events := acct.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events for imported customer",
			zap.String("customer_code", acct.Code),
			zap.Error(err))
	}
	acct.ClearDomainEvents()
}
