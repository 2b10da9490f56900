package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMeterRepository implements MeterRepository using GORM
type GormMeterRepository struct {
	db *gorm.DB
}

// NewGormMeterRepository creates a new GormMeterRepository
func NewGormMeterRepository(db *gorm.DB) *GormMeterRepository {
	return &GormMeterRepository{db: db}
}

// FindByID finds a meter by its ID
func (r *GormMeterRepository) FindByID(ctx context.Context, id uuid.UUID) (*metering.Meter, error) {
	var model models.MeterModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("meter %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySerialNumber finds a meter by its serial number
func (r *GormMeterRepository) FindBySerialNumber(ctx context.Context, serial string) (*metering.Meter, error) {
	var model models.MeterModel
	if err := r.db.WithContext(ctx).
		Where("serial_number = ?", strings.ToUpper(serial)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("meter with serial number %s not found", strings.ToUpper(serial))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all meters matching the filter
func (r *GormMeterRepository) FindAll(ctx context.Context, filter shared.Filter) ([]metering.Meter, error) {
	var meterModels []models.MeterModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.MeterModel{}), filter)

	if err := query.Find(&meterModels).Error; err != nil {
		return nil, err
	}

	meters := make([]metering.Meter, len(meterModels))
	for i, model := range meterModels {
		meters[i] = *model.ToDomain()
	}
	return meters, nil
}

// FindByCustomer finds all meters owned by a customer
func (r *GormMeterRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]metering.Meter, error) {
	var meterModels []models.MeterModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("serial_number ASC").
		Find(&meterModels).Error; err != nil {
		return nil, err
	}

	meters := make([]metering.Meter, len(meterModels))
	for i, model := range meterModels {
		meters[i] = *model.ToDomain()
	}
	return meters, nil
}

// FindUnassigned finds meters with no owning customer
func (r *GormMeterRepository) FindUnassigned(ctx context.Context, filter shared.Filter) ([]metering.Meter, error) {
	var meterModels []models.MeterModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.MeterModel{}).
			Where("customer_id IS NULL"),
		filter,
	)

	if err := query.Find(&meterModels).Error; err != nil {
		return nil, err
	}

	meters := make([]metering.Meter, len(meterModels))
	for i, model := range meterModels {
		meters[i] = *model.ToDomain()
	}
	return meters, nil
}

// Save creates or updates a meter
func (r *GormMeterRepository) Save(ctx context.Context, meter *metering.Meter) error {
	model := models.MeterModelFromDomain(meter)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewConflictError("meter with serial number %s already exists", meter.SerialNumber)
		}
		return err
	}
	return nil
}

// SaveWithLock saves a meter with optimistic locking (version check).
// Updates use a column map so that releasing an owner writes NULL.
func (r *GormMeterRepository) SaveWithLock(ctx context.Context, meter *metering.Meter) error {
	model := models.MeterModelFromDomain(meter)
	result := r.db.WithContext(ctx).
		Model(&models.MeterModel{}).
		Where("id = ? AND version = ?", meter.ID, meter.Version-1).
		Updates(map[string]interface{}{
			"customer_id": model.CustomerID,
			"route_id":    model.RouteID,
			"status":      model.Status,
			"version":     model.Version,
			"updated_at":  model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "the meter record has been modified by another transaction")
	}
	return nil
}

// Count counts meters matching the filter
func (r *GormMeterRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.MeterModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsBySerialNumber checks if a meter with the serial number exists
func (r *GormMeterRepository) ExistsBySerialNumber(ctx context.Context, serial string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.MeterModel{}).
		Where("serial_number = ?", strings.ToUpper(serial)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormMeterRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("serial_number ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormMeterRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("serial_number ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "route_id":
			query = query.Where("route_id = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "assigned":
			if value == true {
				query = query.Where("customer_id IS NOT NULL")
			} else {
				query = query.Where("customer_id IS NULL")
			}
		}
	}

	return query
}

// Ensure GormMeterRepository implements MeterRepository
var _ metering.MeterRepository = (*GormMeterRepository)(nil)
