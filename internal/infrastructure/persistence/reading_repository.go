package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"github.com/waterworks/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReadingRepository implements ReadingRepository using GORM
type GormReadingRepository struct {
	db *gorm.DB
}

// NewGormReadingRepository creates a new GormReadingRepository
func NewGormReadingRepository(db *gorm.DB) *GormReadingRepository {
	return &GormReadingRepository{db: db}
}

// FindByID finds a reading by its ID
func (r *GormReadingRepository) FindByID(ctx context.Context, id uuid.UUID) (*metering.Reading, error) {
	var model models.ReadingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("reading %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByMeterAndPeriod finds the reading for a meter in a period
func (r *GormReadingRepository) FindByMeterAndPeriod(ctx context.Context, meterID uuid.UUID, period valueobject.Period) (*metering.Reading, error) {
	var model models.ReadingModel
	if err := r.db.WithContext(ctx).
		Where("meter_id = ? AND period = ?", meterID, period).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("no reading for meter %s in period %s", meterID, period.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsForMeterAndPeriod checks whether a reading exists for (meter, period).
// The unique index on (meter_id, period) remains the authoritative guard.
func (r *GormReadingRepository) ExistsForMeterAndPeriod(ctx context.Context, meterID uuid.UUID, period valueobject.Period) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReadingModel{}).
		Where("meter_id = ? AND period = ?", meterID, period).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByMeter finds readings for a meter, most recent period first
func (r *GormReadingRepository) FindByMeter(ctx context.Context, meterID uuid.UUID, filter shared.Filter) ([]metering.Reading, error) {
	var readingModels []models.ReadingModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.ReadingModel{}).
			Where("meter_id = ?", meterID),
		filter,
		"period DESC",
	)

	if err := query.Find(&readingModels).Error; err != nil {
		return nil, err
	}

	readings := make([]metering.Reading, len(readingModels))
	for i, model := range readingModels {
		readings[i] = *model.ToDomain()
	}
	return readings, nil
}

// FindByPeriod finds all readings in a period
func (r *GormReadingRepository) FindByPeriod(ctx context.Context, period valueobject.Period, filter shared.Filter) ([]metering.Reading, error) {
	var readingModels []models.ReadingModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.ReadingModel{}).
			Where("period = ?", period),
		filter,
		"read_on ASC",
	)

	if err := query.Find(&readingModels).Error; err != nil {
		return nil, err
	}

	readings := make([]metering.Reading, len(readingModels))
	for i, model := range readingModels {
		readings[i] = *model.ToDomain()
	}
	return readings, nil
}

// Save inserts a reading. Readings are immutable once recorded; a duplicate
// (meter, period) insert is mapped to an ALREADY_EXISTS domain error.
func (r *GormReadingRepository) Save(ctx context.Context, reading *metering.Reading) error {
	model := models.ReadingModelFromDomain(reading)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewConflictError("reading already exists for meter %s in period %s", reading.MeterID, reading.Period.String())
		}
		return err
	}
	return nil
}

// Count counts readings matching the filter
func (r *GormReadingRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ReadingModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormReadingRepository) applyFilter(query *gorm.DB, filter shared.Filter, defaultOrder string) *gorm.DB {
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
		query = query.Order(defaultOrder)
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormReadingRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "meter_id":
			query = query.Where("meter_id = ?", value)
		case "route_id":
			query = query.Where("route_id = ?", value)
		case "period":
			query = query.Where("period = ?", value)
		}
	}

	return query
}

// Ensure GormReadingRepository implements ReadingRepository
var _ metering.ReadingRepository = (*GormReadingRepository)(nil)
