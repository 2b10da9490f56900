package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTariffRepository implements TariffRepository using GORM
type GormTariffRepository struct {
	db *gorm.DB
}

// NewGormTariffRepository creates a new GormTariffRepository
func NewGormTariffRepository(db *gorm.DB) *GormTariffRepository {
	return &GormTariffRepository{db: db}
}

// FindByID retrieves a tariff by its unique identifier, without ranges
func (r *GormTariffRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Tariff, error) {
	var model models.TariffModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("tariff %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDWithRanges retrieves a tariff with its range set preloaded
func (r *GormTariffRepository) FindByIDWithRanges(ctx context.Context, id uuid.UUID) (*billing.Tariff, error) {
	tariff, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ranges, err := r.FindRanges(ctx, id)
	if err != nil {
		return nil, err
	}
	tariff.Ranges = ranges

	return tariff, nil
}

// FindAll retrieves tariffs with pagination
func (r *GormTariffRepository) FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*billing.Tariff], error) {
	var empty shared.Paginated[*billing.Tariff]

	var total int64
	countQuery := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.TariffModel{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return empty, err
	}

	var tariffModels []models.TariffModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.TariffModel{}), filter)
	if err := query.Find(&tariffModels).Error; err != nil {
		return empty, err
	}

	tariffs := make([]*billing.Tariff, len(tariffModels))
	for i := range tariffModels {
		tariffs[i] = tariffModels[i].ToDomain()
	}

	return shared.NewPaginated(tariffs, total, filter.Page, filter.PageSize), nil
}

// FindRanges retrieves the range set of a tariff ordered by minimum
func (r *GormTariffRepository) FindRanges(ctx context.Context, tariffID uuid.UUID) ([]billing.TariffRange, error) {
	var rangeModels []models.TariffRangeModel
	if err := r.db.WithContext(ctx).
		Where("tariff_id = ?", tariffID).
		Order("min_m3 ASC").
		Find(&rangeModels).Error; err != nil {
		return nil, err
	}

	ranges := make([]billing.TariffRange, len(rangeModels))
	for i := range rangeModels {
		ranges[i] = rangeModels[i].ToDomain()
	}
	return ranges, nil
}

// Save persists a tariff (insert or update), without touching ranges
func (r *GormTariffRepository) Save(ctx context.Context, tariff *billing.Tariff) error {
	model := models.TariffModelFromDomain(tariff)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveRanges persists a range set in one transaction: ranges whose id
// matches an existing row are updated in place, the rest are inserted.
// Returns the number of ranges processed. Column-map updates keep a
// zero minimum from being skipped.
func (r *GormTariffRepository) SaveRanges(ctx context.Context, tariffID uuid.UUID, ranges []billing.TariffRange) (int, error) {
	if len(ranges) == 0 {
		return 0, nil
	}

	processed := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existingIDs []uuid.UUID
		if err := tx.Model(&models.TariffRangeModel{}).
			Where("tariff_id = ?", tariffID).
			Pluck("id", &existingIDs).Error; err != nil {
			return err
		}

		existing := make(map[uuid.UUID]struct{}, len(existingIDs))
		for _, id := range existingIDs {
			existing[id] = struct{}{}
		}

		for i := range ranges {
			model := models.TariffRangeModelFromDomain(ranges[i])
			model.TariffID = tariffID

			if _, ok := existing[model.ID]; ok {
				if err := tx.Model(&models.TariffRangeModel{}).
					Where("id = ?", model.ID).
					Updates(map[string]interface{}{
						"min_m3":       model.MinM3,
						"max_m3":       model.MaxM3,
						"price_per_m3": model.PricePerM3,
						"updated_at":   model.UpdatedAt,
					}).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Create(model).Error; err != nil {
					return err
				}
			}
			processed++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}

// Count returns the total number of tariffs
func (r *GormTariffRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TariffModel{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormTariffRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
		query = query.Order("starts_on DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormTariffRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "active_on":
			query = query.Where("starts_on <= ? AND (ends_on IS NULL OR ends_on >= ?)", value, value)
		}
	}

	return query
}

// Ensure GormTariffRepository implements TariffRepository
var _ billing.TariffRepository = (*GormTariffRepository)(nil)
