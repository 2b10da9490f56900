package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/audit"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormChangeLogRepository implements ChangeLogRepository using GORM.
// The change log is append-only.
type GormChangeLogRepository struct {
	db *gorm.DB
}

// NewGormChangeLogRepository creates a new GormChangeLogRepository
func NewGormChangeLogRepository(db *gorm.DB) *GormChangeLogRepository {
	return &GormChangeLogRepository{db: db}
}

// Save inserts a change log entry
func (r *GormChangeLogRepository) Save(ctx context.Context, entry *audit.ChangeLogEntry) error {
	model := models.ChangeLogModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByEntity retrieves the change history of one entity, newest first
func (r *GormChangeLogRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter shared.Filter) (shared.Paginated[*audit.ChangeLogEntry], error) {
	return r.findPaginated(ctx, filter, func(query *gorm.DB) *gorm.DB {
		return query.Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	})
}

// FindAll retrieves change log entries with pagination, newest first
func (r *GormChangeLogRepository) FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*audit.ChangeLogEntry], error) {
	return r.findPaginated(ctx, filter, nil)
}

func (r *GormChangeLogRepository) findPaginated(ctx context.Context, filter shared.Filter, scope func(*gorm.DB) *gorm.DB) (shared.Paginated[*audit.ChangeLogEntry], error) {
	var empty shared.Paginated[*audit.ChangeLogEntry]

	countQuery := r.db.WithContext(ctx).Model(&models.ChangeLogModel{})
	if scope != nil {
		countQuery = scope(countQuery)
	}
	countQuery = r.applyFilterWithoutPagination(countQuery, filter)

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return empty, err
	}

	query := r.db.WithContext(ctx).Model(&models.ChangeLogModel{})
	if scope != nil {
		query = scope(query)
	}
	query = r.applyFilter(query, filter)

	var entryModels []models.ChangeLogModel
	if err := query.Find(&entryModels).Error; err != nil {
		return empty, err
	}

	entries := make([]*audit.ChangeLogEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToDomain()
	}

	return shared.NewPaginated(entries, total, filter.Page, filter.PageSize), nil
}

// applyFilter applies filter options to the query
func (r *GormChangeLogRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
		query = query.Order("performed_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormChangeLogRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "entity_type":
			query = query.Where("entity_type = ?", value)
		case "action":
			query = query.Where("action = ?", value)
		case "performed_by":
			query = query.Where("performed_by = ?", value)
		}
	}

	return query
}

// Ensure GormChangeLogRepository implements ChangeLogRepository
var _ audit.ChangeLogRepository = (*GormChangeLogRepository)(nil)
