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

// GormRouteRepository implements RouteRepository using GORM
type GormRouteRepository struct {
	db *gorm.DB
}

// NewGormRouteRepository creates a new GormRouteRepository
func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// FindByID finds a route by its ID
func (r *GormRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*metering.Route, error) {
	var model models.RouteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("route %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all routes matching the filter
func (r *GormRouteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]metering.Route, error) {
	var routeModels []models.RouteModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.RouteModel{}), filter)

	if err := query.Find(&routeModels).Error; err != nil {
		return nil, err
	}

	routes := make([]metering.Route, len(routeModels))
	for i, model := range routeModels {
		routes[i] = *model.ToDomain()
	}
	return routes, nil
}

// Save creates or updates a route
func (r *GormRouteRepository) Save(ctx context.Context, route *metering.Route) error {
	model := models.RouteModelFromDomain(route)
	return r.db.WithContext(ctx).Save(model).Error
}

// Count counts routes matching the filter
func (r *GormRouteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.RouteModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormRouteRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
		query = query.Order("name ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormRouteRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR zone ILIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "zone":
			query = query.Where("zone = ?", value)
		}
	}

	return query
}

// Ensure GormRouteRepository implements RouteRepository
var _ metering.RouteRepository = (*GormRouteRepository)(nil)
