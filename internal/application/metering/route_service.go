package metering

import (
	"context"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
)

// RouteService handles collection route management
type RouteService struct {
	routeRepo metering.RouteRepository
}

// NewRouteService creates a new RouteService
func NewRouteService(routeRepo metering.RouteRepository) *RouteService {
	return &RouteService{routeRepo: routeRepo}
}

// Create creates a new collection route
func (s *RouteService) Create(ctx context.Context, req CreateRouteRequest) (*RouteResponse, error) {
	route, err := metering.NewRoute(req.Name, req.Zone, req.Description)
	if err != nil {
		return nil, err
	}

	if err := s.routeRepo.Save(ctx, route); err != nil {
		return nil, err
	}

	response := ToRouteResponse(route)
	return &response, nil
}

// GetByID retrieves a route by id
func (s *RouteService) GetByID(ctx context.Context, routeID uuid.UUID) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByID(ctx, routeID)
	if err != nil {
		return nil, err
	}

	response := ToRouteResponse(route)
	return &response, nil
}

// List retrieves routes with pagination
func (s *RouteService) List(ctx context.Context, filter shared.Filter) ([]RouteResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	routes, err := s.routeRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.routeRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return ToRouteResponses(routes), total, nil
}

// Update updates a route's descriptive fields
func (s *RouteService) Update(ctx context.Context, routeID uuid.UUID, req UpdateRouteRequest) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByID(ctx, routeID)
	if err != nil {
		return nil, err
	}

	name := route.Name
	zone := route.Zone
	description := route.Description
	if req.Name != nil {
		name = *req.Name
	}
	if req.Zone != nil {
		zone = *req.Zone
	}
	if req.Description != nil {
		description = *req.Description
	}

	if err := route.Update(name, zone, description); err != nil {
		return nil, err
	}

	if err := s.routeRepo.Save(ctx, route); err != nil {
		return nil, err
	}

	response := ToRouteResponse(route)
	return &response, nil
}

// Activate reopens a route for reading collection
func (s *RouteService) Activate(ctx context.Context, routeID uuid.UUID) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByID(ctx, routeID)
	if err != nil {
		return nil, err
	}

	if err := route.Activate(); err != nil {
		return nil, err
	}

	if err := s.routeRepo.Save(ctx, route); err != nil {
		return nil, err
	}

	response := ToRouteResponse(route)
	return &response, nil
}

// Deactivate closes a route; its meters keep their assignment
func (s *RouteService) Deactivate(ctx context.Context, routeID uuid.UUID) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByID(ctx, routeID)
	if err != nil {
		return nil, err
	}

	if err := route.Deactivate(); err != nil {
		return nil, err
	}

	if err := s.routeRepo.Save(ctx, route); err != nil {
		return nil, err
	}

	response := ToRouteResponse(route)
	return &response, nil
}
