package metering

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
)

func TestRouteService_Create_Success(t *testing.T) {
	routeRepo := new(MockRouteRepository)
	service := NewRouteService(routeRepo)

	ctx := context.Background()

	routeRepo.On("Save", ctx, mock.AnythingOfType("*metering.Route")).Return(nil)

	result, err := service.Create(ctx, CreateRouteRequest{
		Name: "North Loop",
		Zone: "Zone 1",
	})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "North Loop", result.Name)
	assert.Equal(t, "Zone 1", result.Zone)
	assert.Equal(t, "active", result.Status)
	routeRepo.AssertExpectations(t)
}

func TestRouteService_Create_EmptyNameRejected(t *testing.T) {
	routeRepo := new(MockRouteRepository)
	service := NewRouteService(routeRepo)

	ctx := context.Background()

	result, err := service.Create(ctx, CreateRouteRequest{Name: ""})

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	routeRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRouteService_Update_MergesOnlyProvidedFields(t *testing.T) {
	routeRepo := new(MockRouteRepository)
	service := NewRouteService(routeRepo)

	ctx := context.Background()
	route := newTestRoute(t)
	newName := "South Loop"

	routeRepo.On("FindByID", ctx, route.ID).Return(route, nil)
	routeRepo.On("Save", ctx, route).Return(nil)

	result, err := service.Update(ctx, route.ID, UpdateRouteRequest{Name: &newName})

	assert.NoError(t, err)
	assert.Equal(t, "South Loop", result.Name)
	assert.Equal(t, "Zone 1", result.Zone)
	routeRepo.AssertExpectations(t)
}

func TestRouteService_Deactivate_Success(t *testing.T) {
	routeRepo := new(MockRouteRepository)
	service := NewRouteService(routeRepo)

	ctx := context.Background()
	route := newTestRoute(t)

	routeRepo.On("FindByID", ctx, route.ID).Return(route, nil)
	routeRepo.On("Save", ctx, route).Return(nil)

	result, err := service.Deactivate(ctx, route.ID)

	assert.NoError(t, err)
	assert.Equal(t, "inactive", result.Status)
	routeRepo.AssertExpectations(t)
}

func TestRouteService_Deactivate_AlreadyInactive(t *testing.T) {
	routeRepo := new(MockRouteRepository)
	service := NewRouteService(routeRepo)

	ctx := context.Background()
	route := newTestRoute(t)
	assert.NoError(t, route.Deactivate())

	routeRepo.On("FindByID", ctx, route.ID).Return(route, nil)

	result, err := service.Deactivate(ctx, route.ID)

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "route is already inactive")
	routeRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	routeRepo.AssertExpectations(t)
}

func TestRouteService_GetByID_NotFound(t *testing.T) {
	routeRepo := new(MockRouteRepository)
	service := NewRouteService(routeRepo)

	ctx := context.Background()
	routeID := uuid.New()

	routeRepo.On("FindByID", ctx, routeID).Return(nil, shared.NewNotFoundError("route %s not found", routeID))

	result, err := service.GetByID(ctx, routeID)

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
	routeRepo.AssertExpectations(t)
}

func TestRouteService_List_Success(t *testing.T) {
	routeRepo := new(MockRouteRepository)
	service := NewRouteService(routeRepo)

	ctx := context.Background()
	route := newTestRoute(t)

	expectedFilter := shared.Filter{Page: 1, PageSize: 20}
	routeRepo.On("FindAll", ctx, expectedFilter).Return([]metering.Route{*route}, nil)
	routeRepo.On("Count", ctx, expectedFilter).Return(int64(1), nil)

	results, total, err := service.List(ctx, shared.Filter{})

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int64(1), total)
	routeRepo.AssertExpectations(t)
}
