package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	meteringapp "github.com/waterworks/backend/internal/application/metering"
)

// RouteHandler handles collection route API endpoints
type RouteHandler struct {
	BaseHandler
	routeService *meteringapp.RouteService
}

// NewRouteHandler creates a new RouteHandler
func NewRouteHandler(routeService *meteringapp.RouteService) *RouteHandler {
	return &RouteHandler{
		routeService: routeService,
	}
}

// Create creates a new collection route
func (h *RouteHandler) Create(c *gin.Context) {
	var req meteringapp.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	route, err := h.routeService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, route)
}

// GetByID retrieves a route by id
func (h *RouteHandler) GetByID(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid route ID format")
		return
	}

	route, err := h.routeService.GetByID(c.Request.Context(), routeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, route)
}

// List retrieves routes with pagination and optional status/zone filters
func (h *RouteHandler) List(c *gin.Context) {
	filter, _, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filters := map[string]interface{}{}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if zone := c.Query("zone"); zone != "" {
		filters["zone"] = zone
	}
	if len(filters) > 0 {
		filter.Filters = filters
	}

	routes, total, err := h.routeService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, routes, total, filter.Page, filter.PageSize)
}

// Update updates a route's descriptive fields
func (h *RouteHandler) Update(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid route ID format")
		return
	}

	var req meteringapp.UpdateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	route, err := h.routeService.Update(c.Request.Context(), routeID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, route)
}

// Activate reopens a deactivated route
func (h *RouteHandler) Activate(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid route ID format")
		return
	}

	route, err := h.routeService.Activate(c.Request.Context(), routeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, route)
}

// Deactivate closes a route so no further readings are collected on it
func (h *RouteHandler) Deactivate(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid route ID format")
		return
	}

	route, err := h.routeService.Deactivate(c.Request.Context(), routeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, route)
}
