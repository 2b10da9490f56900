package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	meteringapp "github.com/waterworks/backend/internal/application/metering"
)

// MeterHandler handles meter inventory API endpoints
type MeterHandler struct {
	BaseHandler
	meterService *meteringapp.MeterService
}

// NewMeterHandler creates a new MeterHandler
func NewMeterHandler(meterService *meteringapp.MeterService) *MeterHandler {
	return &MeterHandler{
		meterService: meterService,
	}
}

// UpdateMeterRequest represents a combined meter update. Status and route
// are independent; absent fields are left untouched. ClearRoute takes the
// meter off its route regardless of the route id field.
type UpdateMeterRequest struct {
	Status     *string    `json:"status" binding:"omitempty,oneof=active inactive retired"`
	RouteID    *uuid.UUID `json:"route_id"`
	ClearRoute bool       `json:"clear_route"`
}

// Register registers a new meter in the inventory
func (h *MeterHandler) Register(c *gin.Context) {
	var req meteringapp.RegisterMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	meter, err := h.meterService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, meter)
}

// GetByID retrieves a meter by id
func (h *MeterHandler) GetByID(c *gin.Context) {
	meterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid meter ID format")
		return
	}

	meter, err := h.meterService.GetByID(c.Request.Context(), meterID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, meter)
}

// GetBySerial retrieves a meter by serial number
func (h *MeterHandler) GetBySerial(c *gin.Context) {
	serial := c.Param("serial")
	if serial == "" {
		h.BadRequest(c, "Meter serial number is required")
		return
	}

	meter, err := h.meterService.GetBySerialNumber(c.Request.Context(), serial)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, meter)
}

// List retrieves meters with pagination and optional status/assignment filters
func (h *MeterHandler) List(c *gin.Context) {
	filter, _, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filters := map[string]interface{}{}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if assigned := c.Query("assigned"); assigned != "" {
		filters["assigned"] = assigned == "true"
	}
	if routeID := c.Query("route_id"); routeID != "" {
		id, parseErr := uuid.Parse(routeID)
		if parseErr != nil {
			h.BadRequest(c, "Invalid route ID format")
			return
		}
		filters["route_id"] = id
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		id, parseErr := uuid.Parse(customerID)
		if parseErr != nil {
			h.BadRequest(c, "Invalid customer ID format")
			return
		}
		filters["customer_id"] = id
	}
	if len(filters) > 0 {
		filter.Filters = filters
	}

	meters, total, err := h.meterService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, meters, total, filter.Page, filter.PageSize)
}

// ListUnassigned retrieves meters with no owning customer
func (h *MeterHandler) ListUnassigned(c *gin.Context) {
	filter, _, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	meters, err := h.meterService.ListUnassigned(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, meters)
}

// ListByCustomer retrieves the meters owned by a customer
func (h *MeterHandler) ListByCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	meters, err := h.meterService.ListByCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, meters)
}

// Update changes a meter's status and/or route placement
func (h *MeterHandler) Update(c *gin.Context) {
	meterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid meter ID format")
		return
	}

	var req UpdateMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Status == nil && req.RouteID == nil && !req.ClearRoute {
		h.BadRequest(c, "Nothing to update")
		return
	}

	ctx := c.Request.Context()
	userID, _ := getUserID(c)
	var meter *meteringapp.MeterResponse

	if req.Status != nil {
		meter, err = h.meterService.UpdateStatus(ctx, meterID, meteringapp.UpdateMeterStatusRequest{
			Status:       *req.Status,
			ActingUserID: userID,
		})
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
	}

	if req.RouteID != nil || req.ClearRoute {
		routeID := req.RouteID
		if req.ClearRoute {
			routeID = nil
		}
		meter, err = h.meterService.SetRoute(ctx, meterID, meteringapp.SetMeterRouteRequest{
			RouteID:      routeID,
			ActingUserID: userID,
		})
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
	}

	h.Success(c, meter)
}
