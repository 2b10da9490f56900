package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/waterworks/backend/internal/application/billing"
)

// TariffHandler handles tariff-related API endpoints
type TariffHandler struct {
	BaseHandler
	tariffService *billingapp.TariffService
}

// NewTariffHandler creates a new TariffHandler
func NewTariffHandler(tariffService *billingapp.TariffService) *TariffHandler {
	return &TariffHandler{
		tariffService: tariffService,
	}
}

// Create creates a new tariff with a validity window
func (h *TariffHandler) Create(c *gin.Context) {
	var req billingapp.CreateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tariff, err := h.tariffService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, tariff)
}

// GetByID retrieves a tariff with its ordered ranges
func (h *TariffHandler) GetByID(c *gin.Context) {
	tariffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tariff ID format")
		return
	}

	tariff, err := h.tariffService.GetByID(c.Request.Context(), tariffID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tariff)
}

// List retrieves tariffs with pagination. An active_on date filters to
// tariffs whose validity window covers that date.
func (h *TariffHandler) List(c *gin.Context) {
	filter, _, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if activeOn := c.Query("active_on"); activeOn != "" {
		filter.Filters = map[string]interface{}{"active_on": activeOn}
	}

	tariffs, total, err := h.tariffService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, tariffs, total, filter.Page, filter.PageSize)
}

// Update updates a tariff's name or validity window
func (h *TariffHandler) Update(c *gin.Context) {
	tariffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tariff ID format")
		return
	}

	var req billingapp.UpdateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tariff, err := h.tariffService.Update(c.Request.Context(), tariffID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tariff)
}

// RegisterRanges validates and registers a complete consumption tier set
// for a tariff. The candidate set replaces nothing until it passes every
// structural rule; on any violation the tariff keeps its current tiers.
func (h *TariffHandler) RegisterRanges(c *gin.Context) {
	tariffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tariff ID format")
		return
	}

	var req billingapp.RegisterRangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.tariffService.RegisterRanges(c.Request.Context(), tariffID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// ModifyRanges rewrites a tariff's tier set in place. Carried tier ids
// rewrite existing rows; the full candidate set is validated as a unit.
func (h *TariffHandler) ModifyRanges(c *gin.Context) {
	tariffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tariff ID format")
		return
	}

	var req billingapp.RegisterRangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.tariffService.ModifyRanges(c.Request.Context(), tariffID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
