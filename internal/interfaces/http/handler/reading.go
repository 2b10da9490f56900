package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	meteringapp "github.com/waterworks/backend/internal/application/metering"
)

// ReadingHandler handles meter reading API endpoints
type ReadingHandler struct {
	BaseHandler
	readingService *meteringapp.ReadingService
}

// NewReadingHandler creates a new ReadingHandler
func NewReadingHandler(readingService *meteringapp.ReadingService) *ReadingHandler {
	return &ReadingHandler{
		readingService: readingService,
	}
}

// Register registers a consumption reading for a meter and period. When
// the meter's owner has a tariff assigned, the invoice generated from the
// reading rides along in the response; a generation failure surfaces as a
// warning while the reading stands.
func (h *ReadingHandler) Register(c *gin.Context) {
	var req meteringapp.RegisterReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	userID, _ := getUserID(c)
	req.ActingUserID = userID

	result, err := h.readingService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID retrieves a reading by id
func (h *ReadingHandler) GetByID(c *gin.Context) {
	readingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reading ID format")
		return
	}

	reading, err := h.readingService.GetByID(c.Request.Context(), readingID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reading)
}

// List retrieves readings for a billing period, or for a meter when a
// meter_id query parameter is given instead
func (h *ReadingHandler) List(c *gin.Context) {
	filter, _, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	if period := c.Query("period"); period != "" {
		readings, total, listErr := h.readingService.ListByPeriod(ctx, period, filter)
		if listErr != nil {
			h.HandleDomainError(c, listErr)
			return
		}
		h.SuccessWithMeta(c, readings, total, filter.Page, filter.PageSize)
		return
	}

	if meterID := c.Query("meter_id"); meterID != "" {
		id, parseErr := uuid.Parse(meterID)
		if parseErr != nil {
			h.BadRequest(c, "Invalid meter ID format")
			return
		}
		readings, total, listErr := h.readingService.ListByMeter(ctx, id, filter)
		if listErr != nil {
			h.HandleDomainError(c, listErr)
			return
		}
		h.SuccessWithMeta(c, readings, total, filter.Page, filter.PageSize)
		return
	}

	h.BadRequest(c, "Either period or meter_id query parameter is required")
}

// ListByMeter retrieves the reading history of one meter
func (h *ReadingHandler) ListByMeter(c *gin.Context) {
	meterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid meter ID format")
		return
	}

	filter, _, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	readings, total, err := h.readingService.ListByMeter(c.Request.Context(), meterID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, readings, total, filter.Page, filter.PageSize)
}
