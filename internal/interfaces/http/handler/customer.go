package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	customerapp "github.com/waterworks/backend/internal/application/customer"
)

// CustomerHandler handles customer account API endpoints
type CustomerHandler struct {
	BaseHandler
	customerService *customerapp.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService *customerapp.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

// Create opens a new customer account
func (h *CustomerHandler) Create(c *gin.Context) {
	var req customerapp.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cust, err := h.customerService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, cust)
}

// GetByID retrieves a customer with its owned-meter projection
func (h *CustomerHandler) GetByID(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	cust, err := h.customerService.GetByID(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, cust)
}

// GetByCode retrieves a customer by account code
func (h *CustomerHandler) GetByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		h.BadRequest(c, "Customer code is required")
		return
	}

	cust, err := h.customerService.GetByCode(c.Request.Context(), code)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, cust)
}

// List retrieves customers with pagination and optional status filter
func (h *CustomerHandler) List(c *gin.Context) {
	filter, _, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filters := map[string]interface{}{}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if tariffID := c.Query("tariff_id"); tariffID != "" {
		id, parseErr := uuid.Parse(tariffID)
		if parseErr != nil {
			h.BadRequest(c, "Invalid tariff ID format")
			return
		}
		filters["tariff_id"] = id
	}
	if len(filters) > 0 {
		filter.Filters = filters
	}

	result, err := h.customerService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Customers, result.Total, result.Page, result.PageSize)
}

// Update applies a coordinated update: field changes, tariff assignment,
// and meter release/assign lists in one request. Per-meter operations run
// concurrently; a partial failure returns 400 with every failed meter
// listed, and completed operations stay applied.
func (h *CustomerHandler) Update(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	var req customerapp.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	userID, _ := getUserID(c)
	req.ActingUserID = userID

	cust, err := h.customerService.Update(c.Request.Context(), customerID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, cust)
}

// Activate reopens a deactivated customer account
func (h *CustomerHandler) Activate(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	userID, _ := getUserID(c)

	cust, err := h.customerService.Activate(c.Request.Context(), customerID, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, cust)
}

// Deactivate closes a customer account
func (h *CustomerHandler) Deactivate(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	userID, _ := getUserID(c)

	cust, err := h.customerService.Deactivate(c.Request.Context(), customerID, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, cust)
}
