package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/waterworks/backend/internal/application/billing"
)

// InvoiceHandler handles invoice API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// Generate prices a reading and emits its invoice. A reading is invoiced
// at most once; repeating the call returns 409 with the same message.
func (h *InvoiceHandler) Generate(c *gin.Context) {
	var req billingapp.GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	userID, _ := getUserID(c)
	req.ActingUserID = userID

	invoice, err := h.invoiceService.Generate(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, invoice)
}

// Backfill generates invoices for every billable reading of a period.
// Items are processed serially and independently; the report lists one
// outcome per reading, and a failed item never rolls back a generated one.
func (h *InvoiceHandler) Backfill(c *gin.Context) {
	var req billingapp.BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	userID, _ := getUserID(c)
	req.ActingUserID = userID

	report, err := h.invoiceService.Backfill(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// GetByID retrieves an invoice by id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List retrieves invoices with pagination and optional customer, period,
// status and overdue filters
func (h *InvoiceHandler) List(c *gin.Context) {
	filter, _, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filters := map[string]interface{}{}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if period := c.Query("period"); period != "" {
		filters["period"] = period
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		id, parseErr := uuid.Parse(customerID)
		if parseErr != nil {
			h.BadRequest(c, "Invalid customer ID format")
			return
		}
		filters["customer_id"] = id
	}
	if c.Query("overdue") == "true" {
		filters["overdue"] = true
	}
	if len(filters) > 0 {
		filter.Filters = filters
	}

	invoices, total, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// ListByCustomer retrieves one customer's invoices
func (h *InvoiceHandler) ListByCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	filter, _, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoices, total, err := h.invoiceService.ListByCustomer(c.Request.Context(), customerID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// Correct applies an administrative correction to an invoice's total.
// The correction is audited and rederives balance and status.
func (h *InvoiceHandler) Correct(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req billingapp.CorrectInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	userID, _ := getUserID(c)
	req.ActingUserID = userID

	invoice, err := h.invoiceService.Correct(c.Request.Context(), invoiceID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoice)
}
