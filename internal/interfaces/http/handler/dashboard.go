package handler

import (
	"github.com/gin-gonic/gin"
	billingapp "github.com/waterworks/backend/internal/application/billing"
)

// DashboardHandler handles the back-office landing page aggregates
type DashboardHandler struct {
	BaseHandler
	dashboardService *billingapp.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *billingapp.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// Summary returns aggregate figures for a billing period. Without a
// period query parameter the current period is summarized. Passing
// refresh=true bypasses the summary cache.
func (h *DashboardHandler) Summary(c *gin.Context) {
	var (
		summary *billingapp.DashboardResponse
		err     error
	)
	if c.Query("refresh") == "true" {
		summary, err = h.dashboardService.RefreshSummary(c.Request.Context(), c.Query("period"))
	} else {
		summary, err = h.dashboardService.Summary(c.Request.Context(), c.Query("period"))
	}
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}
