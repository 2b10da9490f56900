package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waterworks/backend/internal/interfaces/http/dto"
)

// BackfillSchedulerControl is the slice of the backfill scheduler the
// operator endpoints use
type BackfillSchedulerControl interface {
	TriggerManualRun(ctx context.Context) error
	GetStatus() map[string]any
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime         time.Time
	backfillScheduler BackfillSchedulerControl
}

// NewSystemHandler creates a new SystemHandler. The scheduler may be nil
// when backfill scheduling is disabled in configuration.
func NewSystemHandler(backfillScheduler BackfillSchedulerControl) *SystemHandler {
	return &SystemHandler{
		startTime:         time.Now(),
		backfillScheduler: backfillScheduler,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns basic system information including version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Waterworks Backend API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping is a simple liveness endpoint
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// TriggerBackfill starts an immediate backfill run for the previous
// billing period. The run executes asynchronously; its outcome lands in
// the backfill run records.
func (h *SystemHandler) TriggerBackfill(c *gin.Context) {
	if h.backfillScheduler == nil {
		h.Conflict(c, "Backfill scheduler is not enabled")
		return
	}

	if err := h.backfillScheduler.TriggerManualRun(c.Request.Context()); err != nil {
		h.Conflict(c, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(gin.H{
		"message": "Backfill run started",
	}))
}

// GetBackfillStatus returns the backfill scheduler's current status
func (h *SystemHandler) GetBackfillStatus(c *gin.Context) {
	if h.backfillScheduler == nil {
		h.Success(c, gin.H{"enabled": false, "is_running": false})
		return
	}

	h.Success(c, h.backfillScheduler.GetStatus())
}
