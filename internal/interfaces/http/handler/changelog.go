package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	auditapp "github.com/waterworks/backend/internal/application/audit"
)

// ChangeLogHandler handles audit trail API endpoints
type ChangeLogHandler struct {
	BaseHandler
	changeLogService *auditapp.ChangeLogService
}

// NewChangeLogHandler creates a new ChangeLogHandler
func NewChangeLogHandler(changeLogService *auditapp.ChangeLogService) *ChangeLogHandler {
	return &ChangeLogHandler{
		changeLogService: changeLogService,
	}
}

// List retrieves audit entries, newest first. With kind and id query
// parameters it returns one entity's trail; otherwise it lists across
// entities with optional entity_type, action and performed_by filters.
func (h *ChangeLogHandler) List(c *gin.Context) {
	filter, _, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	kind := c.Query("kind")
	idParam := c.Query("id")
	if kind != "" || idParam != "" {
		if kind == "" || idParam == "" {
			h.BadRequest(c, "kind and id query parameters must be given together")
			return
		}
		entityID, parseErr := uuid.Parse(idParam)
		if parseErr != nil {
			h.BadRequest(c, "Invalid entity ID format")
			return
		}

		entries, total, listErr := h.changeLogService.ListByEntity(ctx, kind, entityID, filter)
		if listErr != nil {
			h.HandleDomainError(c, listErr)
			return
		}
		h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
		return
	}

	filters := map[string]interface{}{}
	if entityType := c.Query("entity_type"); entityType != "" {
		filters["entity_type"] = entityType
	}
	if action := c.Query("action"); action != "" {
		filters["action"] = action
	}
	if performedBy := c.Query("performed_by"); performedBy != "" {
		id, parseErr := uuid.Parse(performedBy)
		if parseErr != nil {
			h.BadRequest(c, "Invalid user ID format")
			return
		}
		filters["performed_by"] = id
	}
	if len(filters) > 0 {
		filter.Filters = filters
	}

	entries, total, err := h.changeLogService.List(ctx, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}
