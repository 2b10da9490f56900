package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/audit"
	"github.com/waterworks/backend/internal/domain/shared"
)

// ChangeLogService serves read access to the audit trail. Entries are
// written by the mutating services; this side only queries.
type ChangeLogService struct {
	changeLogRepo audit.ChangeLogRepository
}

// NewChangeLogService creates a new ChangeLogService
func NewChangeLogService(changeLogRepo audit.ChangeLogRepository) *ChangeLogService {
	return &ChangeLogService{changeLogRepo: changeLogRepo}
}

// ChangeLogEntryResponse represents an audit entry in API responses
type ChangeLogEntryResponse struct {
	ID          uuid.UUID           `json:"id"`
	EntityType  string              `json:"entity_type"`
	EntityID    uuid.UUID           `json:"entity_id"`
	Action      string              `json:"action"`
	Changes     []audit.FieldChange `json:"changes"`
	PerformedBy uuid.UUID           `json:"performed_by"`
	PerformedAt time.Time           `json:"performed_at"`
}

// ToChangeLogEntryResponse converts a domain audit entry to a response DTO
func ToChangeLogEntryResponse(e *audit.ChangeLogEntry) ChangeLogEntryResponse {
	return ChangeLogEntryResponse{
		ID:          e.ID,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      string(e.Action),
		Changes:     e.Changes,
		PerformedBy: e.PerformedBy,
		PerformedAt: e.PerformedAt,
	}
}

// ToChangeLogEntryResponses converts domain audit entries to response DTOs
func ToChangeLogEntryResponses(entries []*audit.ChangeLogEntry) []ChangeLogEntryResponse {
	responses := make([]ChangeLogEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = ToChangeLogEntryResponse(e)
	}
	return responses
}

// ListByEntity retrieves the audit trail of one entity, newest first
func (s *ChangeLogService) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter shared.Filter) ([]ChangeLogEntryResponse, int64, error) {
	if entityType == "" {
		return nil, 0, shared.NewValidationError("entity type cannot be empty")
	}
	if entityID == uuid.Nil {
		return nil, 0, shared.NewValidationError("entity id is required")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	page, err := s.changeLogRepo.FindByEntity(ctx, entityType, entityID, filter)
	if err != nil {
		return nil, 0, err
	}

	return ToChangeLogEntryResponses(page.Items), page.Total, nil
}

// List retrieves audit entries across entities, newest first
func (s *ChangeLogService) List(ctx context.Context, filter shared.Filter) ([]ChangeLogEntryResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	page, err := s.changeLogRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return ToChangeLogEntryResponses(page.Items), page.Total, nil
}
