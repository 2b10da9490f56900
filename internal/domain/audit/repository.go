package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/shared"
)

// ChangeLogRepository defines the persistence contract for audit entries.
// The log is append-only; there is no update or delete.
type ChangeLogRepository interface {
	// Save inserts an audit entry
	Save(ctx context.Context, entry *ChangeLogEntry) error

	// FindByEntity retrieves the audit trail of one entity, newest first
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter shared.Filter) (shared.Paginated[*ChangeLogEntry], error)

	// FindAll retrieves audit entries with pagination, newest first
	FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*ChangeLogEntry], error)
}
