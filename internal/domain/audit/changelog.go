package audit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/shared"
)

// ChangeAction classifies what happened to the audited entity
type ChangeAction string

const (
	ChangeActionCreated ChangeAction = "CREATED"
	ChangeActionUpdated ChangeAction = "UPDATED"
	ChangeActionDeleted ChangeAction = "DELETED"
)

// IsValid checks if the action is a known value
func (a ChangeAction) IsValid() bool {
	switch a {
	case ChangeActionCreated, ChangeActionUpdated, ChangeActionDeleted:
		return true
	}
	return false
}

// Audited entity types
const (
	EntityTypeCustomer = "customer"
	EntityTypeMeter    = "meter"
	EntityTypeInvoice  = "invoice"
)

// FieldChange captures one field's transition within an audited mutation
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old,omitempty"`
	New   string `json:"new,omitempty"`
}

// FieldChanges is a slice of FieldChange that implements GORM Scanner/Valuer for JSONB storage
type FieldChanges []FieldChange

// Value implements driver.Valuer interface for GORM to store as JSONB
func (c FieldChanges) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (c *FieldChanges) Scan(value interface{}) error {
	if value == nil {
		*c = FieldChanges{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan FieldChanges: unsupported type")
	}

	if len(bytes) == 0 {
		*c = FieldChanges{}
		return nil
	}

	return json.Unmarshal(bytes, c)
}

// ChangeLogEntry is an immutable audit record of a successful mutation.
// Entries are append-only: they are never updated or deleted, and a
// coordinated update that fails in any part records nothing.
type ChangeLogEntry struct {
	shared.BaseEntity
	EntityType  string
	EntityID    uuid.UUID
	Action      ChangeAction
	Changes     FieldChanges
	PerformedBy uuid.UUID
	PerformedAt time.Time
}

// NewChangeLogEntry creates an audit entry for a mutation on an entity
func NewChangeLogEntry(entityType string, entityID uuid.UUID, action ChangeAction, changes FieldChanges, performedBy uuid.UUID) (*ChangeLogEntry, error) {
	if entityType == "" {
		return nil, shared.NewValidationError("entity type cannot be empty")
	}
	if entityID == uuid.Nil {
		return nil, shared.NewValidationError("entity id is required")
	}
	if !action.IsValid() {
		return nil, shared.NewValidationError("unknown change action: %s", action)
	}

	return &ChangeLogEntry{
		BaseEntity:  shared.NewBaseEntity(),
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Changes:     changes,
		PerformedBy: performedBy,
		PerformedAt: time.Now(),
	}, nil
}
