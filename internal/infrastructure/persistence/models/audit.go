package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/audit"
)

// ChangeLogModel is the persistence model for the ChangeLogEntry entity.
// The table is append-only.
type ChangeLogModel struct {
	BaseModel
	EntityType  string             `gorm:"type:varchar(50);not null;index:idx_change_log_entity,priority:1"`
	EntityID    uuid.UUID          `gorm:"type:uuid;not null;index:idx_change_log_entity,priority:2"`
	Action      audit.ChangeAction `gorm:"type:varchar(20);not null"`
	Changes     audit.FieldChanges `gorm:"type:jsonb;not null;default:'[]'"`
	PerformedBy uuid.UUID          `gorm:"type:uuid"`
	PerformedAt time.Time          `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ChangeLogModel) TableName() string {
	return "change_log"
}

// ToDomain converts the persistence model to a domain ChangeLogEntry entity.
func (m *ChangeLogModel) ToDomain() *audit.ChangeLogEntry {
	return &audit.ChangeLogEntry{
		BaseEntity:  m.BaseModel.ToDomain(),
		EntityType:  m.EntityType,
		EntityID:    m.EntityID,
		Action:      m.Action,
		Changes:     m.Changes,
		PerformedBy: m.PerformedBy,
		PerformedAt: m.PerformedAt,
	}
}

// FromDomain populates the persistence model from a domain ChangeLogEntry entity.
func (m *ChangeLogModel) FromDomain(entry *audit.ChangeLogEntry) {
	m.FromDomainBaseEntity(entry.BaseEntity)
	m.EntityType = entry.EntityType
	m.EntityID = entry.EntityID
	m.Action = entry.Action
	m.Changes = entry.Changes
	m.PerformedBy = entry.PerformedBy
	m.PerformedAt = entry.PerformedAt
}

// ChangeLogModelFromDomain creates a new persistence model from a domain ChangeLogEntry entity.
func ChangeLogModelFromDomain(entry *audit.ChangeLogEntry) *ChangeLogModel {
	m := &ChangeLogModel{}
	m.FromDomain(entry)
	return m
}
