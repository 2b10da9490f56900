package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
)

// MeterModel is the persistence model for the Meter domain entity.
type MeterModel struct {
	AggregateModel
	SerialNumber string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_meters_serial_number"`
	CustomerID   *uuid.UUID           `gorm:"type:uuid;index"`
	RouteID      *uuid.UUID           `gorm:"type:uuid;index"`
	Status       metering.MeterStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	InstalledAt  time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MeterModel) TableName() string {
	return "meters"
}

// ToDomain converts the persistence model to a domain Meter entity.
func (m *MeterModel) ToDomain() *metering.Meter {
	meter := &metering.Meter{
		SerialNumber: m.SerialNumber,
		CustomerID:   m.CustomerID,
		RouteID:      m.RouteID,
		Status:       m.Status,
		InstalledAt:  m.InstalledAt,
	}
	m.PopulateAggregateRoot(&meter.BaseAggregateRoot)
	return meter
}

// FromDomain populates the persistence model from a domain Meter entity.
func (m *MeterModel) FromDomain(meter *metering.Meter) {
	m.FromDomainAggregateRoot(meter.BaseAggregateRoot)
	m.SerialNumber = meter.SerialNumber
	m.CustomerID = meter.CustomerID
	m.RouteID = meter.RouteID
	m.Status = meter.Status
	m.InstalledAt = meter.InstalledAt
}

// MeterModelFromDomain creates a new persistence model from a domain Meter entity.
func MeterModelFromDomain(meter *metering.Meter) *MeterModel {
	m := &MeterModel{}
	m.FromDomain(meter)
	return m
}

// RouteModel is the persistence model for the Route domain entity.
type RouteModel struct {
	AggregateModel
	Name        string               `gorm:"type:varchar(100);not null"`
	Zone        string               `gorm:"type:varchar(100)"`
	Description string               `gorm:"type:text"`
	Status      metering.RouteStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (RouteModel) TableName() string {
	return "routes"
}

// ToDomain converts the persistence model to a domain Route entity.
func (m *RouteModel) ToDomain() *metering.Route {
	route := &metering.Route{
		Name:        m.Name,
		Zone:        m.Zone,
		Description: m.Description,
		Status:      m.Status,
	}
	m.PopulateAggregateRoot(&route.BaseAggregateRoot)
	return route
}

// FromDomain populates the persistence model from a domain Route entity.
func (m *RouteModel) FromDomain(route *metering.Route) {
	m.FromDomainAggregateRoot(route.BaseAggregateRoot)
	m.Name = route.Name
	m.Zone = route.Zone
	m.Description = route.Description
	m.Status = route.Status
}

// RouteModelFromDomain creates a new persistence model from a domain Route entity.
func RouteModelFromDomain(route *metering.Route) *RouteModel {
	m := &RouteModel{}
	m.FromDomain(route)
	return m
}

// ReadingModel is the persistence model for the Reading domain entity.
// The unique index on (meter_id, period) is the authoritative guard against
// duplicate registrations for the same billing month.
type ReadingModel struct {
	AggregateModel
	MeterID       uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_readings_meter_period,priority:1"`
	RouteID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	Period        valueobject.Period `gorm:"type:varchar(7);not null;uniqueIndex:idx_readings_meter_period,priority:2;index"`
	ConsumptionM3 decimal.Decimal    `gorm:"type:decimal(12,3);not null"`
	ReadOn        time.Time          `gorm:"not null"`
	RecordedBy    uuid.UUID          `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (ReadingModel) TableName() string {
	return "readings"
}

// ToDomain converts the persistence model to a domain Reading entity.
func (m *ReadingModel) ToDomain() *metering.Reading {
	reading := &metering.Reading{
		MeterID:       m.MeterID,
		RouteID:       m.RouteID,
		Period:        m.Period,
		ConsumptionM3: m.ConsumptionM3,
		ReadOn:        m.ReadOn,
		RecordedBy:    m.RecordedBy,
	}
	m.PopulateAggregateRoot(&reading.BaseAggregateRoot)
	return reading
}

// FromDomain populates the persistence model from a domain Reading entity.
func (m *ReadingModel) FromDomain(reading *metering.Reading) {
	m.FromDomainAggregateRoot(reading.BaseAggregateRoot)
	m.MeterID = reading.MeterID
	m.RouteID = reading.RouteID
	m.Period = reading.Period
	m.ConsumptionM3 = reading.ConsumptionM3
	m.ReadOn = reading.ReadOn
	m.RecordedBy = reading.RecordedBy
}

// ReadingModelFromDomain creates a new persistence model from a domain Reading entity.
func ReadingModelFromDomain(reading *metering.Reading) *ReadingModel {
	m := &ReadingModel{}
	m.FromDomain(reading)
	return m
}

// ReadingAttachmentModel is the persistence model for the ReadingAttachment
// domain entity. Soft-deleted photos keep their row; listings filter on status.
type ReadingAttachmentModel struct {
	AggregateModel
	ReadingID   uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Status      metering.AttachmentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	FileName    string                    `gorm:"type:varchar(255);not null"`
	FileSize    int64                     `gorm:"not null"`
	ContentType string                    `gorm:"type:varchar(100);not null"`
	StorageKey  string                    `gorm:"type:varchar(500);not null"`
	UploadedBy  *uuid.UUID                `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ReadingAttachmentModel) TableName() string {
	return "reading_attachments"
}

// ToDomain converts the persistence model to a domain ReadingAttachment entity.
func (m *ReadingAttachmentModel) ToDomain() *metering.ReadingAttachment {
	attachment := &metering.ReadingAttachment{
		ReadingID:   m.ReadingID,
		Status:      m.Status,
		FileName:    m.FileName,
		FileSize:    m.FileSize,
		ContentType: m.ContentType,
		StorageKey:  m.StorageKey,
		UploadedBy:  m.UploadedBy,
	}
	m.PopulateAggregateRoot(&attachment.BaseAggregateRoot)
	return attachment
}

// FromDomain populates the persistence model from a domain ReadingAttachment entity.
func (m *ReadingAttachmentModel) FromDomain(attachment *metering.ReadingAttachment) {
	m.FromDomainAggregateRoot(attachment.BaseAggregateRoot)
	m.ReadingID = attachment.ReadingID
	m.Status = attachment.Status
	m.FileName = attachment.FileName
	m.FileSize = attachment.FileSize
	m.ContentType = attachment.ContentType
	m.StorageKey = attachment.StorageKey
	m.UploadedBy = attachment.UploadedBy
}

// ReadingAttachmentModelFromDomain creates a new persistence model from a domain ReadingAttachment entity.
func ReadingAttachmentModelFromDomain(attachment *metering.ReadingAttachment) *ReadingAttachmentModel {
	m := &ReadingAttachmentModel{}
	m.FromDomain(attachment)
	return m
}
