package metering

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeMeter             = "Meter"
	AggregateTypeRoute             = "Route"
	AggregateTypeReading           = "Reading"
	AggregateTypeReadingAttachment = "ReadingAttachment"
)

// Event type constants
const (
	EventTypeMeterRegistered       = "MeterRegistered"
	EventTypeMeterAssigned         = "MeterAssigned"
	EventTypeMeterReleased         = "MeterReleased"
	EventTypeMeterStatusChanged    = "MeterStatusChanged"
	EventTypeRouteCreated          = "RouteCreated"
	EventTypeReadingRegistered     = "ReadingRegistered"
	EventTypeReadingPhotoAdded     = "ReadingPhotoAdded"
	EventTypeReadingPhotoConfirmed = "ReadingPhotoConfirmed"
	EventTypeReadingPhotoDeleted   = "ReadingPhotoDeleted"
)

// MeterRegisteredEvent is published when a new meter is registered
type MeterRegisteredEvent struct {
	shared.BaseDomainEvent
	MeterID      uuid.UUID `json:"meter_id"`
	SerialNumber string    `json:"serial_number"`
}

// NewMeterRegisteredEvent creates a new MeterRegisteredEvent
func NewMeterRegisteredEvent(meter *Meter) *MeterRegisteredEvent {
	return &MeterRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMeterRegistered, AggregateTypeMeter, meter.ID),
		MeterID:         meter.ID,
		SerialNumber:    meter.SerialNumber,
	}
}

// MeterAssignedEvent is published when a meter is assigned to a customer
type MeterAssignedEvent struct {
	shared.BaseDomainEvent
	MeterID      uuid.UUID `json:"meter_id"`
	SerialNumber string    `json:"serial_number"`
	CustomerID   uuid.UUID `json:"customer_id"`
}

// NewMeterAssignedEvent creates a new MeterAssignedEvent
func NewMeterAssignedEvent(meter *Meter, customerID uuid.UUID) *MeterAssignedEvent {
	return &MeterAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMeterAssigned, AggregateTypeMeter, meter.ID),
		MeterID:         meter.ID,
		SerialNumber:    meter.SerialNumber,
		CustomerID:      customerID,
	}
}

// MeterReleasedEvent is published when a meter is released from a customer
type MeterReleasedEvent struct {
	shared.BaseDomainEvent
	MeterID      uuid.UUID `json:"meter_id"`
	SerialNumber string    `json:"serial_number"`
	CustomerID   uuid.UUID `json:"customer_id"`
}

// NewMeterReleasedEvent creates a new MeterReleasedEvent
func NewMeterReleasedEvent(meter *Meter, customerID uuid.UUID) *MeterReleasedEvent {
	return &MeterReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMeterReleased, AggregateTypeMeter, meter.ID),
		MeterID:         meter.ID,
		SerialNumber:    meter.SerialNumber,
		CustomerID:      customerID,
	}
}

// MeterStatusChangedEvent is published when a meter's status changes
type MeterStatusChangedEvent struct {
	shared.BaseDomainEvent
	MeterID   uuid.UUID   `json:"meter_id"`
	OldStatus MeterStatus `json:"old_status"`
	NewStatus MeterStatus `json:"new_status"`
}

// NewMeterStatusChangedEvent creates a new MeterStatusChangedEvent
func NewMeterStatusChangedEvent(meter *Meter, oldStatus, newStatus MeterStatus) *MeterStatusChangedEvent {
	return &MeterStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMeterStatusChanged, AggregateTypeMeter, meter.ID),
		MeterID:         meter.ID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// RouteCreatedEvent is published when a collection route is created
type RouteCreatedEvent struct {
	shared.BaseDomainEvent
	RouteID uuid.UUID `json:"route_id"`
	Name    string    `json:"name"`
}

// NewRouteCreatedEvent creates a new RouteCreatedEvent
func NewRouteCreatedEvent(route *Route) *RouteCreatedEvent {
	return &RouteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRouteCreated, AggregateTypeRoute, route.ID),
		RouteID:         route.ID,
		Name:            route.Name,
	}
}

// ReadingRegisteredEvent is published when a consumption reading is stored
type ReadingRegisteredEvent struct {
	shared.BaseDomainEvent
	ReadingID     uuid.UUID       `json:"reading_id"`
	MeterID       uuid.UUID       `json:"meter_id"`
	RouteID       uuid.UUID       `json:"route_id"`
	Period        string          `json:"period"`
	ConsumptionM3 decimal.Decimal `json:"consumption_m3"`
}

// NewReadingRegisteredEvent creates a new ReadingRegisteredEvent
func NewReadingRegisteredEvent(reading *Reading) *ReadingRegisteredEvent {
	return &ReadingRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReadingRegistered, AggregateTypeReading, reading.ID),
		ReadingID:       reading.ID,
		MeterID:         reading.MeterID,
		RouteID:         reading.RouteID,
		Period:          reading.Period.String(),
		ConsumptionM3:   reading.ConsumptionM3,
	}
}

// ReadingPhotoAddedEvent is published when a photo record is created pending upload
type ReadingPhotoAddedEvent struct {
	shared.BaseDomainEvent
	AttachmentID uuid.UUID `json:"attachment_id"`
	ReadingID    uuid.UUID `json:"reading_id"`
	FileName     string    `json:"file_name"`
}

// NewReadingPhotoAddedEvent creates a new ReadingPhotoAddedEvent
func NewReadingPhotoAddedEvent(attachment *ReadingAttachment) *ReadingPhotoAddedEvent {
	return &ReadingPhotoAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReadingPhotoAdded, AggregateTypeReadingAttachment, attachment.ID),
		AttachmentID:    attachment.ID,
		ReadingID:       attachment.ReadingID,
		FileName:        attachment.FileName,
	}
}

// ReadingPhotoConfirmedEvent is published when an uploaded photo is confirmed
type ReadingPhotoConfirmedEvent struct {
	shared.BaseDomainEvent
	AttachmentID uuid.UUID `json:"attachment_id"`
	ReadingID    uuid.UUID `json:"reading_id"`
	StorageKey   string    `json:"storage_key"`
}

// NewReadingPhotoConfirmedEvent creates a new ReadingPhotoConfirmedEvent
func NewReadingPhotoConfirmedEvent(attachment *ReadingAttachment) *ReadingPhotoConfirmedEvent {
	return &ReadingPhotoConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReadingPhotoConfirmed, AggregateTypeReadingAttachment, attachment.ID),
		AttachmentID:    attachment.ID,
		ReadingID:       attachment.ReadingID,
		StorageKey:      attachment.StorageKey,
	}
}

// ReadingPhotoDeletedEvent is published when a photo is soft deleted
type ReadingPhotoDeletedEvent struct {
	shared.BaseDomainEvent
	AttachmentID uuid.UUID        `json:"attachment_id"`
	ReadingID    uuid.UUID        `json:"reading_id"`
	OldStatus    AttachmentStatus `json:"old_status"`
}

// NewReadingPhotoDeletedEvent creates a new ReadingPhotoDeletedEvent
func NewReadingPhotoDeletedEvent(attachment *ReadingAttachment, oldStatus AttachmentStatus) *ReadingPhotoDeletedEvent {
	return &ReadingPhotoDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReadingPhotoDeleted, AggregateTypeReadingAttachment, attachment.ID),
		AttachmentID:    attachment.ID,
		ReadingID:       attachment.ReadingID,
		OldStatus:       oldStatus,
	}
}
