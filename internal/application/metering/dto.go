package metering

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	billingapp "github.com/waterworks/backend/internal/application/billing"
	"github.com/waterworks/backend/internal/domain/metering"
)

// =============================================================================
// Meter DTOs
// =============================================================================

// RegisterMeterRequest represents a request to register a new meter
type RegisterMeterRequest struct {
	SerialNumber string     `json:"serial_number" binding:"required,min=1,max=50"`
	RouteID      *uuid.UUID `json:"route_id"`
	InstalledAt  *time.Time `json:"installed_at"`
}

// UpdateMeterStatusRequest represents a request to change a meter's status
type UpdateMeterStatusRequest struct {
	Status       string    `json:"status" binding:"required,oneof=active inactive retired"`
	ActingUserID uuid.UUID `json:"-"`
}

// SetMeterRouteRequest represents a request to place a meter on a route.
// A null route id takes the meter off its route.
type SetMeterRouteRequest struct {
	RouteID      *uuid.UUID `json:"route_id"`
	ActingUserID uuid.UUID  `json:"-"`
}

// MeterResponse represents a meter in API responses
type MeterResponse struct {
	ID           uuid.UUID  `json:"id"`
	SerialNumber string     `json:"serial_number"`
	CustomerID   *uuid.UUID `json:"customer_id,omitempty"`
	RouteID      *uuid.UUID `json:"route_id,omitempty"`
	Status       string     `json:"status"`
	InstalledAt  time.Time  `json:"installed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Version      int        `json:"version"`
}

// =============================================================================
// Route DTOs
// =============================================================================

// CreateRouteRequest represents a request to create a reading route
type CreateRouteRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Zone        string `json:"zone" binding:"max=100"`
	Description string `json:"description" binding:"max=500"`
}

// UpdateRouteRequest represents a request to update a reading route
type UpdateRouteRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Zone        *string `json:"zone" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// RouteResponse represents a route in API responses
type RouteResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Zone        string    `json:"zone,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

// =============================================================================
// Reading DTOs
// =============================================================================

// RegisterReadingRequest represents a request to register a meter reading
type RegisterReadingRequest struct {
	MeterID       uuid.UUID       `json:"meter_id" binding:"required"`
	RouteID       uuid.UUID       `json:"route_id" binding:"required"`
	Period        string          `json:"period" binding:"required,period"`
	ConsumptionM3 decimal.Decimal `json:"consumption_m3" binding:"required"`
	ReadOn        *time.Time      `json:"read_on"`
	ActingUserID  uuid.UUID       `json:"-"`
}

// ReadingResponse represents a reading in API responses
type ReadingResponse struct {
	ID            uuid.UUID       `json:"id"`
	MeterID       uuid.UUID       `json:"meter_id"`
	RouteID       uuid.UUID       `json:"route_id"`
	Period        string          `json:"period"`
	ConsumptionM3 decimal.Decimal `json:"consumption_m3"`
	ReadOn        time.Time       `json:"read_on"`
	RecordedBy    uuid.UUID       `json:"recorded_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RegisterReadingResponse is the result of registering a reading. When the
// meter's owner has a tariff the generated invoice rides along; if that
// generation failed, the warning explains why while the reading stands.
type RegisterReadingResponse struct {
	Reading ReadingResponse             `json:"reading"`
	Invoice *billingapp.InvoiceResponse `json:"invoice,omitempty"`
	Warning string                      `json:"warning,omitempty"`
}

// =============================================================================
// Reading photo DTOs
// =============================================================================

// InitiatePhotoUploadRequest represents a request for a presigned photo upload
type InitiatePhotoUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,min=1,max=255"`
	FileSize    int64  `json:"file_size" binding:"required,gt=0"`
	ContentType string `json:"content_type" binding:"required"`
}

// InitiatePhotoUploadResponse carries the presigned PUT target the client
// uploads the photo bytes to before confirming
type InitiatePhotoUploadResponse struct {
	AttachmentID uuid.UUID `json:"attachment_id"`
	UploadURL    string    `json:"upload_url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AttachmentResponse represents a reading photo in API responses
type AttachmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	ReadingID   uuid.UUID  `json:"reading_id"`
	Status      string     `json:"status"`
	FileName    string     `json:"file_name"`
	FileSize    int64      `json:"file_size"`
	ContentType string     `json:"content_type"`
	URL         string     `json:"url,omitempty"`
	UploadedBy  *uuid.UUID `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// =============================================================================
// Mappers
// =============================================================================

// ToMeterResponse converts a domain meter to a response DTO
func ToMeterResponse(m *metering.Meter) MeterResponse {
	return MeterResponse{
		ID:           m.ID,
		SerialNumber: m.SerialNumber,
		CustomerID:   m.CustomerID,
		RouteID:      m.RouteID,
		Status:       string(m.Status),
		InstalledAt:  m.InstalledAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		Version:      m.Version,
	}
}

// ToMeterResponses converts domain meters to response DTOs
func ToMeterResponses(meters []metering.Meter) []MeterResponse {
	responses := make([]MeterResponse, len(meters))
	for i := range meters {
		responses[i] = ToMeterResponse(&meters[i])
	}
	return responses
}

// ToRouteResponse converts a domain route to a response DTO
func ToRouteResponse(r *metering.Route) RouteResponse {
	return RouteResponse{
		ID:          r.ID,
		Name:        r.Name,
		Zone:        r.Zone,
		Description: r.Description,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Version:     r.Version,
	}
}

// ToRouteResponses converts domain routes to response DTOs
func ToRouteResponses(routes []metering.Route) []RouteResponse {
	responses := make([]RouteResponse, len(routes))
	for i := range routes {
		responses[i] = ToRouteResponse(&routes[i])
	}
	return responses
}

// ToReadingResponse converts a domain reading to a response DTO
func ToReadingResponse(r *metering.Reading) ReadingResponse {
	return ReadingResponse{
		ID:            r.ID,
		MeterID:       r.MeterID,
		RouteID:       r.RouteID,
		Period:        r.Period.String(),
		ConsumptionM3: r.ConsumptionM3,
		ReadOn:        r.ReadOn,
		RecordedBy:    r.RecordedBy,
		CreatedAt:     r.CreatedAt,
	}
}

// ToReadingResponses converts domain readings to response DTOs
func ToReadingResponses(readings []metering.Reading) []ReadingResponse {
	responses := make([]ReadingResponse, len(readings))
	for i := range readings {
		responses[i] = ToReadingResponse(&readings[i])
	}
	return responses
}

// ToAttachmentResponse converts a domain reading photo to a response DTO
func ToAttachmentResponse(a *metering.ReadingAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          a.ID,
		ReadingID:   a.ReadingID,
		Status:      string(a.Status),
		FileName:    a.FileName,
		FileSize:    a.FileSize,
		ContentType: a.ContentType,
		UploadedBy:  a.UploadedBy,
		CreatedAt:   a.CreatedAt,
	}
}

// ToAttachmentResponses converts domain reading photos to response DTOs
func ToAttachmentResponses(attachments []*metering.ReadingAttachment) []AttachmentResponse {
	responses := make([]AttachmentResponse, len(attachments))
	for i, a := range attachments {
		responses[i] = ToAttachmentResponse(a)
	}
	return responses
}
