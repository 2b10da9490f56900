package customer

import (
	"time"

	"github.com/google/uuid"
	meteringapp "github.com/waterworks/backend/internal/application/metering"
	"github.com/waterworks/backend/internal/domain/customer"
)

// CreateCustomerRequest represents a request to open a customer account
type CreateCustomerRequest struct {
	Code     string     `json:"code" binding:"required,min=1,max=50"`
	Name     string     `json:"name" binding:"required,min=1,max=200"`
	Phone    string     `json:"phone" binding:"max=50"`
	Email    string     `json:"email" binding:"omitempty,email,max=200"`
	Address  string     `json:"address" binding:"max=500"`
	TariffID *uuid.UUID `json:"tariff_id"`
}

// UpdateCustomerRequest represents a coordinated customer update: field
// changes, tariff assignment, and meter ownership moves in one request.
// Released and assigned meters are processed concurrently; see
// CustomerService.Update for the partial-failure contract.
type UpdateCustomerRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=1,max=200"`
	Phone       *string    `json:"phone" binding:"omitempty,max=50"`
	Email       *string    `json:"email" binding:"omitempty,email,max=200"`
	Address     *string    `json:"address" binding:"omitempty,max=500"`
	TariffID    *uuid.UUID `json:"tariff_id"`
	ClearTariff bool       `json:"clear_tariff"`

	ReleaseMeterIDs []uuid.UUID `json:"release_meter_ids"`
	AssignMeterIDs  []uuid.UUID `json:"assign_meter_ids"`

	ActingUserID uuid.UUID `json:"-"`
}

// CustomerResponse represents a customer in API responses. Meters is the
// owned-meter projection, populated on detail and update responses.
type CustomerResponse struct {
	ID        uuid.UUID                   `json:"id"`
	Code      string                      `json:"code"`
	Name      string                      `json:"name"`
	Phone     string                      `json:"phone,omitempty"`
	Email     string                      `json:"email,omitempty"`
	Address   string                      `json:"address,omitempty"`
	Status    string                      `json:"status"`
	TariffID  *uuid.UUID                  `json:"tariff_id,omitempty"`
	Meters    []meteringapp.MeterResponse `json:"meters,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
	Version   int                         `json:"version"`
}

// CustomerListResponse represents a paginated list of customers
type CustomerListResponse struct {
	Customers []CustomerResponse `json:"customers"`
	Total     int64              `json:"total"`
	Page      int                `json:"page"`
	PageSize  int                `json:"page_size"`
}

// ToCustomerResponse converts a domain customer to a response DTO
func ToCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Code:      c.Code,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		Status:    string(c.Status),
		TariffID:  c.TariffID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Version:   c.Version,
	}
}

// ToCustomerResponses converts a slice of domain customers to response DTOs
func ToCustomerResponses(customers []customer.Customer) []CustomerResponse {
	responses := make([]CustomerResponse, len(customers))
	for i := range customers {
		responses[i] = ToCustomerResponse(&customers[i])
	}
	return responses
}
