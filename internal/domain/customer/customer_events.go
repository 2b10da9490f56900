package customer

import (
	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCustomer = "Customer"

// Event type constants
const (
	EventTypeCustomerCreated       = "CustomerCreated"
	EventTypeCustomerUpdated       = "CustomerUpdated"
	EventTypeCustomerStatusChanged = "CustomerStatusChanged"
	EventTypeCustomerTariffChanged = "CustomerTariffChanged"
)

// CustomerCreatedEvent is published when a new customer account is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(customer *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Code:            customer.Code,
		Name:            customer.Name,
	}
}

// CustomerUpdatedEvent is published when customer details change
type CustomerUpdatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
}

// NewCustomerUpdatedEvent creates a new CustomerUpdatedEvent
func NewCustomerUpdatedEvent(customer *Customer) *CustomerUpdatedEvent {
	return &CustomerUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerUpdated, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Code:            customer.Code,
		Name:            customer.Name,
		Phone:           customer.Phone,
		Email:           customer.Email,
	}
}

// CustomerStatusChangedEvent is published when a customer's status changes
type CustomerStatusChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID      `json:"customer_id"`
	OldStatus  CustomerStatus `json:"old_status"`
	NewStatus  CustomerStatus `json:"new_status"`
}

// NewCustomerStatusChangedEvent creates a new CustomerStatusChangedEvent
func NewCustomerStatusChangedEvent(customer *Customer, oldStatus, newStatus CustomerStatus) *CustomerStatusChangedEvent {
	return &CustomerStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerStatusChanged, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// CustomerTariffChangedEvent is published when the assigned tariff changes
type CustomerTariffChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID  uuid.UUID  `json:"customer_id"`
	OldTariffID *uuid.UUID `json:"old_tariff_id,omitempty"`
	NewTariffID *uuid.UUID `json:"new_tariff_id,omitempty"`
}

// NewCustomerTariffChangedEvent creates a new CustomerTariffChangedEvent
func NewCustomerTariffChangedEvent(customer *Customer, oldTariffID, newTariffID *uuid.UUID) *CustomerTariffChangedEvent {
	return &CustomerTariffChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerTariffChanged, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		OldTariffID:     oldTariffID,
		NewTariffID:     newTariffID,
	}
}
