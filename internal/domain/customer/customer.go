package customer

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/shared"
)

// CustomerStatus represents the status of a customer account
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

// Customer is a utility subscriber: the billable party behind one or more
// meters. It is the aggregate root for account operations; meter ownership
// itself lives on the Meter side (a meter points at its owning customer).
type Customer struct {
	shared.BaseAggregateRoot
	Code     string
	Name     string
	Phone    string
	Email    string
	Address  string
	Status   CustomerStatus
	TariffID *uuid.UUID // nil until a tariff schedule is assigned
}

// NewCustomer creates a new active customer account
func NewCustomer(code, name string) (*Customer, error) {
	if err := validateCustomerCode(code); err != nil {
		return nil, err
	}
	if err := validateCustomerName(name); err != nil {
		return nil, err
	}

	customer := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Status:            CustomerStatusActive,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// UpdateDetails updates the customer's basic information
func (c *Customer) UpdateDetails(name, phone, email, address string) error {
	if err := validateCustomerName(name); err != nil {
		return err
	}
	if phone != "" {
		if err := validatePhone(phone); err != nil {
			return err
		}
	}
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}
	if len(address) > 500 {
		return shared.NewValidationError("address cannot exceed 500 characters")
	}

	c.Name = name
	c.Phone = phone
	c.Email = email
	c.Address = address
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerUpdatedEvent(c))

	return nil
}

// AssignTariff assigns the tariff schedule used to bill this customer's
// readings. Invoice generation requires an assigned tariff.
func (c *Customer) AssignTariff(tariffID uuid.UUID) {
	if c.TariffID != nil && *c.TariffID == tariffID {
		return
	}

	old := c.TariffID
	c.TariffID = &tariffID
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerTariffChangedEvent(c, old, &tariffID))
}

// ClearTariff removes the assigned tariff; readings for this customer are
// stored but not auto-invoiced until a tariff is assigned again.
func (c *Customer) ClearTariff() {
	if c.TariffID == nil {
		return
	}

	old := c.TariffID
	c.TariffID = nil
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerTariffChangedEvent(c, old, nil))
}

// Activate activates the customer
func (c *Customer) Activate() error {
	if c.Status == CustomerStatusActive {
		return shared.NewValidationError("customer is already active")
	}

	c.Status = CustomerStatusActive
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerStatusChangedEvent(c, CustomerStatusInactive, CustomerStatusActive))

	return nil
}

// Deactivate deactivates the customer. The record is kept (soft state);
// customers are never physically deleted.
func (c *Customer) Deactivate() error {
	if c.Status == CustomerStatusInactive {
		return shared.NewValidationError("customer is already inactive")
	}

	c.Status = CustomerStatusInactive
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerStatusChangedEvent(c, CustomerStatusActive, CustomerStatusInactive))

	return nil
}

// IsActive returns true if the customer is active
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}

// HasTariff returns true if a tariff schedule is assigned
func (c *Customer) HasTariff() bool {
	return c.TariffID != nil
}

// Validation functions

func validateCustomerCode(code string) error {
	if code == "" {
		return shared.NewValidationError("customer code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewValidationError("customer code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewValidationError("customer code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateCustomerName(name string) error {
	if name == "" {
		return shared.NewValidationError("customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("customer name cannot exceed 200 characters")
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewValidationError("phone number cannot exceed 50 characters")
	}
	validPhone := regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	if !validPhone.MatchString(phone) {
		return shared.NewValidationError("invalid phone number format")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewValidationError("email cannot exceed 200 characters")
	}
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return shared.NewValidationError("invalid email format")
	}
	return nil
}
