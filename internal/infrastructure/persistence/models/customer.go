package models

import (
	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/customer"
)

// CustomerModel is the persistence model for the Customer domain entity.
type CustomerModel struct {
	AggregateModel
	Code     string                  `gorm:"type:varchar(50);not null;uniqueIndex:idx_customers_code"`
	Name     string                  `gorm:"type:varchar(200);not null"`
	Phone    string                  `gorm:"type:varchar(50)"`
	Email    string                  `gorm:"type:varchar(200)"`
	Address  string                  `gorm:"type:text"`
	Status   customer.CustomerStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	TariffID *uuid.UUID              `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *customer.Customer {
	c := &customer.Customer{
		Code:     m.Code,
		Name:     m.Name,
		Phone:    m.Phone,
		Email:    m.Email,
		Address:  m.Address,
		Status:   m.Status,
		TariffID: m.TariffID,
	}
	m.PopulateAggregateRoot(&c.BaseAggregateRoot)
	return c
}

// FromDomain populates the persistence model from a domain Customer entity.
func (m *CustomerModel) FromDomain(c *customer.Customer) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Code = c.Code
	m.Name = c.Name
	m.Phone = c.Phone
	m.Email = c.Email
	m.Address = c.Address
	m.Status = c.Status
	m.TariffID = c.TariffID
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer entity.
func CustomerModelFromDomain(c *customer.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}
