package event

import (
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/customer"
	"github.com/waterworks/backend/internal/domain/metering"
)

// RegisterAllEvents registers all domain event types with the serializer.
// Notification consumers need this to decode envelopes published on the
// notification channels back into typed events.
func RegisterAllEvents(serializer *EventSerializer) {
	// Customer domain events
	serializer.Register(customer.EventTypeCustomerCreated, &customer.CustomerCreatedEvent{})
	serializer.Register(customer.EventTypeCustomerUpdated, &customer.CustomerUpdatedEvent{})
	serializer.Register(customer.EventTypeCustomerStatusChanged, &customer.CustomerStatusChangedEvent{})
	serializer.Register(customer.EventTypeCustomerTariffChanged, &customer.CustomerTariffChangedEvent{})

	// Metering domain - meter and route events
	serializer.Register(metering.EventTypeMeterRegistered, &metering.MeterRegisteredEvent{})
	serializer.Register(metering.EventTypeMeterAssigned, &metering.MeterAssignedEvent{})
	serializer.Register(metering.EventTypeMeterReleased, &metering.MeterReleasedEvent{})
	serializer.Register(metering.EventTypeMeterStatusChanged, &metering.MeterStatusChangedEvent{})
	serializer.Register(metering.EventTypeRouteCreated, &metering.RouteCreatedEvent{})

	// Metering domain - reading events
	serializer.Register(metering.EventTypeReadingRegistered, &metering.ReadingRegisteredEvent{})

	// Billing domain - tariff events
	serializer.Register(billing.EventTypeTariffCreated, &billing.TariffCreatedEvent{})
	serializer.Register(billing.EventTypeTariffRangesRegistered, &billing.TariffRangesRegisteredEvent{})

	// Billing domain - invoice and payment events
	serializer.Register(billing.EventTypeInvoiceGenerated, &billing.InvoiceGeneratedEvent{})
	serializer.Register(billing.EventTypeInvoiceCorrected, &billing.InvoiceCorrectedEvent{})
	serializer.Register(billing.EventTypePaymentApplied, &billing.PaymentAppliedEvent{})
}
