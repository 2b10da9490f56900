package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// Common allowed sort fields for entities with base fields
// These are the common fields present in most entities

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// CustomerSortFields contains allowed sort fields for customers
var CustomerSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"phone":      true,
	"email":      true,
	"status":     true,
}

// MeterSortFields contains allowed sort fields for meters
var MeterSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"serial_number": true,
	"status":        true,
	"installed_at":  true,
}

// RouteSortFields contains allowed sort fields for routes
var RouteSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"zone":       true,
	"status":     true,
}

// ReadingSortFields contains allowed sort fields for readings
var ReadingSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"period":         true,
	"consumption_m3": true,
	"read_on":        true,
}

// TariffSortFields contains allowed sort fields for tariffs
var TariffSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"starts_on":  true,
	"ends_on":    true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"period":     true,
	"emitted_on": true,
	"due_on":     true,
	"total":      true,
	"balance":    true,
	"status":     true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"paid_on":    true,
	"tendered":   true,
	"applied":    true,
	"method":     true,
}

// ChangeLogSortFields contains allowed sort fields for change log entries
var ChangeLogSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"entity_type":  true,
	"action":       true,
	"performed_at": true,
}
