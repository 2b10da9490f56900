package shared

import (
	"errors"
	"fmt"
)

// DomainError is a typed error carried across layer boundaries. The Code
// identifies the error class; handlers map codes to HTTP statuses.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes for the four error classes surfaced by the billing engine,
// plus the perimeter-auth and optimistic-locking codes.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInternal            = "INTERNAL_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "resource already exists")
	ErrValidation          = NewDomainError(CodeValidation, "invalid input provided")
	ErrInternal            = NewDomainError(CodeInternal, "internal error")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "not authorized to perform this action")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "resource was modified by another process")
)

// IsNotFound reports whether err is a NOT_FOUND domain error.
func IsNotFound(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == CodeNotFound
}

// NewValidationError creates a VALIDATION_ERROR with a formatted message.
func NewValidationError(format string, args ...interface{}) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a NOT_FOUND error naming the missing resource.
func NewNotFoundError(format string, args ...interface{}) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf(format, args...))
}

// NewConflictError creates an ALREADY_EXISTS error for idempotency and
// uniqueness violations.
func NewConflictError(format string, args ...interface{}) *DomainError {
	return NewDomainError(CodeAlreadyExists, fmt.Sprintf(format, args...))
}

// NewInternalError creates an INTERNAL_ERROR without leaking internal detail.
func NewInternalError(message string) *DomainError {
	return NewDomainError(CodeInternal, message)
}
