package handler

import "github.com/waterworks/backend/internal/interfaces/http/dto"

// APIResponse is the standard response envelope with a typed data field.
// Handler tests unmarshal into it to assert on payloads without casts.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Success bool           `json:"success"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// CountData wraps a bare count payload
type CountData struct {
	Count int64 `json:"count"`
}
