package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrParse        = errors.New("unparseable interface name")
	ErrNoManagement = errors.New("device has no primary IP")
)

// APIError represents an error response from the admin API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
