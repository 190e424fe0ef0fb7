package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")

	// Error group errors
	ErrGroupNotFound = errors.New("error group not found")

	// Auth errors
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidAPIKey = errors.New("invalid API key")

	// Validation errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidTimeRange = errors.New("invalid time range")
)
