// Package common contains shared constants and sentinel errors used across
// the application. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorAlreadyExists = errors.New("already exists")

	// Validation errors. Services wrap these with a field-specific message,
	// e.g. fmt.Errorf("%w: event title is required", ErrorValidation).
	ErrorValidation   = errors.New("validation error")
	ErrorWeakPassword = errors.New("password is too weak")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
