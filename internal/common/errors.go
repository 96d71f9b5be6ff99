// Package common defines shared constants and sentinel errors used across
// the layers of the mailroom service. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Custody lifecycle errors.
	ErrorInvalidState = errors.New("invalid state")

	// Storage and external-dependency errors.
	ErrorStorage = errors.New("storage failure")
	ErrorTimeout = errors.New("timeout")

	// Auth errors (missing, invalid or malformed token).
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrInvalidToken   = errors.New("invalid token")

	ErrorInvalidAuthHeaderFormat = errors.New("invalid auth header format")
)
