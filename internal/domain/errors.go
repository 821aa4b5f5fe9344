package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrInvalidToken marks a destination token the push transport reports as
	// dead or malformed; dispatch reacts by deactivating the device.
	ErrInvalidToken = errors.New("invalid destination token")

	// ErrQuotaExceeded is returned when a secondary-channel send would pass
	// the user's weekly allowance.
	ErrQuotaExceeded = errors.New("weekly quota exceeded")
)
