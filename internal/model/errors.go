package model

import "errors"

// Error taxonomy for business-rule violations. Callers wrap these with %w and
// context; handlers map them to HTTP status codes with errors.Is.

// ErrInvalidArgument is returned for bad or missing input, including attempts
// to book an event that has already started.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrUnauthorized is returned when no actor identity can be resolved.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned on ownership or role violations.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when a requested booking or event does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an event is at capacity with a closed waitlist.
var ErrConflict = errors.New("conflict")
