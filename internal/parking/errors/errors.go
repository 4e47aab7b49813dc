package errors

import "errors"

var (
	ErrLocationNotFound = errors.New("location not found")

	ErrInvalidIndex = errors.New("slot index out of range")

	ErrValidation = errors.New("invalid booking details")

	ErrAlreadyBooked = errors.New("slot is already booked")

	// ErrPreseededSlot is returned when an override targets a slot that was
	// booked at load time and therefore has no record to overwrite.
	ErrPreseededSlot = errors.New("slot is pre-seeded and cannot be overridden")

	ErrAdminDisabled = errors.New("admin profile is disabled")

	ErrSessionNotFound = errors.New("session not found")

	ErrInvalidCatalog = errors.New("invalid location catalog")
)
