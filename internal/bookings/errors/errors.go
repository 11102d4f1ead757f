package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrAlreadyBooked is returned when the car already has an active
	// booking by the same user. The wire message matters: clients match on
	// the "already booked" text.
	ErrAlreadyBooked = errors.New("car is already booked by this user")

	// ErrAlreadyCanceled is returned when a cancel targets a booking that
	// is not active. Clients match on the "already canceled" text.
	ErrAlreadyCanceled = errors.New("booking is already canceled")

	ErrLockNotAcquired = errors.New("booking operation already in progress")
)
