package services

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the actor may not touch the resource
	ErrForbidden = errors.New("you do not have access to this resource")

	// ErrInvalidCredentials is returned for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when registering an address already in use
	ErrEmailTaken = errors.New("email is already registered")

	// ErrBookingAlreadyCancelled is returned when cancelling a cancelled booking
	ErrBookingAlreadyCancelled = errors.New("booking is already cancelled")

	// ErrScheduleClosed is returned when booking a schedule that is not active
	// or has already departed
	ErrScheduleClosed = errors.New("schedule is not open for booking")

	// ErrScheduleHasBookings blocks deleting a schedule with confirmed bookings
	ErrScheduleHasBookings = errors.New("schedule has confirmed bookings")
)

// ValidationError reports a request that is well formed but not acceptable
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
