package service

import (
	"errors"
	"fmt"

	"buildops/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrBookingNotFound   = fmt.Errorf("booking %w", ErrNotFound)
	ErrPaymentNotFound   = fmt.Errorf("payment %w", ErrNotFound)
	ErrClientNotFound    = fmt.Errorf("client %w", ErrNotFound)
	ErrServiceNotFound   = fmt.Errorf("service %w", ErrNotFound)
	ErrInventoryNotFound = fmt.Errorf("inventory item %w", ErrNotFound)

	ErrDuplicateDate     = errors.New("a booking already exists on this date")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// DuplicateDateError reports the booking that already holds the day.
type DuplicateDateError struct {
	Date      models.Day
	BookingID int64
}

func (e *DuplicateDateError) Error() string {
	return fmt.Sprintf("a booking already exists on %s (booking %d)", e.Date, e.BookingID)
}

func (e *DuplicateDateError) Is(target error) bool {
	return target == ErrDuplicateDate
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
