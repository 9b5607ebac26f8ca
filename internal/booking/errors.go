package booking

import (
	"errors"
	"fmt"

	"roombook/internal/slot"
)

var (
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("slot already booked")

	ErrNotFound = errors.New("booking not found")

	ErrAuthMismatch = errors.New("email does not match booking record")

	// ErrAlreadyStarted means the booking is in the history and can no longer be cancelled.
	ErrAlreadyStarted = errors.New("booking has already started")

	// ErrNoFreeID means every id drawn collided with an existing booking.
	ErrNoFreeID = errors.New("no free booking id")
)

// ValidationError reports the first request field that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError describes a requested slot that overlaps an existing booking.
type ConflictError struct {
	Room     string
	Date     slot.Date
	Interval slot.Interval
}

func (c *ConflictError) Error() string {
	return fmt.Sprintf("%s is already booked on %s during %s", c.Room, c.Date, c.Interval)
}

func (c *ConflictError) Unwrap() error { return ErrConflict }

// NotificationError is a soft failure: the booking change it refers to has already been committed.
type NotificationError struct {
	Channel   string
	BookingID int
	Err       error
}

func (n *NotificationError) Error() string {
	return fmt.Sprintf("%s notification for booking %d failed: %v", n.Channel, n.BookingID, n.Err)
}

func (n *NotificationError) Unwrap() error { return n.Err }
