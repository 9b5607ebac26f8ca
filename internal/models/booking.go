package models

import (
	"time"

	"roombook/internal/slot"
)

// Booking is a reservation of one room for one slot.
// Bookings are never modified after creation; they are only created and cancelled.
type Booking struct {
	ID          int            // Short human-readable id in [1000, 9999]
	Date        slot.Date      // Day of the meeting
	Start       slot.TimeOfDay // Inclusive start
	End         slot.TimeOfDay // Exclusive end
	Room        string         // Catalog room name
	Name        string         // Requester's name
	Email       string         // Requester's email, used to authorise cancellation
	Description string         // Meeting title
	CCEmails    []string       // Additional notification recipients
	CreatedAt   time.Time      // When the booking was persisted
}

// Interval returns the booked [Start, End) range.
func (b Booking) Interval() slot.Interval {
	return slot.Interval{Start: b.Start, End: b.End}
}

// StartsAt returns the start instant of the booking in loc.
func (b Booking) StartsAt(loc *time.Location) time.Time {
	return slot.At(b.Date, b.Start, loc)
}

// EndsAt returns the end instant of the booking in loc.
func (b Booking) EndsAt(loc *time.Location) time.Time {
	return slot.At(b.Date, b.End, loc)
}

// Before orders bookings by date, then start time, then id.
func (b Booking) Before(o Booking) bool {
	if c := b.Date.Compare(o.Date); c != 0 {
		return c < 0
	}
	if b.Start != o.Start {
		return b.Start < o.Start
	}
	return b.ID < o.ID
}
