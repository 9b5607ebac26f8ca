package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"roombook/internal/booking"
	"roombook/internal/models"
	"roombook/internal/slot"
)

// Header is the column layout shared by every tabular booking store.
var Header = []string{
	"booking_id", "date", "start_time", "end_time", "room",
	"name", "email", "description", "cc_emails", "created_at",
}

const (
	colID = iota
	colDate
	colStart
	colEnd
	colRoom
	colName
	colEmail
	colDescription
	colCC
	colCreatedAt
)

const createdAtLayout = "2006-01-02 15:04:05"

var catalog = models.DefaultCatalog()

// Older sheets were written with a two digit year.
var createdAtLayouts = []string{createdAtLayout, "06-01-02 15:04:05", time.RFC3339}

// EncodeRow renders a booking as one row of Header columns.
func EncodeRow(b models.Booking) []string {
	created := ""
	if !b.CreatedAt.IsZero() {
		created = b.CreatedAt.Format(createdAtLayout)
	}
	return []string{
		strconv.Itoa(b.ID),
		b.Date.String(),
		b.Start.String(),
		b.End.String(),
		b.Room,
		b.Name,
		b.Email,
		b.Description,
		strings.Join(b.CCEmails, ", "),
		created,
	}
}

// DecodeRow parses a row written by EncodeRow. Missing trailing cells read as empty.
// Timestamps without a zone are read in loc. Rooms may be stored by name or by
// label and are resolved to the catalog name.
func DecodeRow(cells []string, loc *time.Location) (models.Booking, error) {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	var b models.Booking
	var err error

	if b.ID, err = strconv.Atoi(cell(colID)); err != nil {
		return models.Booking{}, &booking.ValidationError{Field: Header[colID], Message: fmt.Sprintf("%q is not an integer", cell(colID))}
	}
	if b.Date, err = slot.ParseDate(cell(colDate)); err != nil {
		return models.Booking{}, &booking.ValidationError{Field: Header[colDate], Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", cell(colDate))}
	}
	if b.Start, err = slot.ParseTimeOfDay(cell(colStart)); err != nil {
		return models.Booking{}, &booking.ValidationError{Field: Header[colStart], Message: fmt.Sprintf("%q is not a time of day", cell(colStart))}
	}
	if b.End, err = slot.ParseTimeOfDay(cell(colEnd)); err != nil {
		return models.Booking{}, &booking.ValidationError{Field: Header[colEnd], Message: fmt.Sprintf("%q is not a time of day", cell(colEnd))}
	}
	if !b.Interval().Valid() {
		return models.Booking{}, &booking.ValidationError{Field: Header[colEnd], Message: "end time is not after start time"}
	}
	room, ok := catalog.Lookup(cell(colRoom))
	if !ok {
		return models.Booking{}, &booking.ValidationError{Field: Header[colRoom], Message: fmt.Sprintf("%q is not a catalog room", cell(colRoom))}
	}
	b.Room = room.Name
	b.Name = cell(colName)
	if b.Email = cell(colEmail); !booking.ValidEmail(b.Email) {
		return models.Booking{}, &booking.ValidationError{Field: Header[colEmail], Message: fmt.Sprintf("%q is not a valid email address", b.Email)}
	}
	b.Description = cell(colDescription)
	b.CCEmails = booking.SplitEmails(cell(colCC))

	if raw := cell(colCreatedAt); raw != "" {
		if b.CreatedAt, err = parseCreatedAt(raw, loc); err != nil {
			return models.Booking{}, &booking.ValidationError{Field: Header[colCreatedAt], Message: fmt.Sprintf("%q is not a timestamp", raw)}
		}
	}
	return b, nil
}

func parseCreatedAt(raw string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range createdAtLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// IsHeader reports whether a row is the column header.
func IsHeader(cells []string) bool {
	return len(cells) > 0 && strings.EqualFold(strings.TrimSpace(cells[0]), Header[colID])
}
