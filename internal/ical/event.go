package ical

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/google/uuid"

	"roombook/internal/models"
)

const productID = "-//roombook//EN"

// Method is the iTIP method of a calendar object sent by email.
type Method string

const (
	MethodRequest Method = "REQUEST"
	MethodCancel  Method = "CANCEL"
)

var uidNamespace = uuid.MustParse("6f1c1f2e-3f47-4c52-9a55-0b6d7f5e2a10")

// UID returns a stable identifier for the calendar event of a booking.
// Booking ids can repeat over time, so the slot is part of the name.
func UID(b models.Booking) string {
	name := fmt.Sprintf("%d/%s/%s/%s", b.ID, b.Date, b.Room, b.Start)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String()
}

// Event converts a booking to a VEVENT in loc.
func Event(b models.Booking, loc *time.Location, organizer string) *goical.Component {
	ve := goical.NewComponent(goical.CompEvent)
	ve.Props.SetText(goical.PropUID, UID(b))
	ve.Props.SetText(goical.PropSummary, b.Description)
	ve.Props.SetDateTime(goical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(goical.PropDateTimeStart, b.StartsAt(loc))
	ve.Props.SetDateTime(goical.PropDateTimeEnd, b.EndsAt(loc))
	ve.Props.SetText(goical.PropLocation, b.Room)
	ve.Props.SetText(goical.PropDescription, fmt.Sprintf("Booking ID %d, booked by %s", b.ID, b.Name))

	if organizer != "" {
		p := goical.NewProp(goical.PropOrganizer)
		p.SetText(fmt.Sprintf("mailto:%s", organizer))
		ve.Props.Add(p)
	}
	for _, attendee := range append([]string{b.Email}, b.CCEmails...) {
		p := goical.NewProp(goical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}
	return ve
}

// Calendar wraps the booking's event in a VCALENDAR.
// An empty method produces a plain object suitable for CalDAV storage.
// A cancelled event keeps its UID and carries a higher sequence so clients drop it.
func Calendar(b models.Booking, loc *time.Location, organizer string, method Method) *goical.Calendar {
	ve := Event(b, loc, organizer)
	if method == MethodCancel {
		ve.Props.SetText(goical.PropStatus, "CANCELLED")
		ve.Props.SetText(goical.PropSequence, strconv.Itoa(1))
	} else {
		ve.Props.SetText(goical.PropSequence, strconv.Itoa(0))
	}

	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, productID)
	if method != "" {
		cal.Props.SetText(goical.PropMethod, string(method))
	}
	cal.Children = append(cal.Children, ve)
	return cal
}

// Encode renders the booking calendar as iCalendar bytes.
func Encode(b models.Booking, loc *time.Location, organizer string, method Method) ([]byte, error) {
	var buf bytes.Buffer
	if err := goical.NewEncoder(&buf).Encode(Calendar(b, loc, organizer, method)); err != nil {
		return nil, fmt.Errorf("failed to encode booking %d to iCal format: %w", b.ID, err)
	}
	return buf.Bytes(), nil
}
