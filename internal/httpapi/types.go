package httpapi

import (
	"time"

	"roombook/internal/models"
	"roombook/internal/slot"
)

type CreateBookingRequest struct {
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Room        string `json:"room"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Description string `json:"description"`
	CCEmails    string `json:"cc_emails"`
}

type CancelBookingRequest struct {
	Email string `json:"email"`
}

// BookingResponse leaves out the addresses, since the email is what authorizes a cancellation.
type BookingResponse struct {
	ID          int       `json:"id"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Room        string    `json:"room"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

type BookingListResponse struct {
	Upcoming []BookingResponse `json:"upcoming"`
	Past     []BookingResponse `json:"past"`
}

type RoomResponse struct {
	Name     string `json:"name"`
	Floor    string `json:"floor"`
	Capacity int    `json:"capacity,omitempty"`
	Label    string `json:"label"`
}

type AvailabilityResponse struct {
	Date      string              `json:"date"`
	StartTime string              `json:"start_time,omitempty"`
	EndTime   string              `json:"end_time,omitempty"`
	Rooms     []RoomResponse      `json:"rooms,omitempty"`
	Booked    map[string][]string `json:"booked,omitempty"`
}

type SlotsResponse struct {
	Date      string   `json:"date"`
	StartTime string   `json:"start_time,omitempty"`
	Times     []string `json:"times"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Bookings int    `json:"bookings"`
}

func newBookingResponse(b models.Booking) BookingResponse {
	return BookingResponse{
		ID:          b.ID,
		Date:        b.Date.String(),
		StartTime:   b.Start.Short(),
		EndTime:     b.End.Short(),
		Room:        b.Room,
		Name:        b.Name,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
}

func newBookingResponses(bookings []models.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, newBookingResponse(b))
	}
	return out
}

func newRoomResponses(rooms []models.Room) []RoomResponse {
	out := make([]RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, RoomResponse{Name: r.Name, Floor: r.Floor, Capacity: r.Capacity, Label: r.Label()})
	}
	return out
}

func shortTimes(times []slot.TimeOfDay) []string {
	out := make([]string, 0, len(times))
	for _, t := range times {
		out = append(out, t.Short())
	}
	return out
}
