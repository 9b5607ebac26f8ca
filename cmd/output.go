package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"roombook/internal/models"
	"roombook/internal/slot"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printRooms(w io.Writer, rooms []models.Room) {
	tw := newTable(w)
	fmt.Fprintln(tw, "Room\tFloor\tSeats")
	for _, r := range rooms {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Name, r.Floor, r.Capacity)
	}
	tw.Flush()
}

func printTimes(w io.Writer, title string, times []slot.TimeOfDay) {
	if len(times) == 0 {
		fmt.Fprintf(w, "No %s options left for this date.\n", title)
		return
	}
	fmt.Fprintf(w, "%s options:\n", title)
	for _, t := range times {
		fmt.Fprintf(w, "  %s\n", t.Short())
	}
}

func printBookings(w io.Writer, title string, bookings []models.Booking) {
	fmt.Fprintln(w, title)
	if len(bookings) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDate\tStart\tEnd\tRoom\tBooked By\tMeeting")
	for _, b := range bookings {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Date, b.Start.Short(), b.End.Short(), b.Room, b.Name, b.Description)
	}
	tw.Flush()
}
