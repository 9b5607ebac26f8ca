package availability

import (
	"slices"
	"sync"

	"roombook/internal/models"
	"roombook/internal/slot"
)

// Index maps a date and room to the intervals already booked there.
// It is derived from the booking set and must be rebuilt whenever that set is reloaded.
// Reads may happen concurrently; mutations are expected from a single owner.
type Index struct {
	mu     sync.RWMutex
	byDate map[slot.Date]map[string][]slot.Interval
}

// New returns an empty Index.
func New() *Index {
	return &Index{byDate: make(map[slot.Date]map[string][]slot.Interval)}
}

// FromBookings builds an Index from a booking snapshot.
func FromBookings(bookings []models.Booking) *Index {
	idx := New()
	idx.Rebuild(bookings)
	return idx
}

// Rebuild replaces the index contents with the projection of bookings.
func (x *Index) Rebuild(bookings []models.Booking) {
	byDate := make(map[slot.Date]map[string][]slot.Interval)
	for _, b := range bookings {
		register(byDate, b.Date, b.Room, b.Interval())
	}

	x.mu.Lock()
	x.byDate = byDate
	x.mu.Unlock()
}

// IsAvailable reports whether iv is free for room on date.
// The caller guarantees iv is non-empty.
func (x *Index) IsAvailable(date slot.Date, iv slot.Interval, room string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, booked := range x.byDate[date][room] {
		if iv.Overlaps(booked) {
			return false
		}
	}
	return true
}

// Register records iv as booked without checking availability.
func (x *Index) Register(date slot.Date, room string, iv slot.Interval) {
	x.mu.Lock()
	defer x.mu.Unlock()
	register(x.byDate, date, room, iv)
}

// Unregister removes the first interval equal to iv. It is a no-op if none matches.
func (x *Index) Unregister(date slot.Date, room string, iv slot.Interval) {
	x.mu.Lock()
	defer x.mu.Unlock()

	rooms, ok := x.byDate[date]
	if !ok {
		return
	}
	intervals := rooms[room]
	i := slices.Index(intervals, iv)
	if i < 0 {
		return
	}
	intervals = slices.Delete(intervals, i, i+1)
	if len(intervals) == 0 {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(x.byDate, date)
		}
		return
	}
	rooms[room] = intervals
}

// Booked returns the booked intervals for room on date, sorted by start.
func (x *Index) Booked(date slot.Date, room string) []slot.Interval {
	x.mu.RLock()
	out := slices.Clone(x.byDate[date][room])
	x.mu.RUnlock()

	slices.SortFunc(out, func(a, b slot.Interval) int { return int(a.Start - b.Start) })
	return out
}

// Len returns the number of intervals in the index.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := 0
	for _, rooms := range x.byDate {
		for _, intervals := range rooms {
			n += len(intervals)
		}
	}
	return n
}

func register(byDate map[slot.Date]map[string][]slot.Interval, date slot.Date, room string, iv slot.Interval) {
	rooms, ok := byDate[date]
	if !ok {
		rooms = make(map[string][]slot.Interval)
		byDate[date] = rooms
	}
	rooms[room] = append(rooms[room], iv)
}
