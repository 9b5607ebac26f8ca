package store

import (
	"context"
	"slices"
	"sync"

	"roombook/internal/models"
)

// Memory keeps bookings in process memory. It is used for dry runs and tests.
type Memory struct {
	mu       sync.Mutex
	bookings []models.Booking
}

// NewMemory returns a Memory store seeded with bookings.
func NewMemory(bookings ...models.Booking) *Memory {
	return &Memory{bookings: slices.Clone(bookings)}
}

func (m *Memory) List(ctx context.Context) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.bookings), nil
}

func (m *Memory) Append(ctx context.Context, b models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = append(m.bookings, b)
	return nil
}

// Delete removes the first booking with the given id. Unknown ids are ignored.
func (m *Memory) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.bookings, func(b models.Booking) bool { return b.ID == id })
	if i >= 0 {
		m.bookings = slices.Delete(m.bookings, i, i+1)
	}
	return nil
}
