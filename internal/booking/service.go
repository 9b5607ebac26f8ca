package booking

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"roombook/internal/availability"
	"roombook/internal/models"
	"roombook/internal/slot"
)

const (
	minID = 1000
	maxID = 9999

	maxIDAttempts = 64
)

// Store is the persistent record of bookings.
type Store interface {
	List(ctx context.Context) ([]models.Booking, error)
	Append(ctx context.Context, b models.Booking) error
	Delete(ctx context.Context, id int) error
}

// Notifier is told about committed booking changes. Failures never undo the change.
type Notifier interface {
	Name() string
	BookingConfirmed(ctx context.Context, b models.Booking) error
	BookingCancelled(ctx context.Context, b models.Booking) error
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Catalog   models.Catalog
	Grid      slot.Grid
	Location  *time.Location
	Now       func() time.Time
	NewID     func() int
	Notifiers []Notifier
}

// Request is a booking form submission.
type Request struct {
	Date        slot.Date
	Interval    slot.Interval
	Room        string
	Name        string
	Email       string
	Description string
	CCEmails    []string
}

// Receipt is the result of a committed change plus any soft failures.
type Receipt struct {
	Booking  models.Booking
	Warnings []*NotificationError
}

// Service validates, commits and announces bookings.
// The availability index it owns mirrors the store snapshot loaded at construction.
type Service struct {
	mu        sync.Mutex
	logger    *slog.Logger
	store     Store
	index     *availability.Index
	bookings  map[int]models.Booking
	catalog   models.Catalog
	grid      slot.Grid
	loc       *time.Location
	now       func() time.Time
	newID     func() int
	notifiers []Notifier
	validator *requestValidator
}

// New loads every booking from store and builds the availability index from them.
func New(ctx context.Context, logger *slog.Logger, store Store, opts Options) (*Service, error) {
	if opts.Catalog == nil {
		opts.Catalog = models.DefaultCatalog()
	}
	if opts.Grid == (slot.Grid{}) {
		opts.Grid = slot.DefaultGrid()
	}
	if err := opts.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid office hours: %w", err)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = randomID
	}

	s := &Service{
		logger:    logger,
		store:     store,
		index:     availability.New(),
		catalog:   opts.Catalog,
		grid:      opts.Grid,
		loc:       opts.Location,
		now:       opts.Now,
		newID:     opts.NewID,
		notifiers: opts.Notifiers,
		validator: newRequestValidator(),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory view with a fresh store snapshot.
func (s *Service) Reload(ctx context.Context) error {
	list, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bookings: %w", err)
	}

	bookings := make(map[int]models.Booking, len(list))
	for i, b := range list {
		if room, ok := s.catalog.Lookup(b.Room); ok {
			list[i].Room = room.Name
		} else {
			s.logger.Warn("Stored booking names a room outside the catalog.", "bookingID", b.ID, "room", b.Room)
		}
		if _, dup := bookings[b.ID]; dup {
			s.logger.Warn("Duplicate booking id in store, lookups use the first row.", "bookingID", b.ID)
			continue
		}
		bookings[b.ID] = list[i]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = bookings
	// Every stored row holds its slot, including rows that repeat an id.
	s.index.Rebuild(list)
	s.logger.Info("Loaded bookings from store.", "count", len(list))
	return nil
}

// Create books a room if the request is valid and the slot is free.
func (s *Service) Create(ctx context.Context, req Request) (*Receipt, error) {
	req = normalize(req)

	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	if !s.index.IsAvailable(req.Date, req.Interval, room.Name) {
		return nil, &ConflictError{Room: room.Name, Date: req.Date, Interval: req.Interval}
	}

	id, err := s.allocateID()
	if err != nil {
		return nil, err
	}

	b := models.Booking{
		ID:          id,
		Date:        req.Date,
		Start:       req.Interval.Start,
		End:         req.Interval.End,
		Room:        room.Name,
		Name:        req.Name,
		Email:       req.Email,
		Description: req.Description,
		CCEmails:    req.CCEmails,
		CreatedAt:   s.now().In(s.loc).Truncate(time.Second),
	}
	if err := s.store.Append(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save booking %d: %w", id, err)
	}
	s.index.Register(b.Date, b.Room, b.Interval())
	s.bookings[b.ID] = b
	s.logger.Info("Booking created.", "bookingID", b.ID, "room", b.Room, "date", b.Date.String(), "slot", b.Interval().String())

	return &Receipt{Booking: b, Warnings: s.notify(ctx, b, Notifier.BookingConfirmed)}, nil
}

// Cancel deletes booking id if requesterEmail matches the booking's email.
// Only upcoming bookings can be cancelled.
func (s *Service) Cancel(ctx context.Context, id int, requesterEmail string) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if !strings.EqualFold(strings.TrimSpace(requesterEmail), b.Email) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrAuthMismatch)
	}
	if !s.IsUpcoming(b, s.Now()) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrAlreadyStarted)
	}

	s.index.Unregister(b.Date, b.Room, b.Interval())
	if err := s.store.Delete(ctx, id); err != nil {
		s.index.Register(b.Date, b.Room, b.Interval())
		return nil, fmt.Errorf("failed to delete booking %d: %w", id, err)
	}
	delete(s.bookings, id)
	s.logger.Info("Booking cancelled.", "bookingID", b.ID, "room", b.Room, "date", b.Date.String())

	return &Receipt{Booking: b, Warnings: s.notify(ctx, b, Notifier.BookingCancelled)}, nil
}

// List splits all bookings into those that started at or before now and those after it.
// Both slices are ordered by date and start time.
func (s *Service) List(now time.Time) (past, upcoming []models.Booking) {
	for _, b := range s.All() {
		if s.IsUpcoming(b, now) {
			upcoming = append(upcoming, b)
		} else {
			past = append(past, b)
		}
	}
	return past, upcoming
}

// Upcoming returns the bookings that can still be cancelled, in start order.
func (s *Service) Upcoming(now time.Time) []models.Booking {
	_, upcoming := s.List(now)
	return upcoming
}

// IsUpcoming reports whether b starts strictly after now.
func (s *Service) IsUpcoming(b models.Booking, now time.Time) bool {
	return b.StartsAt(s.loc).After(now)
}

// All returns every known booking in start order.
func (s *Service) All() []models.Booking {
	s.mu.Lock()
	all := slices.Collect(maps.Values(s.bookings))
	s.mu.Unlock()

	slices.SortFunc(all, func(a, b models.Booking) int {
		if a.Before(b) {
			return -1
		}
		if b.Before(a) {
			return 1
		}
		return 0
	})
	return all
}

// Get returns a booking by id.
func (s *Service) Get(id int) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	return b, nil
}

// IsAvailable reports whether room is free for iv on date.
func (s *Service) IsAvailable(date slot.Date, iv slot.Interval, room string) bool {
	return s.index.IsAvailable(date, iv, room)
}

// AvailableRooms lists the catalog rooms that are free for iv on date.
func (s *Service) AvailableRooms(date slot.Date, iv slot.Interval) []models.Room {
	var free []models.Room
	for _, r := range s.catalog {
		if s.index.IsAvailable(date, iv, r.Name) {
			free = append(free, r)
		}
	}
	return free
}

// Booked returns the booked intervals of room on date.
func (s *Service) Booked(date slot.Date, room string) []slot.Interval {
	return s.index.Booked(date, room)
}

// StartTimes lists the grid start times still bookable on date.
func (s *Service) StartTimes(date slot.Date) []slot.TimeOfDay {
	now := s.Now()
	today := slot.DateOf(now)
	if date.Before(today) {
		return nil
	}
	starts := s.grid.Starts()
	if date != today {
		return starts
	}
	clock := slot.Clock(now)
	return slices.DeleteFunc(starts, func(t slot.TimeOfDay) bool { return t <= clock })
}

// Rooms returns the room catalog.
func (s *Service) Rooms() models.Catalog { return s.catalog }

// Grid returns the bookable office hours.
func (s *Service) Grid() slot.Grid { return s.grid }

// Location returns the office timezone.
func (s *Service) Location() *time.Location { return s.loc }

// Now returns the current time in the office timezone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

func (s *Service) validate(req Request) (models.Room, error) {
	now := s.Now()
	today := slot.DateOf(now)

	if req.Date.IsZero() {
		return models.Room{}, invalid("date", "date is required")
	}
	if req.Date.Before(today) {
		return models.Room{}, invalid("date", "date %s is in the past", req.Date)
	}
	if !req.Interval.Valid() {
		return models.Room{}, invalid("end_time", "end time must be after start time")
	}
	if !s.grid.Aligned(req.Interval.Start) || req.Interval.Start >= s.grid.Close {
		return models.Room{}, invalid("start_time", "start time must be a %s step between %s and %s",
			s.grid.Step, s.grid.Open.Short(), s.grid.Close.Short())
	}
	if !s.grid.Contains(req.Interval) {
		return models.Room{}, invalid("end_time", "end time must be a %s step no later than %s",
			s.grid.Step, s.grid.Close.Short())
	}
	if req.Date == today && req.Interval.Start <= slot.Clock(now) {
		return models.Room{}, invalid("start_time", "start time must be in the future")
	}

	room, ok := s.catalog.Lookup(req.Room)
	if !ok {
		return models.Room{}, invalid("room", "unknown room %q", req.Room)
	}

	if err := s.validator.contact(contact{
		Email:       req.Email,
		CCEmails:    req.CCEmails,
		Name:        req.Name,
		Description: req.Description,
	}); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (s *Service) allocateID() (int, error) {
	for range maxIDAttempts {
		id := s.newID()
		if id < minID || id > maxID {
			continue
		}
		if _, taken := s.bookings[id]; !taken {
			return id, nil
		}
		s.logger.Debug("Booking id collision, drawing again.", "bookingID", id)
	}
	return 0, ErrNoFreeID
}

func (s *Service) notify(ctx context.Context, b models.Booking, send func(Notifier, context.Context, models.Booking) error) []*NotificationError {
	var warnings []*NotificationError
	for _, n := range s.notifiers {
		if err := send(n, ctx, b); err != nil {
			s.logger.Warn("Notification failed.", "channel", n.Name(), "bookingID", b.ID, "error", err)
			warnings = append(warnings, &NotificationError{Channel: n.Name(), BookingID: b.ID, Err: err})
		}
	}
	return warnings
}

func normalize(req Request) Request {
	req.Room = strings.TrimSpace(req.Room)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Description = strings.TrimSpace(req.Description)

	cc := make([]string, 0, len(req.CCEmails))
	for _, e := range req.CCEmails {
		if e = strings.TrimSpace(e); e != "" {
			cc = append(cc, e)
		}
	}
	if len(cc) == 0 {
		cc = nil
	}
	req.CCEmails = cc
	return req
}

func randomID() int {
	return minID + rand.IntN(maxID-minID+1)
}
