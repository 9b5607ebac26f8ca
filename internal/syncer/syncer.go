package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"roombook/internal/ical"
	"roombook/internal/models"
)

const DefaultStateFile = "sync-state.json"

// SyncState keeps track of which bookings have been published.
// The key is the calendar event UID, and the value is the booking ID.
type SyncState map[string]int

// Source lists the bookings of record.
type Source interface {
	List(ctx context.Context) ([]models.Booking, error)
}

// Publisher writes booking events to a calendar.
type Publisher interface {
	PutBooking(ctx context.Context, b models.Booking) error
	RemoveEvent(ctx context.Context, uid string) error
}

// Syncer mirrors the booking store onto a shared calendar.
// Bookings added or cancelled by other processes are picked up on the next cycle.
type Syncer struct {
	logger    *slog.Logger
	source    Source
	publisher Publisher
	stateFile string
	state     SyncState
	dryRun    bool
	loc       *time.Location
	now       func() time.Time
}

// NewSyncer creates a new Syncer.
func NewSyncer(logger *slog.Logger, source Source, publisher Publisher, stateFile string, dryRun bool, loc *time.Location) (*Syncer, error) {
	if stateFile == "" {
		stateFile = DefaultStateFile
	}
	state, err := loadState(stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("No sync state file found, starting fresh.", "file", stateFile)
			state = make(SyncState)
		} else {
			return nil, fmt.Errorf("failed to load sync state: %w", err)
		}
	}

	return &Syncer{
		logger:    logger,
		source:    source,
		publisher: publisher,
		stateFile: stateFile,
		state:     state,
		dryRun:    dryRun,
		loc:       loc,
		now:       time.Now,
	}, nil
}

// Sync performs a full synchronization cycle.
func (s *Syncer) Sync(ctx context.Context) error {
	s.logger.Info("Starting sync cycle.")

	bookings, err := s.source.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bookings: %w", err)
	}
	s.logger.Info("Fetched bookings.", "count", len(bookings))

	now := s.now()
	current := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		uid := ical.UID(b)
		current[uid] = true
		if !b.StartsAt(s.loc).After(now) {
			continue
		}
		if err := s.publish(ctx, uid, b); err != nil {
			s.logger.Error("Failed to publish booking", "bookingID", b.ID, "error", err)
		}
	}

	for uid, id := range s.state {
		if current[uid] {
			continue
		}
		if err := s.remove(ctx, uid, id); err != nil {
			s.logger.Error("Failed to remove cancelled booking", "bookingID", id, "error", err)
		}
	}

	if !s.dryRun {
		if err := s.saveState(); err != nil {
			s.logger.Error("Failed to save sync state", "error", err)
		}
	}

	s.logger.Info("Sync cycle finished.")
	return nil
}

// publish handles a single upcoming booking.
func (s *Syncer) publish(ctx context.Context, uid string, b models.Booking) error {
	if _, exists := s.state[uid]; exists {
		s.logger.Debug("Booking already published, skipping.", "bookingID", b.ID, "uid", uid)
		return nil
	}

	s.logger.Info("New booking found, publishing to calendar.", "bookingID", b.ID, "room", b.Room)
	if s.dryRun {
		s.logger.Info("[DRY RUN] Would create calendar event", "bookingID", b.ID, "startTime", b.StartsAt(s.loc))
		return nil
	}

	if err := s.publisher.PutBooking(ctx, b); err != nil {
		return fmt.Errorf("failed to publish booking: %w", err)
	}
	s.state[uid] = b.ID
	return nil
}

// remove drops the event of a booking that is no longer in the store.
func (s *Syncer) remove(ctx context.Context, uid string, id int) error {
	s.logger.Info("Booking no longer in store, removing calendar event.", "bookingID", id, "uid", uid)
	if s.dryRun {
		s.logger.Info("[DRY RUN] Would remove calendar event", "bookingID", id)
		return nil
	}

	if err := s.publisher.RemoveEvent(ctx, uid); err != nil {
		return err
	}
	delete(s.state, uid)
	return nil
}

// loadState loads the sync state from the JSON file.
func loadState(path string) (SyncState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil {
		state = make(SyncState)
	}
	return state, nil
}

// saveState saves the current sync state to the JSON file.
func (s *Syncer) saveState() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	return os.WriteFile(s.stateFile, data, 0644)
}
