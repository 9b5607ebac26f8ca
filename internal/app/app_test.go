package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"roombook/internal/booking"
	"roombook/internal/config"
	"roombook/internal/slot"
	"roombook/internal/store"
)

func testConfig(store string) *config.Config {
	return &config.Config{
		Timezone:        "UTC",
		OfficeOpen:      "08:00",
		OfficeClose:     "20:00",
		SlotMinutes:     15,
		Store:           store,
		SMTPPort:        587,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}
}

func TestBuildMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := Build(context.Background(), logger, testConfig(config.StoreMemory))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := a.Store.(*store.Memory); !ok {
		t.Errorf("store = %T, want *store.Memory", a.Store)
	}
	if a.Calendar != nil {
		t.Error("calendar should be disabled")
	}
	if len(a.Service.All()) != 0 {
		t.Error("memory store should start empty")
	}
}

func TestBuildFileLoadsExistingBookings(t *testing.T) {
	cfg := testConfig(config.StoreFile)
	cfg.StoreFile = filepath.Join(t.TempDir(), "bookings.csv")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	first, err := Build(ctx, logger, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tomorrow := slot.DateOf(time.Now().UTC().AddDate(0, 0, 1))
	receipt, err := first.Service.Create(ctx, booking.Request{
		Date:        tomorrow,
		Interval:    slot.Interval{Start: slot.NewTimeOfDay(9, 0), End: slot.NewTimeOfDay(10, 0)},
		Room:        "HIMALAYA",
		Name:        "Alice",
		Email:       "alice@x.com",
		Description: "Planning",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	second, err := Build(ctx, logger, cfg)
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	got, err := second.Service.Get(receipt.Booking.ID)
	if err != nil {
		t.Fatalf("booking not reloaded: %v", err)
	}
	if second.Service.IsAvailable(tomorrow, got.Interval(), "HIMALAYA") {
		t.Error("reloaded booking should block its slot")
	}
}

func TestBuildRejectsUnknownStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := Build(context.Background(), logger, testConfig("mongo")); err == nil {
		t.Error("expected an error for an unknown store")
	}
}
