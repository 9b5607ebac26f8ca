package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roombook/internal/booking"
	"roombook/internal/caldav"
	"roombook/internal/config"
	"roombook/internal/google"
	"roombook/internal/mail"
	"roombook/internal/store"
)

// App is the booking service together with the backends it was built from.
type App struct {
	Service  *booking.Service
	Store    booking.Store
	Calendar *caldav.Publisher
	Location *time.Location
}

// Build connects the configured store and notifiers and loads the booking service.
func Build(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	grid, err := cfg.Grid()
	if err != nil {
		return nil, err
	}

	st, err := NewStore(ctx, logger, cfg, loc)
	if err != nil {
		return nil, err
	}

	a := &App{Store: st, Location: loc}
	var notifiers []booking.Notifier

	if cfg.MailEnabled() {
		mailer, err := mail.NewMailer(logger, mail.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			FromName: cfg.MailFromName,
		}, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to create mailer: %w", err)
		}
		notifiers = append(notifiers, mailer)
	} else {
		logger.Warn("SMTP_HOST not set, booking emails are disabled.")
	}

	if cfg.CalDAVEnabled() {
		if a.Calendar, err = NewCalendar(ctx, logger, cfg, loc); err != nil {
			return nil, err
		}
		notifiers = append(notifiers, a.Calendar)
	}

	a.Service, err = booking.New(ctx, logger, st, booking.Options{
		Grid:      grid,
		Location:  loc,
		Notifiers: notifiers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	return a, nil
}

// NewStore opens the booking store selected by cfg.Store.
func NewStore(ctx context.Context, logger *slog.Logger, cfg *config.Config, loc *time.Location) (booking.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("Using in-memory store, bookings are lost on exit.")
		return store.NewMemory(), nil
	case config.StoreFile:
		return store.NewFile(logger, cfg.StoreFile, loc), nil
	case config.StoreSheets:
		opts, err := google.ClientOptions(ctx, google.Credentials{
			ServiceAccountFile: cfg.GoogleCredentialsFile,
			ClientID:           cfg.GoogleClientID,
			ClientSecret:       cfg.GoogleClientSecret,
			Account:            cfg.GoogleAccount,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to authenticate with google: %w", err)
		}
		sheetsStore, err := google.NewSheetsStore(ctx, logger, google.SheetsConfig{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			Title:         cfg.GoogleSpreadsheetTitle,
			SheetName:     cfg.GoogleSheetName,
			SkipMalformed: cfg.SheetsSkipMalformed,
		}, loc, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open bookings spreadsheet: %w", err)
		}
		return sheetsStore, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// NewCalendar connects to the shared CalDAV room calendar.
func NewCalendar(ctx context.Context, logger *slog.Logger, cfg *config.Config, loc *time.Location) (*caldav.Publisher, error) {
	publisher, err := caldav.NewPublisher(ctx, logger, caldav.Config{
		Endpoint:     cfg.CalDAVURL,
		Username:     cfg.CalDAVUsername,
		Password:     cfg.CalDAVPassword,
		CalendarName: cfg.CalDAVCalendar,
	}, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return publisher, nil
}
