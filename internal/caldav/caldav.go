package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"roombook/internal/ical"
	"roombook/internal/models"
)

// basicAuthTransport adds Basic Auth and a User-Agent to each request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "roombook/1.0")
	return t.Transport.RoundTrip(req)
}

// Config locates the shared room calendar.
type Config struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string
}

// Publisher mirrors bookings into a shared CalDAV calendar, one event per booking.
type Publisher struct {
	webdavClient *webdav.Client
	logger       *slog.Logger
	loc          *time.Location
	calendarPath string
}

// NewPublisher connects to the CalDAV server and finds the calendar named in cfg.
func NewPublisher(ctx context.Context, logger *slog.Logger, cfg Config, loc *time.Location) (*Publisher, error) {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &basicAuthTransport{
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: http.DefaultTransport,
		},
	}

	caldavClient, err := caldav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	logger.Info("Finding room calendar", "calendarName", cfg.CalendarName)
	calendarPath, err := findCalendar(ctx, caldavClient, cfg.CalendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", cfg.CalendarName, err)
	}
	logger.Info("Successfully found room calendar", "path", calendarPath)

	return newPublisher(logger, httpClient, cfg.Endpoint, calendarPath, loc)
}

func newPublisher(logger *slog.Logger, httpClient webdav.HTTPClient, endpoint, calendarPath string, loc *time.Location) (*Publisher, error) {
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}
	return &Publisher{
		webdavClient: webdavClient,
		logger:       logger,
		loc:          loc,
		calendarPath: calendarPath,
	}, nil
}

func (p *Publisher) Name() string { return "caldav" }

func (p *Publisher) BookingConfirmed(ctx context.Context, b models.Booking) error {
	return p.PutBooking(ctx, b)
}

func (p *Publisher) BookingCancelled(ctx context.Context, b models.Booking) error {
	return p.RemoveEvent(ctx, ical.UID(b))
}

// PutBooking creates or replaces the calendar event of a booking.
func (p *Publisher) PutBooking(ctx context.Context, b models.Booking) error {
	uid := ical.UID(b)
	p.logger.Debug("Publishing booking to calendar", "bookingID", b.ID, "uid", uid)

	writer, err := p.webdavClient.Create(ctx, p.eventPath(uid))
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if err := goical.NewEncoder(writer).Encode(ical.Calendar(b, p.loc, "", "")); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event to CalDAV server: %w", err)
	}

	p.logger.Info("Published booking to calendar", "bookingID", b.ID, "room", b.Room)
	return nil
}

// RemoveEvent deletes the calendar event with the given UID.
func (p *Publisher) RemoveEvent(ctx context.Context, uid string) error {
	if err := p.webdavClient.RemoveAll(ctx, p.eventPath(uid)); err != nil {
		return fmt.Errorf("failed to remove event %s from CalDAV server: %w", uid, err)
	}
	p.logger.Info("Removed booking from calendar", "uid", uid)
	return nil
}

func (p *Publisher) eventPath(uid string) string {
	return path.Join(p.calendarPath, uid+".ics")
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func findCalendar(ctx context.Context, c *caldav.Client, name string) (string, error) {
	principalPath, err := c.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if strings.EqualFold(cal.Name, name) {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
