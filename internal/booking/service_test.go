package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"roombook/internal/models"
	"roombook/internal/slot"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type storeStub struct {
	bookings  []models.Booking
	appended  int
	deleted   []int
	appendErr error
	deleteErr error
	listErr   error
}

func (s *storeStub) List(ctx context.Context) ([]models.Booking, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return slices.Clone(s.bookings), nil
}

func (s *storeStub) Append(ctx context.Context, b models.Booking) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended++
	s.bookings = append(s.bookings, b)
	return nil
}

func (s *storeStub) Delete(ctx context.Context, id int) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	s.bookings = slices.DeleteFunc(s.bookings, func(b models.Booking) bool { return b.ID == id })
	return nil
}

type notifierStub struct {
	name      string
	err       error
	confirmed []int
	cancelled []int
}

func (n *notifierStub) Name() string { return n.name }

func (n *notifierStub) BookingConfirmed(ctx context.Context, b models.Booking) error {
	n.confirmed = append(n.confirmed, b.ID)
	return n.err
}

func (n *notifierStub) BookingCancelled(ctx context.Context, b models.Booking) error {
	n.cancelled = append(n.cancelled, b.ID)
	return n.err
}

// sequence returns an id generator that yields ids in order and then repeats the last one.
func sequence(ids ...int) func() int {
	i := 0
	return func() int {
		id := ids[min(i, len(ids)-1)]
		i++
		return id
	}
}

func newTestService(t *testing.T, store *storeStub, now time.Time, notifiers ...Notifier) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(context.Background(), logger, store, Options{
		Location:  ist,
		Now:       func() time.Time { return now },
		NewID:     sequence(1001, 1002, 1003, 1004, 1005),
		Notifiers: notifiers,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mustSlot(t *testing.T, date, start, end string) (slot.Date, slot.Interval) {
	t.Helper()
	d, iv, err := ParseSlot(date, start, end)
	if err != nil {
		t.Fatalf("ParseSlot(%s, %s, %s): %v", date, start, end, err)
	}
	return d, iv
}

func request(t *testing.T, room, date, start, end string) Request {
	d, iv := mustSlot(t, date, start, end)
	return Request{
		Date:        d,
		Interval:    iv,
		Room:        room,
		Name:        "Alice",
		Email:       "alice@x.com",
		Description: "Quarterly planning",
	}
}

var fixedNow = time.Date(2025, time.May, 30, 10, 0, 0, 0, ist)

func TestScenarioBookAndConflict(t *testing.T) {
	store := &storeStub{}
	s := newTestService(t, store, fixedNow)
	ctx := context.Background()

	receipt, err := s.Create(ctx, request(t, "HIMALAYA", "2025-06-01", "09:00", "09:30"))
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if receipt.Booking.ID != 1001 || receipt.Booking.Room != "HIMALAYA" {
		t.Errorf("unexpected booking %+v", receipt.Booking)
	}
	if !receipt.Booking.CreatedAt.Equal(fixedNow) {
		t.Errorf("created at = %s, want %s", receipt.Booking.CreatedAt, fixedNow)
	}

	_, upcoming := s.List(fixedNow)
	if len(upcoming) != 1 || upcoming[0].ID != 1001 {
		t.Fatalf("new booking should be upcoming, got %+v", upcoming)
	}

	_, err = s.Create(ctx, request(t, "HIMALAYA", "2025-06-01", "09:15", "09:45"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if store.appended != 1 {
		t.Errorf("conflicting request reached the store")
	}

	if _, err := s.Create(ctx, request(t, "ARAVALI", "2025-06-01", "09:15", "09:45")); err != nil {
		t.Fatalf("other room should be free: %v", err)
	}
}

func TestTouchingBoundaries(t *testing.T) {
	s := newTestService(t, &storeStub{}, fixedNow)
	ctx := context.Background()

	if _, err := s.Create(ctx, request(t, "HIMALAYA", "2025-06-01", "10:30", "11:00")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, request(t, "HIMALAYA", "2025-06-01", "10:00", "10:30")); err != nil {
		t.Errorf("touching slot rejected: %v", err)
	}
	if _, err := s.Create(ctx, request(t, "himalaya", "2025-06-01", "10:15", "10:45")); !errors.Is(err, ErrConflict) {
		t.Errorf("overlapping slot accepted, err = %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"bad email", func(r *Request) { r.Email = "not-an-email" }, "email"},
		{"empty email", func(r *Request) { r.Email = " " }, "email"},
		{"bad cc", func(r *Request) { r.CCEmails = []string{"bob@x.com", "carol"} }, "cc_emails[1]"},
		{"empty name", func(r *Request) { r.Name = "  " }, "name"},
		{"empty description", func(r *Request) { r.Description = "" }, "description"},
		{"unknown room", func(r *Request) { r.Room = "MATTERHORN" }, "room"},
		{"past date", func(r *Request) { r.Date = slot.Date{Year: 2025, Month: time.May, Day: 29} }, "date"},
		{"zero date", func(r *Request) { r.Date = slot.Date{} }, "date"},
		{"earlier today", func(r *Request) {
			r.Date = slot.DateOf(fixedNow)
			r.Interval = slot.Interval{Start: slot.NewTimeOfDay(9, 0), End: slot.NewTimeOfDay(9, 30)}
		}, "start_time"},
		{"exactly now", func(r *Request) {
			r.Date = slot.DateOf(fixedNow)
			r.Interval = slot.Interval{Start: slot.NewTimeOfDay(10, 0), End: slot.NewTimeOfDay(10, 30)}
		}, "start_time"},
		{"off grid start", func(r *Request) { r.Interval.Start = slot.NewTimeOfDay(9, 10) }, "start_time"},
		{"before open", func(r *Request) {
			r.Interval = slot.Interval{Start: slot.NewTimeOfDay(7, 45), End: slot.NewTimeOfDay(8, 30)}
		}, "start_time"},
		{"after close", func(r *Request) {
			r.Interval = slot.Interval{Start: slot.NewTimeOfDay(19, 45), End: slot.NewTimeOfDay(20, 15)}
		}, "end_time"},
		{"end before start", func(r *Request) {
			r.Interval = slot.Interval{Start: slot.NewTimeOfDay(10, 0), End: slot.NewTimeOfDay(9, 0)}
		}, "end_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &storeStub{}
			notifier := &notifierStub{name: "mail"}
			s := newTestService(t, store, fixedNow, notifier)

			req := request(t, "HIMALAYA", "2025-06-01", "09:00", "09:30")
			tt.mutate(&req)

			_, err := s.Create(context.Background(), req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q (%s)", verr.Field, tt.field, verr.Message)
			}
			if store.appended != 0 || len(notifier.confirmed) != 0 || s.index.Len() != 0 {
				t.Error("validation failure had side effects")
			}
		})
	}
}

func TestCreateLaterToday(t *testing.T) {
	s := newTestService(t, &storeStub{}, fixedNow)
	req := request(t, "EVEREST", "2025-05-30", "10:15", "11:00")
	if _, err := s.Create(context.Background(), req); err != nil {
		t.Fatalf("later today should be bookable: %v", err)
	}
}

func TestCreateTrimsAndNotifies(t *testing.T) {
	store := &storeStub{}
	mail := &notifierStub{name: "mail"}
	s := newTestService(t, store, fixedNow, mail)

	req := request(t, " kailash ", "2025-06-01", "09:00", "10:00")
	req.Name = "  Alice  "
	req.CCEmails = []string{" bob@x.com ", "", "carol@y.org"}

	receipt, err := s.Create(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b := receipt.Booking
	if b.Room != "KAILASH" || b.Name != "Alice" || !slices.Equal(b.CCEmails, []string{"bob@x.com", "carol@y.org"}) {
		t.Errorf("request was not normalised: %+v", b)
	}
	if len(receipt.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", receipt.Warnings)
	}
	if !slices.Equal(mail.confirmed, []int{b.ID}) {
		t.Errorf("confirmation not sent, got %v", mail.confirmed)
	}
}

func TestNotificationFailureIsSoft(t *testing.T) {
	store := &storeStub{}
	mail := &notifierStub{name: "mail", err: errors.New("smtp: connection refused")}
	calendar := &notifierStub{name: "caldav"}
	s := newTestService(t, store, fixedNow, mail, calendar)
	ctx := context.Background()

	receipt, err := s.Create(ctx, request(t, "TRISHUL", "2025-06-01", "09:00", "09:30"))
	if err != nil {
		t.Fatalf("notification failure must not fail the booking: %v", err)
	}
	if len(receipt.Warnings) != 1 || receipt.Warnings[0].Channel != "mail" {
		t.Fatalf("expected one mail warning, got %v", receipt.Warnings)
	}
	if !strings.Contains(receipt.Warnings[0].Error(), "connection refused") {
		t.Errorf("warning lost its cause: %v", receipt.Warnings[0])
	}
	if store.appended != 1 || len(calendar.confirmed) != 1 {
		t.Error("booking was not committed and announced on every channel")
	}

	receipt, err = s.Cancel(ctx, receipt.Booking.ID, "alice@x.com")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if len(receipt.Warnings) != 1 || len(store.bookings) != 0 {
		t.Errorf("cancel should commit and warn, warnings = %v", receipt.Warnings)
	}
}

func TestStoreAppendFailure(t *testing.T) {
	store := &storeStub{appendErr: errors.New("quota exceeded")}
	s := newTestService(t, store, fixedNow)

	_, err := s.Create(context.Background(), request(t, "HIMALAYA", "2025-06-01", "09:00", "09:30"))
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected store error, got %v", err)
	}
	if s.index.Len() != 0 || len(s.All()) != 0 {
		t.Error("failed append left state behind")
	}
}

func TestCancel(t *testing.T) {
	store := &storeStub{}
	mail := &notifierStub{name: "mail"}
	s := newTestService(t, store, fixedNow, mail)
	ctx := context.Background()

	receipt, err := s.Create(ctx, request(t, "HIMALAYA", "2025-06-01", "09:00", "09:30"))
	if err != nil {
		t.Fatal(err)
	}
	id := receipt.Booking.ID

	if _, err := s.Cancel(ctx, id, "mallory@x.com"); !errors.Is(err, ErrAuthMismatch) {
		t.Fatalf("expected ErrAuthMismatch, got %v", err)
	}
	if _, err := s.Get(id); err != nil {
		t.Fatal("booking vanished after a rejected cancel")
	}
	if _, err := s.Create(ctx, request(t, "HIMALAYA", "2025-06-01", "09:15", "09:45")); !errors.Is(err, ErrConflict) {
		t.Fatalf("booking should still block overlapping slots, got %v", err)
	}

	if _, err := s.Cancel(ctx, id, "  ALICE@X.COM "); err != nil {
		t.Fatalf("case-insensitive cancel failed: %v", err)
	}
	if !slices.Equal(store.deleted, []int{id}) || !slices.Equal(mail.cancelled, []int{id}) {
		t.Errorf("deleted = %v, cancelled = %v", store.deleted, mail.cancelled)
	}
	if !s.IsAvailable(receipt.Booking.Date, receipt.Booking.Interval(), "HIMALAYA") {
		t.Error("slot still blocked after cancel")
	}

	if _, err := s.Cancel(ctx, id, "alice@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second cancel should be ErrNotFound, got %v", err)
	}
	if len(store.deleted) != 1 {
		t.Error("second cancel reached the store")
	}
}

func TestCancelStoreFailureRestoresIndex(t *testing.T) {
	store := &storeStub{}
	s := newTestService(t, store, fixedNow)
	ctx := context.Background()

	receipt, err := s.Create(ctx, request(t, "HIMALAYA", "2025-06-01", "09:00", "09:30"))
	if err != nil {
		t.Fatal(err)
	}
	store.deleteErr = errors.New("sheet is read only")

	if _, err := s.Cancel(ctx, receipt.Booking.ID, "alice@x.com"); err == nil {
		t.Fatal("expected the store error")
	}
	if s.IsAvailable(receipt.Booking.Date, receipt.Booking.Interval(), "HIMALAYA") {
		t.Error("failed delete freed the slot")
	}
}

func TestListPartitions(t *testing.T) {
	day := slot.Date{Year: 2025, Month: time.May, Day: 30}
	at := func(id int, d slot.Date, h, m int) models.Booking {
		start := slot.NewTimeOfDay(h, m)
		return models.Booking{ID: id, Date: d, Start: start, End: start.Add(30 * time.Minute), Room: "HIMALAYA", Email: "a@x.com"}
	}
	store := &storeStub{bookings: []models.Booking{
		at(2000, slot.Date{Year: 2025, Month: time.June, Day: 2}, 9, 0),
		at(2001, day, 10, 0), // starts exactly now
		at(2002, day, 10, 15),
		at(2003, slot.Date{Year: 2025, Month: time.May, Day: 1}, 15, 0),
		at(2004, day, 9, 0),
	}}
	s := newTestService(t, store, fixedNow)

	past, upcoming := s.List(fixedNow)
	ids := func(bs []models.Booking) []int {
		var out []int
		for _, b := range bs {
			out = append(out, b.ID)
		}
		return out
	}
	if got := ids(past); !slices.Equal(got, []int{2003, 2004, 2001}) {
		t.Errorf("past = %v", got)
	}
	if got := ids(upcoming); !slices.Equal(got, []int{2002, 2000}) {
		t.Errorf("upcoming = %v", got)
	}
	if got := ids(s.Upcoming(fixedNow)); !slices.Equal(got, []int{2002, 2000}) {
		t.Errorf("Upcoming() = %v", got)
	}
}

func TestIDCollisionRetries(t *testing.T) {
	existing := models.Booking{
		ID: 1001, Date: slot.Date{Year: 2025, Month: time.June, Day: 3},
		Start: slot.NewTimeOfDay(9, 0), End: slot.NewTimeOfDay(10, 0),
		Room: "EVEREST", Email: "a@x.com",
	}
	store := &storeStub{bookings: []models.Booking{existing}}
	s := newTestService(t, store, fixedNow)

	receipt, err := s.Create(context.Background(), request(t, "HIMALAYA", "2025-06-01", "09:00", "09:30"))
	if err != nil {
		t.Fatal(err)
	}
	if receipt.Booking.ID != 1002 {
		t.Errorf("expected the colliding id to be skipped, got %d", receipt.Booking.ID)
	}
}

func TestIDSpaceExhausted(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &storeStub{bookings: []models.Booking{{
		ID: 1001, Date: slot.Date{Year: 2025, Month: time.June, Day: 3},
		Start: slot.NewTimeOfDay(9, 0), End: slot.NewTimeOfDay(10, 0), Room: "EVEREST", Email: "a@x.com",
	}}}
	s, err := New(context.Background(), logger, store, Options{
		Location: ist,
		Now:      func() time.Time { return fixedNow },
		NewID:    func() int { return 1001 },
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(context.Background(), request(t, "HIMALAYA", "2025-06-01", "09:00", "09:30")); !errors.Is(err, ErrNoFreeID) {
		t.Fatalf("expected ErrNoFreeID, got %v", err)
	}
	if store.appended != 0 {
		t.Error("store written without an id")
	}
}

func TestRandomIDRange(t *testing.T) {
	for range 1000 {
		if id := randomID(); id < minID || id > maxID {
			t.Fatalf("randomID() = %d out of range", id)
		}
	}
}

func TestAvailableRooms(t *testing.T) {
	s := newTestService(t, &storeStub{}, fixedNow)
	ctx := context.Background()
	if _, err := s.Create(ctx, request(t, "HIMALAYA", "2025-06-01", "09:00", "10:00")); err != nil {
		t.Fatal(err)
	}

	d, iv := mustSlot(t, "2025-06-01", "09:30", "10:30")
	free := s.AvailableRooms(d, iv)
	if len(free) != len(s.Rooms())-1 {
		t.Fatalf("expected every room but one, got %d", len(free))
	}
	for _, r := range free {
		if r.Name == "HIMALAYA" {
			t.Error("booked room listed as free")
		}
	}
}

func TestReload(t *testing.T) {
	store := &storeStub{}
	s := newTestService(t, store, fixedNow)

	b := models.Booking{
		ID: 3000, Date: slot.Date{Year: 2025, Month: time.June, Day: 1},
		Start: slot.NewTimeOfDay(9, 0), End: slot.NewTimeOfDay(10, 0), Room: "HIMALAYA", Email: "a@x.com",
	}
	store.bookings = []models.Booking{b}
	if err := s.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(s.All()) != 1 || s.index.Len() != 1 {
		t.Errorf("all = %d index = %d", len(s.All()), s.index.Len())
	}

	store.listErr = errors.New("unavailable")
	if err := s.Reload(context.Background()); err == nil {
		t.Error("expected reload error")
	}
}

func TestDuplicateIDRowsKeepTheirSlots(t *testing.T) {
	day := slot.Date{Year: 2025, Month: time.June, Day: 1}
	first := models.Booking{
		ID: 5000, Date: day, Start: slot.NewTimeOfDay(9, 0), End: slot.NewTimeOfDay(10, 0),
		Room: "HIMALAYA", Email: "a@x.com",
	}
	second := models.Booking{
		ID: 5000, Date: day, Start: slot.NewTimeOfDay(14, 0), End: slot.NewTimeOfDay(15, 0),
		Room: "EVEREST", Email: "b@x.com",
	}
	s := newTestService(t, &storeStub{bookings: []models.Booking{first, second}}, fixedNow)

	if s.index.Len() != 2 {
		t.Fatalf("index holds %d intervals, want 2", s.index.Len())
	}
	if _, err := s.Create(context.Background(), request(t, "EVEREST", "2025-06-01", "14:00", "15:00")); !errors.Is(err, ErrConflict) {
		t.Errorf("second row with a repeated id should block its slot, got %v", err)
	}
	if got, err := s.Get(5000); err != nil || got.Room != "HIMALAYA" {
		t.Errorf("Get(5000) = %+v, %v, want the first row", got, err)
	}
}

func TestStoredRoomLabelsBlockSlots(t *testing.T) {
	day := slot.Date{Year: 2025, Month: time.June, Day: 1}
	store := &storeStub{bookings: []models.Booking{
		{ID: 4000, Date: day, Start: slot.NewTimeOfDay(9, 0), End: slot.NewTimeOfDay(10, 0), Room: "HIMALAYA - Basement", Email: "a@x.com"},
		{ID: 4001, Date: day, Start: slot.NewTimeOfDay(9, 0), End: slot.NewTimeOfDay(10, 0), Room: "ARAVALI  - Ground Floor", Email: "a@x.com"},
		{ID: 4002, Date: day, Start: slot.NewTimeOfDay(9, 0), End: slot.NewTimeOfDay(10, 0), Room: "KANANACJUNGA - 2 Floor", Email: "a@x.com"},
	}}
	s := newTestService(t, store, fixedNow)

	for _, room := range []string{"HIMALAYA", "ARAVALI", "KANCHENJUNGA"} {
		t.Run(room, func(t *testing.T) {
			_, err := s.Create(context.Background(), request(t, room, "2025-06-01", "09:15", "09:45"))
			if !errors.Is(err, ErrConflict) {
				t.Errorf("expected a conflict with the stored label, got %v", err)
			}
		})
	}
	if b, _ := s.Get(4002); b.Room != "KANCHENJUNGA" {
		t.Errorf("stored room not resolved, got %q", b.Room)
	}
}

func TestCancelRejectsStartedBookings(t *testing.T) {
	store := &storeStub{bookings: []models.Booking{
		{
			ID: 4243, Date: slot.Date{Year: 2025, Month: time.May, Day: 29},
			Start: slot.NewTimeOfDay(9, 0), End: slot.NewTimeOfDay(10, 0), Room: "HIMALAYA", Email: "old@x.com",
		},
		{
			ID: 4244, Date: slot.DateOf(fixedNow),
			Start: slot.Clock(fixedNow), End: slot.Clock(fixedNow).Add(30 * time.Minute), Room: "EVEREST", Email: "old@x.com",
		},
	}}
	s := newTestService(t, store, fixedNow)

	for _, id := range []int{4243, 4244} {
		if _, err := s.Cancel(context.Background(), id, "old@x.com"); !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("Cancel(%d) = %v, want ErrAlreadyStarted", id, err)
		}
	}
	if len(store.deleted) != 0 || len(s.All()) != 2 {
		t.Error("started bookings were removed from the history")
	}
}

func TestValidationOrder(t *testing.T) {
	s := newTestService(t, &storeStub{}, fixedNow)

	req := Request{
		Date:        slot.Date{Year: 2025, Month: time.May, Day: 29},
		Interval:    slot.Interval{Start: slot.NewTimeOfDay(9, 10), End: slot.NewTimeOfDay(9, 40)},
		Room:        "MATTERHORN",
		Email:       "not-an-email",
		CCEmails:    []string{"carol"},
		Name:        "",
		Description: "",
	}
	steps := []struct {
		field string
		fix   func(*Request)
	}{
		{"date", func(r *Request) { r.Date = slot.Date{Year: 2025, Month: time.June, Day: 1} }},
		{"start_time", func(r *Request) { r.Interval.Start = slot.NewTimeOfDay(9, 0) }},
		{"room", func(r *Request) { r.Room = "HIMALAYA" }},
		{"email", func(r *Request) { r.Email = "alice@x.com" }},
		{"cc_emails[0]", func(r *Request) { r.CCEmails = nil }},
		{"name", func(r *Request) { r.Name = "Alice" }},
		{"description", func(r *Request) { r.Description = "Planning" }},
	}
	for _, step := range steps {
		_, err := s.Create(context.Background(), req)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != step.field {
			t.Fatalf("first failing field = %v, want %s", err, step.field)
		}
		step.fix(&req)
	}
	if _, err := s.Create(context.Background(), req); err != nil {
		t.Fatalf("fully corrected request failed: %v", err)
	}
}

func TestStartTimes(t *testing.T) {
	s := newTestService(t, &storeStub{}, fixedNow)

	tests := []struct {
		name  string
		date  slot.Date
		first string
		count int
	}{
		{"yesterday", slot.Date{Year: 2025, Month: time.May, Day: 29}, "", 0},
		{"today skips elapsed times", slot.DateOf(fixedNow), "10:15", 39},
		{"tomorrow has the full grid", slot.Date{Year: 2025, Month: time.May, Day: 31}, "08:00", 48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.StartTimes(tt.date)
			if len(got) != tt.count {
				t.Fatalf("got %d start times, want %d", len(got), tt.count)
			}
			if tt.count > 0 && got[0].Short() != tt.first {
				t.Errorf("first = %s, want %s", got[0].Short(), tt.first)
			}
		})
	}
}
