package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	gomail "github.com/wneessen/go-mail"

	"roombook/internal/ical"
	"roombook/internal/models"
)

const defaultFromName = "Meeting Room Booking System"

// Config holds the SMTP account used to send notifications.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
}

// Sender delivers composed messages. *gomail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Mailer emails booking confirmations and cancellations with a calendar invite attached.
type Mailer struct {
	cfg    Config
	logger *slog.Logger
	loc    *time.Location
	sender Sender
	now    func() time.Time
}

// NewMailer returns a Mailer that authenticates with SMTP PLAIN and upgrades to STARTTLS when offered.
func NewMailer(logger *slog.Logger, cfg Config, loc *time.Location) (*Mailer, error) {
	if cfg.Host == "" || cfg.Username == "" {
		return nil, fmt.Errorf("smtp host and username are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}

	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &Mailer{cfg: cfg, logger: logger, loc: loc, sender: client, now: time.Now}, nil
}

// WithSender replaces the transport. Used by tests.
func (m *Mailer) WithSender(s Sender) *Mailer {
	m.sender = s
	return m
}

func (m *Mailer) Name() string { return "mail" }

func (m *Mailer) BookingConfirmed(ctx context.Context, b models.Booking) error {
	subject := fmt.Sprintf("Booking Confirmation: (ID-%d)", b.ID)
	return m.deliver(ctx, b, subject, confirmationPage(data(b)), ical.MethodRequest)
}

func (m *Mailer) BookingCancelled(ctx context.Context, b models.Booking) error {
	subject := fmt.Sprintf("Cancellation Confirmation: (ID-%d)", b.ID)
	return m.deliver(ctx, b, subject, cancellationPage(data(b)), ical.MethodCancel)
}

func (m *Mailer) deliver(ctx context.Context, b models.Booking, subject string, p page, method ical.Method) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.compose(b, subject, p, method)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %q: %w", subject, err)
	}

	m.logger.Info("Sent booking email.", "bookingID", b.ID, "subject", subject, "recipients", 1+len(b.CCEmails))
	return nil
}

// compose builds an HTML message with the booking's invite.ics attached.
func (m *Mailer) compose(b models.Booking, subject string, p page, method ical.Method) (*gomail.Msg, error) {
	invite, err := ical.Encode(b, m.loc, m.cfg.Username, method)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.Username); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(b.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	if len(b.CCEmails) > 0 {
		if err := msg.Cc(b.CCEmails...); err != nil {
			return nil, fmt.Errorf("invalid cc address: %w", err)
		}
	}
	msg.Subject(subject)
	msg.SetDateWithValue(m.now())

	if err := msg.SetBodyHTMLTemplate(body, p); err != nil {
		return nil, fmt.Errorf("failed to render email body: %w", err)
	}
	contentType := gomail.ContentType(fmt.Sprintf("text/calendar; method=%s", method))
	if err := msg.AttachReader("invite.ics", bytes.NewReader(invite), gomail.WithFileContentType(contentType)); err != nil {
		return nil, fmt.Errorf("failed to attach invite: %w", err)
	}
	return msg, nil
}

func data(b models.Booking) templateData {
	return templateData{
		Name:        b.Name,
		BookingID:   b.ID,
		Description: b.Description,
		Date:        b.Date.String(),
		Room:        b.Room,
		Start:       b.Start.String(),
		End:         b.End.String(),
	}
}
