package booking

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"roombook/internal/slot"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s looks like local@domain.tld with no whitespace or line breaks.
func ValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// contact holds the free-text fields of a request in the order they are checked.
type contact struct {
	Email       string   `json:"email" validate:"required,mailaddr"`
	CCEmails    []string `json:"cc_emails" validate:"dive,mailaddr"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
}

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("mailaddr", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
	return &requestValidator{validate: v}
}

func (r *requestValidator) contact(c contact) error {
	err := r.validate.Struct(c)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}

	first := errs[0]
	switch first.Tag() {
	case "required":
		return invalid(first.Field(), "%s is required", first.Field())
	case "mailaddr":
		return invalid(first.Field(), "%q is not a valid email address", first.Value())
	default:
		return invalid(first.Field(), "failed %s check", first.Tag())
	}
}

// ParseSlot parses the date and time fields of a booking form.
func ParseSlot(date, start, end string) (slot.Date, slot.Interval, error) {
	d, err := slot.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return slot.Date{}, slot.Interval{}, invalid("date", "date must be in YYYY-MM-DD form")
	}
	s, err := slot.ParseTimeOfDay(strings.TrimSpace(start))
	if err != nil {
		return slot.Date{}, slot.Interval{}, invalid("start_time", "start time must be in HH:MM form")
	}
	e, err := slot.ParseTimeOfDay(strings.TrimSpace(end))
	if err != nil {
		return slot.Date{}, slot.Interval{}, invalid("end_time", "end time must be in HH:MM form")
	}
	return d, slot.Interval{Start: s, End: e}, nil
}

// SplitEmails splits a comma separated address list, dropping empty entries.
func SplitEmails(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
