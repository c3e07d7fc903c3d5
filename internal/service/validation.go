package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"bookingwidget/internal/models"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,15}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	timePattern  = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

const (
	FieldFullName      = "fullName"
	FieldContactNumber = "contactNumber"
	FieldEmail         = "email"
	FieldService       = "service"
	FieldDate          = "date"
	FieldTime          = "time"
)

// FieldError is one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the failures.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Validator checks booking fields the way the store accepts them.
type Validator struct {
	catalog models.Catalog
	strict  bool
}

// NewValidator returns a validator. With strict set, service and time must
// belong to catalog.
func NewValidator(catalog models.Catalog, strict bool) *Validator {
	return &Validator{catalog: catalog, strict: strict}
}

// Normalize validates b and returns a copy with trimmed text and a canonical date.
func (v *Validator) Normalize(b models.Booking) (models.Booking, error) {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	out := models.Booking{
		FullName:      strings.TrimSpace(b.FullName),
		ContactNumber: b.ContactNumber,
		Email:         strings.TrimSpace(b.Email),
		Service:       strings.TrimSpace(b.Service),
		Time:          strings.TrimSpace(b.Time),
	}

	if out.FullName == "" {
		add(FieldFullName, "Full name is required")
	}
	if !phonePattern.MatchString(out.ContactNumber) {
		add(FieldContactNumber, "Invalid contact number")
	}
	if !emailPattern.MatchString(out.Email) {
		add(FieldEmail, "Invalid email address")
	}

	switch {
	case out.Service == "":
		add(FieldService, "Service is required")
	case v.strict && !v.catalog.HasService(out.Service):
		add(FieldService, "Unknown service")
	}

	date, err := NormalizeDate(b.Date)
	if err != nil {
		add(FieldDate, "Invalid date format")
	}
	out.Date = date

	switch {
	case !ValidTime(out.Time):
		add(FieldTime, "Invalid time format")
	case v.strict && !v.catalog.HasTimeSlot(out.Time):
		add(FieldTime, "Time is not a bookable slot")
	}

	if len(errs) > 0 {
		return models.Booking{}, &ValidationError{Fields: errs}
	}
	return out, nil
}

// NormalizeDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns YYYY-MM-DD.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t.Format(models.DateLayout), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return t.Format(models.DateLayout), nil
}

// ValidTime reports whether s is a wall-clock time in HH:MM form.
func ValidTime(s string) bool {
	if !timePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
