package widget

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"bookingwidget/internal/client"
	"bookingwidget/internal/models"

	"github.com/rs/zerolog"
)

const (
	FieldFullName      = "fullName"
	FieldContactNumber = "contactNumber"
	FieldEmail         = "email"
	FieldService       = "service"
	FieldDate          = "date"
	FieldTime          = "time"
)

const (
	MsgBookingCreated = "Booking created successfully! We will contact you soon."
	MsgCreateFailed   = "Failed to create booking. Please try again."
	MsgSlotTaken      = "This time slot is already booked. Please choose another time."
)

var (
	ErrFormInvalid  = errors.New("form has validation errors")
	ErrSubmitting   = errors.New("submission already in progress")
	ErrUnknownField = errors.New("unknown form field")
)

var (
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,15}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// BookingAPI is the part of the booking client the form drives.
type BookingAPI interface {
	CreateBooking(ctx context.Context, b models.Booking) (*models.Booking, error)
	CheckAvailability(ctx context.Context, date, slot string) (bool, error)
	BookedSlots(ctx context.Context, date string) ([]string, error)
}

// Form is the booking form model: field values, per-field errors, the time
// slots offered for the selected date and the submission state.
type Form struct {
	api      BookingAPI
	catalog  models.Catalog
	notifier *Notifier
	logger   zerolog.Logger

	mu         sync.Mutex
	values     models.Booking
	errors     map[string]string
	available  []string
	submitting bool
}

func NewForm(api BookingAPI, catalog models.Catalog, notifier *Notifier, logger *zerolog.Logger) *Form {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "booking_form").Logger()
	}
	if notifier == nil {
		notifier = NewNotifier(nil)
	}
	return &Form{
		api:       api,
		catalog:   catalog,
		notifier:  notifier,
		logger:    l,
		errors:    make(map[string]string),
		available: append([]string(nil), catalog.TimeSlots...),
	}
}

// SetField updates one field and clears its error. Changing the date
// refreshes the available time slots.
func (f *Form) SetField(ctx context.Context, field, value string) error {
	f.mu.Lock()
	switch field {
	case FieldFullName:
		f.values.FullName = value
	case FieldContactNumber:
		f.values.ContactNumber = value
	case FieldEmail:
		f.values.Email = value
	case FieldService:
		f.values.Service = value
	case FieldTime:
		f.values.Time = value
	case FieldDate:
		changed := f.values.Date != value
		f.values.Date = value
		delete(f.errors, field)
		f.mu.Unlock()
		if changed {
			f.RefreshAvailability(ctx)
		}
		return nil
	default:
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	delete(f.errors, field)
	f.mu.Unlock()
	return nil
}

// Values returns a copy of the current field values.
func (f *Form) Values() models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Errors returns a copy of the current field errors.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// AvailableSlots returns the time slots offered for the selected date.
func (f *Form) AvailableSlots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.available...)
}

func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Validate replaces the field errors with a fresh check and returns them.
func (f *Form) Validate() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = validateValues(f.values)
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

func validateValues(v models.Booking) map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(v.FullName) == "" {
		errs[FieldFullName] = "Full name is required"
	}

	switch {
	case strings.TrimSpace(v.ContactNumber) == "":
		errs[FieldContactNumber] = "Contact number is required"
	case !phonePattern.MatchString(v.ContactNumber):
		errs[FieldContactNumber] = "Please enter a valid contact number"
	}

	switch {
	case strings.TrimSpace(v.Email) == "":
		errs[FieldEmail] = "Email is required"
	case !emailPattern.MatchString(v.Email):
		errs[FieldEmail] = "Please enter a valid email address"
	}

	if v.Service == "" {
		errs[FieldService] = "Please select a service"
	}
	if v.Date == "" {
		errs[FieldDate] = "Please select a date"
	}
	if v.Time == "" {
		errs[FieldTime] = "Please select a time"
	}
	return errs
}

// RefreshAvailability recomputes the offered slots for the selected date.
// Lookup failures never hide a slot.
func (f *Form) RefreshAvailability(ctx context.Context) {
	f.mu.Lock()
	date := f.values.Date
	f.mu.Unlock()

	if date == "" {
		f.applyAvailability(date, append([]string(nil), f.catalog.TimeSlots...))
		return
	}

	booked, err := f.api.BookedSlots(ctx, date)
	switch {
	case err == nil:
		f.applyAvailability(date, f.catalog.AvailableSlots(booked))
	case batchUnsupported(err):
		f.logger.Debug().Err(err).Msg("booked slots endpoint unavailable, checking slots one by one")
		f.applyAvailability(date, f.checkEachSlot(ctx, date))
	default:
		f.logger.Warn().Err(err).Str("date", date).Msg("availability lookup failed, offering all slots")
		f.applyAvailability(date, append([]string(nil), f.catalog.TimeSlots...))
	}
}

func (f *Form) checkEachSlot(ctx context.Context, date string) []string {
	available := make([]string, 0, len(f.catalog.TimeSlots))
	for _, slot := range f.catalog.TimeSlots {
		ok, err := f.api.CheckAvailability(ctx, date, slot)
		if err != nil {
			f.logger.Debug().Err(err).Str("time", slot).Msg("availability check failed, assuming free")
			ok = true
		}
		if ok {
			available = append(available, slot)
		}
	}
	return available
}

// applyAvailability stores slots unless the date changed meanwhile.
func (f *Form) applyAvailability(date string, slots []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values.Date != date {
		return
	}
	f.available = slots
	if f.values.Time != "" && !contains(slots, f.values.Time) {
		f.values.Time = ""
	}
}

func batchUnsupported(err error) bool {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusMethodNotAllowed
}

// Submit validates and sends the booking. On success the form is reset and a
// success notification raised; on failure an error notification is raised and
// the values are kept.
func (f *Form) Submit(ctx context.Context) (*models.Booking, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.errors = validateValues(f.values)
	if len(f.errors) > 0 {
		f.mu.Unlock()
		return nil, ErrFormInvalid
	}
	f.submitting = true
	input := f.values
	f.mu.Unlock()

	created, err := f.api.CreateBooking(ctx, input)

	f.mu.Lock()
	f.submitting = false
	if err == nil {
		f.values = models.Booking{}
		f.errors = make(map[string]string)
		f.available = append([]string(nil), f.catalog.TimeSlots...)
	}
	f.mu.Unlock()

	if err != nil {
		f.logger.Warn().Err(err).Msg("booking submission failed")
		f.notifier.Error(SubmitErrorMessage(err))
		return nil, err
	}

	f.notifier.Success(MsgBookingCreated)
	return created, nil
}

// SubmitErrorMessage turns a create failure into customer-facing text.
func SubmitErrorMessage(err error) string {
	if errors.Is(err, client.ErrSlotTaken) {
		return MsgSlotTaken
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest && len(apiErr.Details) > 0 {
		parts := make([]string, 0, len(apiErr.Details))
		for _, d := range apiErr.Details {
			parts = append(parts, d.Message)
		}
		return strings.Join(parts, ". ")
	}
	return MsgCreateFailed
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
