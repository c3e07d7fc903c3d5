package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookingwidget/internal/database"
	"bookingwidget/internal/domain"
	"bookingwidget/internal/events"
	"bookingwidget/internal/metrics"
	"bookingwidget/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	store     domain.BookingStore
	eventBus  domain.EventPublisher
	validator *Validator
	catalog   models.Catalog
	logger    zerolog.Logger
}

func NewBookingService(store domain.BookingStore, eventBus domain.EventPublisher, catalog models.Catalog, strict bool, logger *zerolog.Logger) *BookingService {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "booking_service").Logger()
	}
	return &BookingService{
		store:     store,
		eventBus:  eventBus,
		validator: NewValidator(catalog, strict),
		catalog:   catalog,
		logger:    l,
	}
}

// CreateBooking validates input and persists it. Returns *ValidationError,
// database.ErrSlotTaken, or a wrapped store error.
func (s *BookingService) CreateBooking(ctx context.Context, input models.Booking) (*models.Booking, error) {
	booking, err := s.validator.Normalize(input)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				metrics.IncValidationFailure(f.Field)
			}
		}
		return nil, err
	}

	if err := s.store.CreateBooking(ctx, &booking); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncBookingConflict()
			s.logger.Info().Str("date", booking.Date).Str("time", booking.Time).Msg("slot already booked")
			return nil, err
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("date", booking.Date).
		Str("time", booking.Time).
		Str("service", booking.Service).
		Msg("booking created")

	s.publishEvent(events.EventBookingCreated, &booking)
	return &booking, nil
}

func (s *BookingService) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.store.ListBookings(ctx)
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// CheckAvailability reports whether (date, slot) is free.
func (s *BookingService) CheckAvailability(ctx context.Context, date, slot string) (bool, error) {
	normalized, err := s.validateSlotQuery(date, slot)
	if err != nil {
		return false, err
	}
	booked, err := s.store.IsSlotBooked(ctx, normalized, strings.TrimSpace(slot))
	if err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	return !booked, nil
}

// BookedSlots returns the booked times of a date and the canonical date string.
func (s *BookingService) BookedSlots(ctx context.Context, date string) (string, []string, error) {
	normalized, err := NormalizeDate(date)
	if err != nil {
		return "", nil, &ValidationError{Fields: []FieldError{{Field: FieldDate, Message: "Invalid date format"}}}
	}
	slots, err := s.store.BookedSlots(ctx, normalized)
	if err != nil {
		return "", nil, fmt.Errorf("booked slots: %w", err)
	}
	return normalized, slots, nil
}

func (s *BookingService) DeleteBooking(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteBooking(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			return err
		}
		return fmt.Errorf("delete booking: %w", err)
	}

	metrics.IncBookingDeleted()
	s.logger.Info().Int64("booking_id", id).Msg("booking deleted")
	s.publishEvent(events.EventBookingDeleted, deleted)
	return nil
}

// Catalog returns the services and time slots a customer can choose from.
func (s *BookingService) Catalog() models.Catalog {
	return s.catalog
}

func (s *BookingService) Ping(ctx context.Context) error {
	return s.store.PingContext(ctx)
}

func (s *BookingService) validateSlotQuery(date, slot string) (string, error) {
	var fields []FieldError
	normalized, err := NormalizeDate(date)
	if err != nil {
		fields = append(fields, FieldError{Field: FieldDate, Message: "Invalid date format"})
	}
	if !ValidTime(strings.TrimSpace(slot)) {
		fields = append(fields, FieldError{Field: FieldTime, Message: "Invalid time format"})
	}
	if len(fields) > 0 {
		return "", &ValidationError{Fields: fields}
	}
	return normalized, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil || booking == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:     booking.ID,
		FullName:      booking.FullName,
		ContactNumber: booking.ContactNumber,
		Email:         booking.Email,
		Service:       booking.Service,
		Date:          booking.Date,
		Time:          booking.Time,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
