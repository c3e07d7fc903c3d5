package domain

import (
	"context"
	"time"

	"bookingwidget/internal/models"
)

// BookingStore persists bookings and arbitrates slot conflicts.
// Implemented by database.DB (SQLite) and database.PostgresStore.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	IsSlotBooked(ctx context.Context, date, slot string) (bool, error)
	BookedSlots(ctx context.Context, date string) ([]string, error)
	DeleteBooking(ctx context.Context, id int64) (*models.Booking, error)
	PingContext(ctx context.Context) error
	Close() error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// SlotCache keeps the booked times of a date for a short while.
type SlotCache interface {
	GetBookedSlots(ctx context.Context, date string) (slots []string, found bool, err error)
	SetBookedSlots(ctx context.Context, date string, slots []string, ttl time.Duration) error
	Invalidate(ctx context.Context, date string) error
}
