package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookingwidget/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const pgUniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS bookings (
	id BIGSERIAL PRIMARY KEY,
	full_name TEXT NOT NULL,
	contact_number TEXT NOT NULL,
	email TEXT NOT NULL,
	service TEXT NOT NULL,
	date DATE NOT NULL,
	time TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT bookings_slot_unique UNIQUE (date, time)
);
`

const pgBookingColumns = `id, full_name, contact_number, email, service, to_char(date, 'YYYY-MM-DD'), time, created_at`

// PostgresStore is the pgx-backed booking store.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore connects to dsn and applies the schema.
func NewPostgresStore(ctx context.Context, dsn string, logger *zerolog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "postgres").Logger()
	}
	l.Info().Msg("postgres store initialized")

	return &PostgresStore{pool: pool, logger: l}, nil
}

func (s *PostgresStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	date, err := time.Parse(models.DateLayout, booking.Date)
	if err != nil {
		return fmt.Errorf("failed to parse booking date %s: %w", booking.Date, err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO bookings (full_name, contact_number, email, service, date, time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, booking.FullName, booking.ContactNumber, booking.Email, booking.Service, date, booking.Time,
	).Scan(&booking.ID, &booking.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := scanBooking(s.pool.QueryRow(ctx, `SELECT `+pgBookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgBookingColumns+` FROM bookings ORDER BY date ASC, time ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (s *PostgresStore) IsSlotBooked(ctx context.Context, date, slot string) (bool, error) {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return false, fmt.Errorf("failed to parse date %s: %w", date, err)
	}
	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE date = $1 AND time = $2)`, d, slot).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) BookedSlots(ctx context.Context, date string) ([]string, error) {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date %s: %w", date, err)
	}
	rows, err := s.pool.Query(ctx, `SELECT time FROM bookings WHERE date = $1 ORDER BY time ASC`, d)
	if err != nil {
		return nil, fmt.Errorf("failed to get booked slots: %w", err)
	}
	defer rows.Close()

	slots := make([]string, 0)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *PostgresStore) DeleteBooking(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := scanBooking(s.pool.QueryRow(ctx, `DELETE FROM bookings WHERE id = $1 RETURNING `+pgBookingColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) PingContext(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
