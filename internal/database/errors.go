package database

import "errors"

var (
	// ErrSlotTaken is returned when the (date, time) unique constraint rejects an insert.
	ErrSlotTaken = errors.New("time slot already booked")
	// ErrBookingNotFound is returned when no row matches the requested id.
	ErrBookingNotFound = errors.New("booking not found")
)
