package models

import "time"

// DateLayout is the wire and storage format of Booking.Date.
const DateLayout = "2006-01-02"

type Booking struct {
	ID            int64     `json:"id"`
	FullName      string    `json:"fullName"`
	ContactNumber string    `json:"contactNumber"`
	Email         string    `json:"email"`
	Service       string    `json:"service"`
	Date          string    `json:"date"` // YYYY-MM-DD
	Time          string    `json:"time"` // HH:MM
	CreatedAt     time.Time `json:"createdAt"`
}

// Slot is the unit of booking exclusivity.
type Slot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (b *Booking) Slot() Slot {
	return Slot{Date: b.Date, Time: b.Time}
}
