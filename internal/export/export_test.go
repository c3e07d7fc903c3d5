package export

import (
	"bytes"
	"testing"
	"time"

	"bookingwidget/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteBookings(t *testing.T) {
	bookings := []*models.Booking{
		{ID: 1, FullName: "Jane Doe", ContactNumber: "+1 555 123 4567", Email: "jane@example.com",
			Service: "Pet Grooming", Date: "2025-06-01", Time: "09:00", CreatedAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)},
		{ID: 2, FullName: "John Roe", ContactNumber: "5551234567", Email: "john@example.com",
			Service: "Pet Bathing", Date: "2025-06-01", Time: "09:30"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, []string{"1", "2025-06-01", "09:00", "Pet Grooming", "Jane Doe", "+1 555 123 4567", "jane@example.com", "2025-05-01 10:00:00"}, rows[1])
	assert.Equal(t, "John Roe", rows[2][4])
}

func TestWriteBookingsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
