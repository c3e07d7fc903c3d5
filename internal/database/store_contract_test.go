package database

import (
	"context"
	"sync"
	"testing"

	"bookingwidget/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookingStore is the behaviour shared by the SQLite and Postgres stores.
type bookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	IsSlotBooked(ctx context.Context, date, slot string) (bool, error)
	BookedSlots(ctx context.Context, date string) ([]string, error)
	DeleteBooking(ctx context.Context, id int64) (*models.Booking, error)
}

func runStoreContract(t *testing.T, store bookingStore) {
	ctx := context.Background()

	t.Run("CreateAssignsUniqueIDs", func(t *testing.T) {
		a := newTestBooking("2030-01-01", "09:00")
		b := newTestBooking("2030-01-01", "09:30")
		require.NoError(t, store.CreateBooking(ctx, a))
		require.NoError(t, store.CreateBooking(ctx, b))

		assert.NotZero(t, a.ID)
		assert.NotZero(t, b.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.False(t, a.CreatedAt.IsZero())

		got, err := store.GetBooking(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.FullName, got.FullName)
		assert.Equal(t, a.ContactNumber, got.ContactNumber)
		assert.Equal(t, a.Email, got.Email)
		assert.Equal(t, a.Service, got.Service)
		assert.Equal(t, "2030-01-01", got.Date)
		assert.Equal(t, "09:00", got.Time)
	})

	t.Run("DuplicateSlotRejected", func(t *testing.T) {
		before, err := store.ListBookings(ctx)
		require.NoError(t, err)

		dup := newTestBooking("2030-01-01", "09:00")
		dup.FullName = "John Roe"
		err = store.CreateBooking(ctx, dup)
		assert.ErrorIs(t, err, ErrSlotTaken)
		assert.Zero(t, dup.ID)

		after, err := store.ListBookings(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("SlotAvailability", func(t *testing.T) {
		booked, err := store.IsSlotBooked(ctx, "2030-01-01", "09:00")
		require.NoError(t, err)
		assert.True(t, booked)

		booked, err = store.IsSlotBooked(ctx, "2030-01-01", "10:00")
		require.NoError(t, err)
		assert.False(t, booked)

		booked, err = store.IsSlotBooked(ctx, "2030-01-02", "09:00")
		require.NoError(t, err)
		assert.False(t, booked)
	})

	t.Run("BookedSlots", func(t *testing.T) {
		require.NoError(t, store.CreateBooking(ctx, newTestBooking("2030-01-01", "08:30")))

		slots, err := store.BookedSlots(ctx, "2030-01-01")
		require.NoError(t, err)
		assert.Equal(t, []string{"08:30", "09:00", "09:30"}, slots)

		slots, err = store.BookedSlots(ctx, "2031-05-05")
		require.NoError(t, err)
		assert.Empty(t, slots)
		assert.NotNil(t, slots)
	})

	t.Run("ListOrderedByDateTime", func(t *testing.T) {
		require.NoError(t, store.CreateBooking(ctx, newTestBooking("2029-12-31", "17:30")))
		require.NoError(t, store.CreateBooking(ctx, newTestBooking("2030-01-02", "09:00")))

		list, err := store.ListBookings(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, list)
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			ordered := prev.Date < cur.Date || (prev.Date == cur.Date && prev.Time < cur.Time)
			assert.True(t, ordered, "bookings out of order at %d: %s %s then %s %s", i, prev.Date, prev.Time, cur.Date, cur.Time)
		}
		assert.Equal(t, "2029-12-31", list[0].Date)
	})

	t.Run("DeleteRemovesExactlyOne", func(t *testing.T) {
		target := newTestBooking("2030-02-01", "11:00")
		require.NoError(t, store.CreateBooking(ctx, target))

		before, err := store.ListBookings(ctx)
		require.NoError(t, err)

		deleted, err := store.DeleteBooking(ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, target.ID, deleted.ID)
		assert.Equal(t, "11:00", deleted.Time)

		after, err := store.ListBookings(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before)-1)

		_, err = store.GetBooking(ctx, target.ID)
		assert.ErrorIs(t, err, ErrBookingNotFound)

		// Slot is free again.
		require.NoError(t, store.CreateBooking(ctx, newTestBooking("2030-02-01", "11:00")))
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		before, err := store.ListBookings(ctx)
		require.NoError(t, err)

		_, err = store.DeleteBooking(ctx, 987654321)
		assert.ErrorIs(t, err, ErrBookingNotFound)

		after, err := store.ListBookings(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("ConcurrentCreateSameSlot", func(t *testing.T) {
		const numGoroutines = 10
		var wg sync.WaitGroup
		results := make(chan error, numGoroutines)

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- store.CreateBooking(ctx, newTestBooking("2030-03-03", "13:00"))
			}()
		}
		wg.Wait()
		close(results)

		successCount, conflictCount := 0, 0
		for err := range results {
			switch {
			case err == nil:
				successCount++
			case assert.ErrorIs(t, err, ErrSlotTaken):
				conflictCount++
			}
		}

		assert.Equal(t, 1, successCount, "exactly one create may win the slot")
		assert.Equal(t, numGoroutines-1, conflictCount)

		slots, err := store.BookedSlots(ctx, "2030-03-03")
		require.NoError(t, err)
		assert.Equal(t, []string{"13:00"}, slots)
	})
}
