package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"bookingwidget/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRedisSlotCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	c := NewRedisSlotCache(client)
	ctx := context.Background()

	require.NoError(t, Ping(ctx, client))

	t.Run("Miss", func(t *testing.T) {
		slots, found, err := c.GetBookedSlots(ctx, "2025-06-01")
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, slots)
	})

	t.Run("SetGet", func(t *testing.T) {
		require.NoError(t, c.SetBookedSlots(ctx, "2025-06-01", []string{"09:00", "10:30"}, time.Minute))

		slots, found, err := c.GetBookedSlots(ctx, "2025-06-01")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []string{"09:00", "10:30"}, slots)
		assert.True(t, s.Exists("booked_slots:2025-06-01"))
	})

	t.Run("EmptyListIsAHit", func(t *testing.T) {
		require.NoError(t, c.SetBookedSlots(ctx, "2025-06-02", nil, time.Minute))

		slots, found, err := c.GetBookedSlots(ctx, "2025-06-02")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, slots)
	})

	t.Run("TTL", func(t *testing.T) {
		require.NoError(t, c.SetBookedSlots(ctx, "2025-06-03", []string{"09:00"}, 30*time.Second))
		s.FastForward(31 * time.Second)

		_, found, err := c.GetBookedSlots(ctx, "2025-06-03")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, c.SetBookedSlots(ctx, "2025-06-04", []string{"09:00"}, time.Minute))
		require.NoError(t, c.Invalidate(ctx, "2025-06-04"))

		_, found, err := c.GetBookedSlots(ctx, "2025-06-04")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Corrupt", func(t *testing.T) {
		require.NoError(t, s.Set("booked_slots:2025-06-05", "{not json"))
		_, _, err := c.GetBookedSlots(ctx, "2025-06-05")
		assert.Error(t, err)
	})

}

func TestRedisSlotCache_ServerDown(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	addr := s.Addr()
	s.Close()

	client := NewRedisClient(config.RedisConfig{Address: addr})
	defer client.Close()

	_, _, err = NewRedisSlotCache(client).GetBookedSlots(context.Background(), "2025-06-01")
	assert.Error(t, err)
	assert.Error(t, Ping(context.Background(), client))
}

func TestRedisSlotCache_NilClient(t *testing.T) {
	c := NewRedisSlotCache(nil)
	ctx := context.Background()

	_, _, err := c.GetBookedSlots(ctx, "2025-06-01")
	assert.Error(t, err)
	assert.Error(t, c.SetBookedSlots(ctx, "2025-06-01", nil, time.Second))
	assert.Error(t, c.Invalidate(ctx, "2025-06-01"))
}

func TestMemorySlotCache(t *testing.T) {
	c := NewMemorySlotCache()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, found, err := c.GetBookedSlots(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.False(t, found)

	in := []string{"09:00"}
	require.NoError(t, c.SetBookedSlots(ctx, "2025-06-01", in, 30*time.Second))
	in[0] = "mutated"

	slots, found, err := c.GetBookedSlots(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"09:00"}, slots)

	now = now.Add(31 * time.Second)
	_, found, _ = c.GetBookedSlots(ctx, "2025-06-01")
	assert.False(t, found)

	require.NoError(t, c.SetBookedSlots(ctx, "2025-06-02", []string{}, 0))
	require.NoError(t, c.Invalidate(ctx, "2025-06-02"))
	_, found, _ = c.GetBookedSlots(ctx, "2025-06-02")
	assert.False(t, found)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetBookedSlots(ctx context.Context, date string) ([]string, bool, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]string), args.Bool(1), args.Error(2)
}

func (m *mockCache) SetBookedSlots(ctx context.Context, date string, slots []string, ttl time.Duration) error {
	return m.Called(ctx, date, slots, ttl).Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context, date string) error {
	return m.Called(ctx, date).Error(0)
}

func TestFailoverSlotCache(t *testing.T) {
	primary := new(mockCache)
	fallback := new(mockCache)
	logger := zerolog.New(io.Discard)
	c := NewFailoverSlotCache(primary, fallback, &logger)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("GetBookedSlots", ctx, "d1").Return([]string{"09:00"}, true, nil).Once()

		slots, found, err := c.GetBookedSlots(ctx, "d1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []string{"09:00"}, slots)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("GetBookedSlots", ctx, "d2").Return(nil, false, errors.New("fail")).Once()
		fallback.On("GetBookedSlots", ctx, "d2").Return([]string{"10:00"}, true, nil).Once()

		slots, _, err := c.GetBookedSlots(ctx, "d2")
		assert.NoError(t, err)
		assert.Equal(t, []string{"10:00"}, slots)
		assert.True(t, c.Down())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallback", func(t *testing.T) {
		fallback.On("SetBookedSlots", ctx, "d3", []string{"11:00"}, time.Minute).Return(nil).Once()

		assert.NoError(t, c.SetBookedSlots(ctx, "d3", []string{"11:00"}, time.Minute))
		primary.AssertNotCalled(t, "SetBookedSlots", ctx, "d3", mock.Anything, mock.Anything)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		primary.On("GetBookedSlots", ctx, "d4").Return([]string{}, true, nil).Once()

		_, found, err := c.GetBookedSlots(ctx, "d4")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.False(t, c.Down())
	})

	t.Run("InvalidateBothLayers", func(t *testing.T) {
		fallback.On("Invalidate", ctx, "d5").Return(nil).Once()
		primary.On("Invalidate", ctx, "d5").Return(nil).Once()

		assert.NoError(t, c.Invalidate(ctx, "d5"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
