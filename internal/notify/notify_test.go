package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"bookingwidget/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int
	sent     []tgbotapi.MessageConfig
	calls    int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{MessageID: f.calls}, nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestNotifier(sender Sender, chats []int64, retry RetryPolicy) (*TelegramNotifier, *[]time.Duration) {
	logger := zerolog.New(io.Discard)
	n := NewTelegramNotifier(sender, chats, retry, &logger)
	var delays []time.Duration
	n.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return n, &delays
}

var samplePayload = events.BookingEventPayload{
	BookingID:     7,
	FullName:      "Jane Doe",
	ContactNumber: "+1 555 123 4567",
	Email:         "jane@example.com",
	Service:       "Pet Grooming",
	Date:          "2025-06-01",
	Time:          "09:00",
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2}
	assert.Equal(t, time.Second, p.NextDelay(0))
	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 5*time.Second, p.NextDelay(4))

	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(1))
	assert.Equal(t, DefaultRetryPolicy, RetryPolicy{}.withDefaults())
}

func TestDeliverRetries(t *testing.T) {
	sender := &fakeSender{failures: 2}
	n, delays := newTestNotifier(sender, []int64{100}, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second, BackoffFactor: 2})

	err := n.deliver(context.Background(), Notice{ChatID: 100, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 3, sender.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(100), sender.sent[0].ChatID)
}

func TestDeliverGivesUp(t *testing.T) {
	sender := &fakeSender{failures: 10}
	n, _ := newTestNotifier(sender, []int64{100}, RetryPolicy{MaxRetries: 2})

	err := n.deliver(context.Background(), Notice{ChatID: 100, Text: "hi"})
	assert.Error(t, err)
	assert.Equal(t, 2, sender.calls)
}

func TestDeliverStopsOnCancel(t *testing.T) {
	sender := &fakeSender{failures: 10}
	logger := zerolog.New(io.Discard)
	n := NewTelegramNotifier(sender, nil, RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := n.deliver(ctx, Notice{ChatID: 1, Text: "hi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sender.calls)
}

func TestSubscribeFanOut(t *testing.T) {
	sender := &fakeSender{}
	n, _ := newTestNotifier(sender, []int64{1, 2}, RetryPolicy{})
	bus := events.NewEventBus()
	n.Subscribe(bus)

	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, samplePayload))
	require.Len(t, n.queue, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sender.sentCount() == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Contains(t, sender.sent[0].Text, "New booking #7")
	assert.Contains(t, sender.sent[1].Text, "2025-06-01 09:00")
}

func TestHandleEventBadPayload(t *testing.T) {
	n, _ := newTestNotifier(&fakeSender{}, []int64{1}, RetryPolicy{})
	err := n.handleEvent(&events.Event{Type: events.EventBookingCreated, Payload: []byte("{")})
	assert.Error(t, err)
	assert.Len(t, n.queue, 0)
}

func TestEnqueueFullQueue(t *testing.T) {
	n, _ := newTestNotifier(&fakeSender{}, nil, RetryPolicy{})
	for i := 0; i < queueSize; i++ {
		require.True(t, n.Enqueue(Notice{ChatID: 1}))
	}
	assert.False(t, n.Enqueue(Notice{ChatID: 1}))
}

func TestFormatBookingEvent(t *testing.T) {
	created := FormatBookingEvent(events.EventBookingCreated, samplePayload)
	assert.Contains(t, created, "New booking #7")
	assert.Contains(t, created, "Pet Grooming")
	assert.Contains(t, created, "jane@example.com")

	deleted := FormatBookingEvent(events.EventBookingDeleted, samplePayload)
	assert.Contains(t, deleted, "Booking cancelled #7")
}

func TestNewTelegramBotEmptyToken(t *testing.T) {
	_, err := NewTelegramBot("  ", false)
	assert.Error(t, err)
}
