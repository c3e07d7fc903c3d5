package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookingwidget/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const queueSize = 128

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notice is one message for one staff chat.
type Notice struct {
	ChatID int64
	Text   string
}

// TelegramNotifier sends booking events to staff chats in the background.
type TelegramNotifier struct {
	sender  Sender
	chatIDs []int64
	retry   RetryPolicy
	queue   chan Notice
	logger  zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewTelegramBot opens a bot API session.
func NewTelegramBot(token string, debug bool) (*tgbotapi.BotAPI, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

func NewTelegramNotifier(sender Sender, chatIDs []int64, retry RetryPolicy, logger *zerolog.Logger) *TelegramNotifier {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "telegram_notifier").Logger()
	}
	return &TelegramNotifier{
		sender:  sender,
		chatIDs: append([]int64(nil), chatIDs...),
		retry:   retry.withDefaults(),
		queue:   make(chan Notice, queueSize),
		logger:  l,
		sleep:   sleepContext,
	}
}

// Subscribe registers the notifier for booking events on bus.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.handleEvent)
	bus.Subscribe(events.EventBookingDeleted, n.handleEvent)
}

func (n *TelegramNotifier) handleEvent(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	text := FormatBookingEvent(event.Type, payload)
	for _, chatID := range n.chatIDs {
		n.Enqueue(Notice{ChatID: chatID, Text: text})
	}
	return nil
}

// Enqueue schedules a notice. It never blocks; a full queue drops the notice.
func (n *TelegramNotifier) Enqueue(notice Notice) bool {
	select {
	case n.queue <- notice:
		return true
	default:
		n.logger.Warn().Int64("chat_id", notice.ChatID).Msg("notification queue full, notice dropped")
		return false
	}
}

// Start delivers queued notices until ctx is done.
func (n *TelegramNotifier) Start(ctx context.Context) {
	n.logger.Info().Int("chats", len(n.chatIDs)).Msg("telegram notifier started")
	defer n.logger.Info().Msg("telegram notifier stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case notice := <-n.queue:
			if err := n.deliver(ctx, notice); err != nil {
				n.logger.Error().Err(err).Int64("chat_id", notice.ChatID).Msg("notification failed")
			}
		}
	}
}

// deliver sends notice, retrying with backoff up to MaxRetries attempts.
func (n *TelegramNotifier) deliver(ctx context.Context, notice Notice) error {
	var lastErr error
	for attempt := 1; attempt <= n.retry.MaxRetries; attempt++ {
		msg := tgbotapi.NewMessage(notice.ChatID, notice.Text)
		_, err := n.sender.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == n.retry.MaxRetries {
			break
		}
		delay := n.retry.NextDelay(attempt)
		n.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("next_delay", delay).Msg("telegram send failed, retrying")
		if err := n.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("send after %d attempts: %w", n.retry.MaxRetries, lastErr)
}

// FormatBookingEvent renders a staff message for a booking event.
func FormatBookingEvent(eventType string, p events.BookingEventPayload) string {
	var b strings.Builder
	switch eventType {
	case events.EventBookingCreated:
		b.WriteString("🆕 New booking")
	case events.EventBookingDeleted:
		b.WriteString("❌ Booking cancelled")
	default:
		b.WriteString("Booking update")
	}
	fmt.Fprintf(&b, " #%d\n", p.BookingID)
	fmt.Fprintf(&b, "📅 %s %s\n", p.Date, p.Time)
	fmt.Fprintf(&b, "🐾 %s\n", p.Service)
	fmt.Fprintf(&b, "👤 %s\n", p.FullName)
	fmt.Fprintf(&b, "📞 %s\n", p.ContactNumber)
	fmt.Fprintf(&b, "✉️ %s", p.Email)
	return b.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
