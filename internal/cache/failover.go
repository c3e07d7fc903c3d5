package cache

import (
	"context"
	"sync"
	"time"

	"bookingwidget/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSlotCache uses primary until it errors, then serves from fallback
// and retries primary once per recoveryInterval.
type FailoverSlotCache struct {
	primary  domain.SlotCache
	fallback domain.SlotCache
	logger   zerolog.Logger

	mu        sync.Mutex
	isDown    bool
	lastCheck time.Time
	now       func() time.Time
}

func NewFailoverSlotCache(primary, fallback domain.SlotCache, logger *zerolog.Logger) *FailoverSlotCache {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "slot_cache").Logger()
	}
	return &FailoverSlotCache{
		primary:  primary,
		fallback: fallback,
		logger:   l,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (c *FailoverSlotCache) usePrimary() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isDown {
		return true
	}
	// Retry primary once per recoveryInterval
	if c.now().Sub(c.lastCheck) > recoveryInterval {
		c.lastCheck = c.now()
		return true
	}
	return false
}

func (c *FailoverSlotCache) markDown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isDown {
		c.logger.Error().Err(err).Msg("Primary slot cache failed, falling back to memory")
	}
	c.isDown = true
	c.lastCheck = c.now()
}

func (c *FailoverSlotCache) markUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isDown {
		c.logger.Info().Msg("Primary slot cache recovered")
	}
	c.isDown = false
}

// Down reports whether calls are currently served by the fallback.
func (c *FailoverSlotCache) Down() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isDown
}

func (c *FailoverSlotCache) GetBookedSlots(ctx context.Context, date string) ([]string, bool, error) {
	if c.usePrimary() {
		slots, found, err := c.primary.GetBookedSlots(ctx, date)
		if err == nil {
			c.markUp()
			return slots, found, nil
		}
		c.markDown(err)
	}
	return c.fallback.GetBookedSlots(ctx, date)
}

func (c *FailoverSlotCache) SetBookedSlots(ctx context.Context, date string, slots []string, ttl time.Duration) error {
	if c.usePrimary() {
		err := c.primary.SetBookedSlots(ctx, date, slots, ttl)
		if err == nil {
			c.markUp()
			return nil
		}
		c.markDown(err)
	}
	return c.fallback.SetBookedSlots(ctx, date, slots, ttl)
}

// Invalidate drops the date from both layers.
func (c *FailoverSlotCache) Invalidate(ctx context.Context, date string) error {
	fbErr := c.fallback.Invalidate(ctx, date)
	if c.usePrimary() {
		err := c.primary.Invalidate(ctx, date)
		if err == nil {
			c.markUp()
			return fbErr
		}
		c.markDown(err)
	}
	return fbErr
}

var (
	_ domain.SlotCache = (*RedisSlotCache)(nil)
	_ domain.SlotCache = (*MemorySlotCache)(nil)
	_ domain.SlotCache = (*FailoverSlotCache)(nil)
)
