package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	slots     []string
	expiresAt time.Time
}

// MemorySlotCache is the in-process SlotCache used when Redis is not configured
// or unreachable.
type MemorySlotCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemorySlotCache() *MemorySlotCache {
	return &MemorySlotCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemorySlotCache) GetBookedSlots(_ context.Context, date string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[date]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		delete(c.entries, date)
		return nil, false, nil
	}
	return append([]string{}, entry.slots...), true, nil
}

func (c *MemorySlotCache) SetBookedSlots(_ context.Context, date string, slots []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryEntry{slots: append([]string{}, slots...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[date] = entry
	return nil
}

func (c *MemorySlotCache) Invalidate(_ context.Context, date string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, date)
	return nil
}
