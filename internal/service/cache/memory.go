package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
)

// MemoryRecordCache keeps the record list in process. It is used when Redis
// is disabled and in tests.
type MemoryRecordCache struct {
	mu        sync.RWMutex
	records   []domain.FishRecord
	expiresAt time.Time
	present   bool
	now       func() time.Time
}

func NewMemoryRecordCache() *MemoryRecordCache {
	return &MemoryRecordCache{now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (c *MemoryRecordCache) WithClock(now func() time.Time) *MemoryRecordCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

func (c *MemoryRecordCache) GetRecords(_ context.Context) ([]domain.FishRecord, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.present {
		return nil, false, nil
	}
	if !c.expiresAt.IsZero() && !c.now().Before(c.expiresAt) {
		return nil, false, nil
	}
	return c.records, true, nil
}

// SetRecords stores records until ttl elapses. A zero ttl never expires.
func (c *MemoryRecordCache) SetRecords(_ context.Context, records []domain.FishRecord, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = records
	c.present = true
	c.expiresAt = time.Time{}
	if ttl > 0 {
		c.expiresAt = c.now().Add(ttl)
	}
	return nil
}

func (c *MemoryRecordCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = nil
	c.present = false
	c.expiresAt = time.Time{}
	return nil
}

func (c *MemoryRecordCache) Close() error {
	return nil
}
