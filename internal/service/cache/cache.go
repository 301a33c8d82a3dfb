// Package cache shares the raw upstream record list between render passes.
package cache

import (
	"context"
	"time"

	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
)

const recordsKey = "noaa:fish:records"

// RecordCache stores the last successful upstream payload. A miss is
// reported as ok=false with a nil error.
type RecordCache interface {
	GetRecords(ctx context.Context) (records []domain.FishRecord, ok bool, err error)
	SetRecords(ctx context.Context, records []domain.FishRecord, ttl time.Duration) error
	Invalidate(ctx context.Context) error
	Close() error
}
