// Package reveal grows the rendered prefix of a long result list in batches.
package reveal

import (
	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/internal/util"
)

// Window is the currently rendered prefix of one list. The visible count
// never decreases.
type Window struct {
	items        []domain.FishRecord
	visibleCount int
}

func NewWindow(items []domain.FishRecord, initialCount int) *Window {
	return &Window{
		items:        items,
		visibleCount: util.Clamp(initialCount, 0, len(items)),
	}
}

func (w *Window) Items() []domain.FishRecord {
	return w.items
}

func (w *Window) VisibleItems() []domain.FishRecord {
	return w.items[:w.visibleCount]
}

func (w *Window) VisibleCount() int {
	return w.visibleCount
}

func (w *Window) Len() int {
	return len(w.items)
}

func (w *Window) HasMore() bool {
	return w.visibleCount < len(w.items)
}

// grow extends the window by up to n items and returns the newly visible
// index range [from, to).
func (w *Window) grow(n int) (from, to int) {
	from = w.visibleCount
	if n > 0 {
		w.visibleCount = util.Min(w.visibleCount+n, len(w.items))
	}
	return from, w.visibleCount
}
