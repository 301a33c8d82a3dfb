package reveal

import (
	"github.com/kapu/noaa-fisheries-web-go/internal/viewport"
)

type Strategy string

const (
	// StrategyIntersection watches a sentinel element placed after the last
	// rendered item.
	StrategyIntersection Strategy = "intersection"
	// StrategyScrollPolling is the degraded mode for browsers without
	// IntersectionObserver: every scroll report is checked against the
	// position of the last rendered item.
	StrategyScrollPolling Strategy = "scroll-polling"
)

// SentinelTrigger loads the next batch when the sentinel element comes near
// the viewport. Observations are one-shot, so it re-observes the sentinel
// after every batch.
type SentinelTrigger struct {
	observer *viewport.Observer
	handle   viewport.ElementHandle
	margin   int
	current  *viewport.Observation
}

func NewSentinelTrigger(observer *viewport.Observer, handle viewport.ElementHandle, marginPx int) *SentinelTrigger {
	return &SentinelTrigger{
		observer: observer,
		handle:   handle,
		margin:   marginPx,
	}
}

func (t *SentinelTrigger) Arm(c *Controller) {
	if t.current != nil {
		t.current.Teardown()
	}
	t.current = t.observer.Observe(t.handle, t.margin, func() {
		c.LoadMore()
	})
}

func (t *SentinelTrigger) Disarm() {
	if t.current != nil {
		t.current.Teardown()
		t.current = nil
	}
}

// ScrollTrigger loads the next batch when the top of the last rendered item
// is within threshold pixels below the bottom of the viewport.
type ScrollTrigger struct {
	threshold  int
	controller *Controller
}

func NewScrollTrigger(thresholdPx int) *ScrollTrigger {
	return &ScrollTrigger{threshold: thresholdPx}
}

func (t *ScrollTrigger) Arm(c *Controller) {
	t.controller = c
}

func (t *ScrollTrigger) Disarm() {
	t.controller = nil
}

// OnScroll handles one scroll report and reports whether it started a load.
func (t *ScrollTrigger) OnScroll(lastItem viewport.Rect, vp viewport.Size) bool {
	c := t.controller
	if c == nil || c.State() != Idle || !c.HasMore() {
		return false
	}
	if lastItem.Top > vp.Height+float64(t.threshold) {
		return false
	}
	return c.LoadMore()
}
