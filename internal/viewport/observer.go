// Package viewport answers "is element X near or within the viewport" for a
// page session. The browser reports element geometry; an Observation latches
// permanently to Triggered the first time its element intersects the
// viewport expanded by the observation margin.
//
// Observer is not safe for concurrent use. It belongs to one session event
// loop.
package viewport

import (
	"go.uber.org/zap"
)

// ElementHandle identifies a tracked DOM element, normally its id attribute.
type ElementHandle string

type State int

const (
	Unobserved State = iota
	Watching
	Triggered
)

func (s State) String() string {
	switch s {
	case Watching:
		return "watching"
	case Triggered:
		return "triggered"
	default:
		return "unobserved"
	}
}

// Rect is an element bounding box relative to the viewport's top-left corner,
// as returned by getBoundingClientRect.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Entry is one geometry report for one element.
type Entry struct {
	Handle   ElementHandle `json:"handle"`
	Rect     Rect          `json:"rect"`
	Viewport Size          `json:"viewport"`
}

// Intersects reports whether the rect overlaps the viewport grown by margin
// pixels on every side. A zero viewport width disables the horizontal test.
func (e Entry) Intersects(margin int) bool {
	m := float64(margin)
	if e.Rect.Bottom < -m || e.Rect.Top > e.Viewport.Height+m {
		return false
	}
	if e.Viewport.Width > 0 && (e.Rect.Right < -m || e.Rect.Left > e.Viewport.Width+m) {
		return false
	}
	return true
}

// Observation is the one-shot visibility latch of a single element.
type Observation struct {
	handle    ElementHandle
	margin    int
	state     State
	onVisible func()
	owner     *Observer
}

func (o *Observation) Handle() ElementHandle {
	return o.handle
}

func (o *Observation) State() State {
	return o.state
}

// Visible reports whether the latch has triggered. It never reverts.
func (o *Observation) Visible() bool {
	return o.state == Triggered
}

// Teardown detaches the observation from its observer. A watching
// observation returns to Unobserved and will never fire; a triggered one
// stays Triggered. Calling Teardown more than once is a no-op.
func (o *Observation) Teardown() {
	if o.owner != nil {
		o.owner.remove(o)
		o.owner = nil
	}
	if o.state == Watching {
		o.state = Unobserved
	}
}

func (o *Observation) deliver(e Entry) bool {
	if o.state != Watching || !e.Intersects(o.margin) {
		return false
	}

	o.state = Triggered
	if o.owner != nil {
		o.owner.remove(o)
		o.owner = nil
	}
	if o.onVisible != nil {
		o.onVisible()
	}
	return true
}

// WatchHook is told when an element gains its first observation (watch=true)
// and when its last observation goes away (watch=false). Sessions use it to
// start and stop the browser-side IntersectionObserver for that element.
type WatchHook func(handle ElementHandle, marginPx int, watch bool)

// Observer routes geometry reports to the observations watching each element.
type Observer struct {
	watches map[ElementHandle][]*Observation
	hook    WatchHook
	logger  *zap.Logger
}

func NewObserver(logger *zap.Logger) *Observer {
	return &Observer{
		watches: make(map[ElementHandle][]*Observation),
		logger:  logger,
	}
}

func (v *Observer) SetWatchHook(hook WatchHook) {
	v.hook = hook
}

// Observe starts watching handle. onVisible runs once, synchronously inside
// the Deliver call that first finds the element intersecting.
func (v *Observer) Observe(handle ElementHandle, marginPx int, onVisible func()) *Observation {
	if marginPx < 0 {
		marginPx = 0
	}

	o := &Observation{
		handle:    handle,
		margin:    marginPx,
		onVisible: onVisible,
	}
	if handle == "" {
		v.logger.Warn("Ignoring observation of empty element handle")
		return o
	}

	o.state = Watching
	o.owner = v
	first := len(v.watches[handle]) == 0
	v.watches[handle] = append(v.watches[handle], o)
	if first && v.hook != nil {
		v.hook(handle, marginPx, true)
	}

	v.logger.Debug("Observing element",
		zap.String("handle", string(handle)),
		zap.Int("margin_px", marginPx),
	)
	return o
}

// Deliver applies geometry reports and returns how many observations
// triggered. Reports for unwatched elements are ignored.
func (v *Observer) Deliver(entries ...Entry) int {
	triggered := 0
	for _, entry := range entries {
		watchers := v.watches[entry.Handle]
		if len(watchers) == 0 {
			continue
		}

		// deliver mutates v.watches through remove
		snapshot := make([]*Observation, len(watchers))
		copy(snapshot, watchers)

		for _, o := range snapshot {
			if o.deliver(entry) {
				triggered++
			}
		}
	}
	return triggered
}

// IsWatching reports whether any observation still waits on handle.
func (v *Observer) IsWatching(handle ElementHandle) bool {
	return len(v.watches[handle]) > 0
}

func (v *Observer) Watching() int {
	count := 0
	for _, list := range v.watches {
		count += len(list)
	}
	return count
}

// TeardownAll disposes every pending observation.
func (v *Observer) TeardownAll() {
	for handle, list := range v.watches {
		if v.hook != nil {
			v.hook(handle, 0, false)
		}
		for _, o := range list {
			o.owner = nil
			if o.state == Watching {
				o.state = Unobserved
			}
		}
	}
	v.watches = make(map[ElementHandle][]*Observation)
}

func (v *Observer) remove(o *Observation) {
	list := v.watches[o.handle]
	for i, candidate := range list {
		if candidate == o {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(v.watches, o.handle)
		if v.hook != nil {
			v.hook(o.handle, o.margin, false)
		}
		return
	}
	v.watches[o.handle] = list
}
