package eventloop

import (
	"sort"
	"time"
)

// Manual is a Scheduler driven by the caller with virtual time. Nothing runs
// until Drain or Advance is called, and everything runs on the calling
// goroutine. It is used by tests of timer-driven components.
type Manual struct {
	start   time.Time
	elapsed time.Duration
	queue   []func()
	timers  []*manualTimer
	seq     int
	stopped bool
}

func NewManual() *Manual {
	return &Manual{start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *Manual) Post(fn func()) bool {
	if m.stopped || fn == nil {
		return false
	}
	m.queue = append(m.queue, fn)
	return true
}

func (m *Manual) After(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{due: m.elapsed + d, seq: m.seq, fn: fn}
	if m.stopped {
		t.done = true
		return t
	}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) Now() time.Time {
	return m.start.Add(m.elapsed)
}

// Elapsed is the virtual time since the scheduler was created.
func (m *Manual) Elapsed() time.Duration {
	return m.elapsed
}

// Drain runs queued callbacks, including ones they post, until the queue is
// empty. Timers are not advanced.
func (m *Manual) Drain() {
	for len(m.queue) > 0 && !m.stopped {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
	}
}

// Advance moves virtual time forward by d, firing due timers in order of
// deadline and creation.
func (m *Manual) Advance(d time.Duration) {
	target := m.elapsed + d
	for {
		m.Drain()
		if m.stopped {
			return
		}

		next := m.nextDue(target)
		if next == nil {
			break
		}
		m.elapsed = next.due
		next.done = true
		next.fn()
	}
	m.elapsed = target
	m.Drain()
}

// PendingTimers counts timers that have neither fired nor been stopped.
func (m *Manual) PendingTimers() int {
	count := 0
	for _, t := range m.timers {
		if !t.done {
			count++
		}
	}
	return count
}

// Stop drops queued callbacks and pending timers; later Post and After calls
// are no-ops.
func (m *Manual) Stop() {
	m.stopped = true
	m.queue = nil
	for _, t := range m.timers {
		t.done = true
	}
}

func (m *Manual) nextDue(limit time.Duration) *manualTimer {
	pending := m.timers[:0]
	for _, t := range m.timers {
		if !t.done {
			pending = append(pending, t)
		}
	}
	m.timers = pending

	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].due != m.timers[j].due {
			return m.timers[i].due < m.timers[j].due
		}
		return m.timers[i].seq < m.timers[j].seq
	})

	if len(m.timers) == 0 || m.timers[0].due > limit {
		return nil
	}
	return m.timers[0]
}

type manualTimer struct {
	due  time.Duration
	seq  int
	fn   func()
	done bool
}

func (t *manualTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	return true
}
