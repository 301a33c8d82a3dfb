// Package eventloop runs callbacks one at a time on a single goroutine.
//
// Every component of a page session (reveal windows, viewport observations,
// the prefetch ledger) is only touched from inside loop callbacks, so none of
// them needs a mutex. Timers created with After deliver their callback back
// onto the loop instead of running it on the timer goroutine.
package eventloop

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Scheduler is the contract shared by Loop and Manual.
type Scheduler interface {
	// Post queues fn to run on the loop. It returns false once the loop has
	// stopped; fn is then dropped.
	Post(fn func()) bool
	// After runs fn on the loop once d has elapsed, unless the timer is
	// stopped first or the loop has stopped by then.
	After(d time.Duration, fn func()) Timer
	Now() time.Time
}

type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer; false means it already fired or was stopped.
	Stop() bool
}

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

type Loop struct {
	mu       sync.Mutex
	queue    []func()
	timers   map[*loopTimer]struct{}
	stopped  bool
	wake     chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Loop {
	return &Loop{
		timers: make(map[*loopTimer]struct{}),
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: logger,
	}
}

// Start launches the loop goroutine.
func (l *Loop) Start() {
	go l.run()
}

func (l *Loop) run() {
	defer close(l.doneCh)

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.wake:
			for {
				l.mu.Lock()
				if l.stopped || len(l.queue) == 0 {
					l.mu.Unlock()
					break
				}
				batch := l.queue
				l.queue = nil
				l.mu.Unlock()

				for _, fn := range batch {
					if l.isStopped() {
						return
					}
					l.invoke(fn)
				}
			}
		}
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Event loop callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

func (l *Loop) After(d time.Duration, fn func()) Timer {
	t := &loopTimer{loop: l}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		t.state.Store(timerStopped)
		return t
	}

	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			l.forget(t)
			if t.state.CompareAndSwap(timerPending, timerFired) {
				fn()
			}
		})
	})
	l.timers[t] = struct{}{}
	return t
}

func (l *Loop) Now() time.Time {
	return time.Now()
}

// Stop halts the loop and cancels every pending timer. Queued callbacks that
// have not started are dropped. Stop does not wait for the running callback,
// so it is safe to call from inside the loop; use Done to wait.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		timers := l.timers
		l.timers = make(map[*loopTimer]struct{})
		l.mu.Unlock()

		for t := range timers {
			t.Stop()
		}
		close(l.stopCh)
	})
}

func (l *Loop) Done() <-chan struct{} {
	return l.doneCh
}

func (l *Loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Loop) forget(t *loopTimer) {
	l.mu.Lock()
	delete(l.timers, t)
	l.mu.Unlock()
}

type loopTimer struct {
	loop  *Loop
	timer *time.Timer
	state atomic.Int32
}

func (t *loopTimer) Stop() bool {
	if t.timer != nil {
		t.timer.Stop()
	}
	stopped := t.state.CompareAndSwap(timerPending, timerStopped)
	if stopped && t.loop != nil {
		t.loop.forget(t)
	}
	return stopped
}
