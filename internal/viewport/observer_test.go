package viewport

import (
	"testing"

	"go.uber.org/zap"
)

func entryAt(handle ElementHandle, top float64) Entry {
	return Entry{
		Handle:   handle,
		Rect:     Rect{Top: top, Bottom: top + 300, Left: 0, Right: 300},
		Viewport: Size{Width: 1024, Height: 800},
	}
}

func TestObservationFiresExactlyOnce(t *testing.T) {
	observer := NewObserver(zap.NewNop())

	fired := 0
	obs := observer.Observe("card-1", 100, func() { fired++ })
	if obs.State() != Watching {
		t.Fatalf("expected watching, got %s", obs.State())
	}

	observer.Deliver(entryAt("card-1", 2000))
	if fired != 0 || obs.Visible() {
		t.Fatalf("expected off-screen element not to trigger")
	}

	observer.Deliver(entryAt("card-1", 400))
	observer.Deliver(entryAt("card-1", 2000))
	observer.Deliver(entryAt("card-1", 100))

	if fired != 1 {
		t.Fatalf("expected exactly one notification, got %d", fired)
	}
	if obs.State() != Triggered {
		t.Fatalf("expected triggered, got %s", obs.State())
	}
	if observer.IsWatching("card-1") {
		t.Fatalf("expected watch to be torn down after trigger")
	}
}

func TestObservationMarginAllowsEarlyTrigger(t *testing.T) {
	observer := NewObserver(zap.NewNop())

	fired := false
	observer.Observe("card-2", 100, func() { fired = true })

	// 50px below the fold: inside the 100px margin
	observer.Deliver(entryAt("card-2", 850))
	if !fired {
		t.Fatalf("expected margin to trigger before strict visibility")
	}

	strict := false
	observer.Observe("card-3", 0, func() { strict = true })
	observer.Deliver(entryAt("card-3", 850))
	if strict {
		t.Fatalf("expected zero margin to require strict intersection")
	}
}

func TestTeardownIsIdempotentAndPreventsTrigger(t *testing.T) {
	observer := NewObserver(zap.NewNop())

	fired := false
	obs := observer.Observe("card-4", 100, func() { fired = true })
	obs.Teardown()
	obs.Teardown()

	observer.Deliver(entryAt("card-4", 0))
	if fired {
		t.Fatalf("torn-down observation must not fire")
	}
	if obs.State() != Unobserved {
		t.Fatalf("expected unobserved after teardown, got %s", obs.State())
	}
	if observer.Watching() != 0 {
		t.Fatalf("expected no watches left, got %d", observer.Watching())
	}
}

func TestIndependentObservationsOfSameElement(t *testing.T) {
	observer := NewObserver(zap.NewNop())

	var calls []string
	first := observer.Observe("sentinel", 0, func() { calls = append(calls, "first") })
	observer.Observe("sentinel", 0, func() { calls = append(calls, "second") })
	first.Teardown()

	if n := observer.Deliver(entryAt("sentinel", 10)); n != 1 {
		t.Fatalf("expected one trigger, got %d", n)
	}
	if len(calls) != 1 || calls[0] != "second" {
		t.Fatalf("unexpected calls: %v", calls)
	}
}

func TestTeardownAll(t *testing.T) {
	observer := NewObserver(zap.NewNop())
	a := observer.Observe("a", 0, nil)
	b := observer.Observe("b", 0, nil)

	observer.TeardownAll()

	if a.State() != Unobserved || b.State() != Unobserved {
		t.Fatalf("expected all observations unobserved")
	}
	if observer.Deliver(entryAt("a", 0), entryAt("b", 0)) != 0 {
		t.Fatalf("expected no triggers after TeardownAll")
	}
}

func TestEntryIntersectsIgnoresZeroWidthViewport(t *testing.T) {
	e := Entry{Rect: Rect{Top: 10, Bottom: 20, Left: 5000, Right: 5100}, Viewport: Size{Height: 800}}
	if !e.Intersects(0) {
		t.Fatalf("expected horizontal test to be skipped without viewport width")
	}
}

func TestWatchHookTracksFirstAndLastObservation(t *testing.T) {
	observer := NewObserver(zap.NewNop())

	var events []string
	observer.SetWatchHook(func(handle ElementHandle, _ int, watch bool) {
		if watch {
			events = append(events, "watch:"+string(handle))
		} else {
			events = append(events, "release:"+string(handle))
		}
	})

	first := observer.Observe("card-9", 0, nil)
	second := observer.Observe("card-9", 0, nil)
	first.Teardown()
	if len(events) != 1 {
		t.Fatalf("expected only the initial watch event, got %v", events)
	}

	observer.Deliver(entryAt("card-9", 0))
	if second.State() != Triggered {
		t.Fatalf("expected remaining observation to trigger")
	}
	if len(events) != 2 || events[1] != "release:card-9" {
		t.Fatalf("expected release after last observation, got %v", events)
	}
}
