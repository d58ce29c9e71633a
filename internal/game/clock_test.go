package game

import (
	"sync"
	"testing"
	"time"
)

func TestClockCountsDownToDone(t *testing.T) {
	pc := NewPhaseClockWithInterval(2 * time.Millisecond)

	var mu sync.Mutex
	var ticks []int
	done := make(chan struct{})
	pc.Start(3,
		func(remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		},
		func() { close(done) },
	)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("countdown never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 3 {
		t.Fatalf("expected 3 ticks, got %v", ticks)
	}
	for i, want := range []int{2, 1, 0} {
		if ticks[i] != want {
			t.Fatalf("expected ticks [2 1 0], got %v", ticks)
		}
	}
}

func TestClockZeroSecondsFiresImmediately(t *testing.T) {
	pc := NewPhaseClockWithInterval(2 * time.Millisecond)
	done := make(chan struct{})
	pc.Start(0, nil, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero-second countdown must complete immediately")
	}
}

func TestClockRestartCancelsPrevious(t *testing.T) {
	pc := NewPhaseClockWithInterval(2 * time.Millisecond)

	firstDone := make(chan struct{})
	pc.Start(1000, nil, func() { close(firstDone) })

	secondDone := make(chan struct{})
	pc.Start(1, nil, func() { close(secondDone) })

	select {
	case <-secondDone:
	case <-time.After(time.Second):
		t.Fatal("second countdown never completed")
	}

	select {
	case <-firstDone:
		t.Fatal("cancelled countdown must not fire its completion")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestClockStopPreventsDone(t *testing.T) {
	pc := NewPhaseClockWithInterval(2 * time.Millisecond)
	done := make(chan struct{})
	pc.Start(2, nil, func() { close(done) })
	pc.Stop()

	select {
	case <-done:
		t.Fatal("stopped countdown must not fire its completion")
	case <-time.After(20 * time.Millisecond):
	}

	// Stop is idempotent
	pc.Stop()
}

func TestClockRestartableAfterStop(t *testing.T) {
	pc := NewPhaseClockWithInterval(2 * time.Millisecond)
	pc.Start(100, nil, func() {})
	pc.Stop()

	done := make(chan struct{})
	pc.Start(1, nil, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("clock must be restartable after Stop")
	}
}
