package game

import (
	"sync"
	"time"
)

// PhaseClock is a single-active countdown. It ticks once per interval,
// reporting remaining seconds, and fires the done callback exactly once on
// reaching zero. Starting a new countdown cancels the previous one without
// firing its done callback, so stacked transitions cannot occur.
type PhaseClock struct {
	mu       sync.Mutex
	interval time.Duration
	cancel   chan struct{}
}

func NewPhaseClock() *PhaseClock {
	return &PhaseClock{interval: time.Second}
}

// NewPhaseClockWithInterval exists for tests that cannot afford real
// one-second ticks.
func NewPhaseClockWithInterval(interval time.Duration) *PhaseClock {
	return &PhaseClock{interval: interval}
}

// Start begins counting down from seconds. onTick receives the remaining
// count after each elapsed interval; onDone fires once at zero. A
// non-positive count fires onDone immediately. Both callbacks run on the
// clock goroutine.
func (pc *PhaseClock) Start(seconds int, onTick func(remaining int), onDone func()) {
	pc.mu.Lock()
	if pc.cancel != nil {
		close(pc.cancel)
	}
	cancel := make(chan struct{})
	pc.cancel = cancel
	pc.mu.Unlock()

	go func() {
		if seconds <= 0 {
			select {
			case <-cancel:
			default:
				onDone()
			}
			return
		}
		t := time.NewTicker(pc.interval)
		defer t.Stop()
		remaining := seconds
		for {
			select {
			case <-cancel:
				return
			case <-t.C:
				remaining--
				if onTick != nil {
					onTick(remaining)
				}
				if remaining > 0 {
					continue
				}
				select {
				case <-cancel:
				default:
					onDone()
				}
				return
			}
		}
	}()
}

// Stop cancels any active countdown. Idempotent.
func (pc *PhaseClock) Stop() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.cancel != nil {
		close(pc.cancel)
		pc.cancel = nil
	}
}
