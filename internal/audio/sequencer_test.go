package audio

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakePlayer struct {
	mu      sync.Mutex
	started []string
	stops   int
	clears  int
	missing map[string]bool
	hung    map[string]bool // clips whose end-of-playback never fires
}

func (p *fakePlayer) Start(path string) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.missing[path] {
		return nil, fmt.Errorf("%w: %s", ErrClipUnavailable, path)
	}
	p.started = append(p.started, path)
	done := make(chan struct{})
	if !p.hung[path] {
		close(done)
	}
	return done, nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	p.stops++
	p.mu.Unlock()
}

func (p *fakePlayer) ClearCache() {
	p.mu.Lock()
	p.clears++
	p.mu.Unlock()
}

func (p *fakePlayer) startedClips() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.started...)
}

func TestPlayOneMissingClipResolves(t *testing.T) {
	p := &fakePlayer{missing: map[string]bool{"/audio/item-ghost.mp3": true}}
	s := NewSequencer(p, zerolog.Nop())

	start := time.Now()
	s.PlayOne(context.Background(), "/audio/item-ghost.mp3")
	if time.Since(start) > time.Second {
		t.Fatal("missing clip must resolve immediately, not block")
	}
	if len(p.startedClips()) != 0 {
		t.Fatal("missing clip must not start playback")
	}
}

func TestPlayOneCeilingForcesResolve(t *testing.T) {
	p := &fakePlayer{hung: map[string]bool{"/audio/item-stuck.mp3": true}}
	s := NewSequencer(p, zerolog.Nop())
	s.ceiling = 5 * time.Millisecond

	start := time.Now()
	s.PlayOne(context.Background(), "/audio/item-stuck.mp3")
	if time.Since(start) > time.Second {
		t.Fatal("ceiling timeout must bound a hung clip")
	}
	p.mu.Lock()
	stops := p.stops
	p.mu.Unlock()
	if stops == 0 {
		t.Fatal("a timed-out clip must be stopped")
	}
}

func TestPlaySequenceOrderAndSkips(t *testing.T) {
	p := &fakePlayer{missing: map[string]bool{"/audio/item-ghost.mp3": true}}
	s := NewSequencer(p, zerolog.Nop())

	s.PlaySequence(context.Background(), []string{
		"/audio/item-apple.mp3",
		"/audio/item-ghost.mp3",
		"/audio/item-ball.mp3",
	}, time.Millisecond)

	got := p.startedClips()
	want := []string{"/audio/item-apple.mp3", "/audio/item-ball.mp3"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence order broken: %v", got)
		}
	}
}

func TestPlaySequenceClearsInFlightPlayback(t *testing.T) {
	p := &fakePlayer{}
	s := NewSequencer(p, zerolog.Nop())

	s.PlaySequence(context.Background(), []string{"/audio/item-apple.mp3"}, 0)
	p.mu.Lock()
	stops := p.stops
	p.mu.Unlock()
	if stops == 0 {
		t.Fatal("a new sequence must clear in-flight playback first")
	}
}

func TestPlaySequenceStopsOnCancelledContext(t *testing.T) {
	p := &fakePlayer{}
	s := NewSequencer(p, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.PlaySequence(ctx, []string{"/audio/item-apple.mp3", "/audio/item-ball.mp3"}, time.Millisecond)
	if len(p.startedClips()) != 0 {
		t.Fatal("cancelled context must abort the sequence")
	}
}

func TestNopPlayerCompletesInstantly(t *testing.T) {
	s := NewSequencer(NopPlayer{}, zerolog.Nop())
	start := time.Now()
	s.PlaySequence(context.Background(), []string{"/audio/item-apple.mp3", "/audio/item-ball.mp3"}, 0)
	if time.Since(start) > time.Second {
		t.Fatal("silent playback must not block")
	}
}
