package audio

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrClipUnavailable marks a clip that could not be loaded or decoded.
// Callers treat it as "skip, do not abort the sequence".
var ErrClipUnavailable = errors.New("clip unavailable")

// ceilingTimeout bounds the worst-case stall from a clip whose
// end-of-playback signal never fires. Longest expected clip plus margin.
const ceilingTimeout = 10 * time.Second

// Player is the playback backend behind the sequencer. Start interrupts any
// current clip, begins the named one, and returns a channel closed when
// playback ends. Load failures surface as ErrClipUnavailable.
type Player interface {
	Start(path string) (done <-chan struct{}, err error)
	Stop()
	ClearCache()
}

// Sequencer plays single clips and ordered clip lists with a fixed
// inter-clip delay. A missing or errored clip never surfaces to the
// learner: it is logged and treated as an instantly completed step, so a
// training session cannot deadlock on a broken asset.
type Sequencer struct {
	player  Player
	ceiling time.Duration
	log     zerolog.Logger
}

func NewSequencer(p Player, logger zerolog.Logger) *Sequencer {
	return &Sequencer{player: p, ceiling: ceilingTimeout, log: logger}
}

// PlayOne plays a single clip and returns when playback ends, when the clip
// is unavailable, when the ceiling timeout elapses, or when ctx is done.
func (s *Sequencer) PlayOne(ctx context.Context, path string) {
	done, err := s.player.Start(path)
	if err != nil {
		s.log.Warn().Err(err).Str("clip", path).Msg("clip unavailable, skipping")
		return
	}
	select {
	case <-done:
	case <-time.After(s.ceiling):
		s.log.Warn().Str("clip", path).Msg("playback never signalled end, forcing resolve")
		s.player.Stop()
	case <-ctx.Done():
		s.player.Stop()
	}
}

// PlaySequence plays each clip in order with interClipDelay between them,
// returning after the last clip completes (or is skipped). Any in-flight
// playback is cleared first so a stale call cannot bleed into the sequence.
func (s *Sequencer) PlaySequence(ctx context.Context, paths []string, interClipDelay time.Duration) {
	s.player.Stop()
	for i, path := range paths {
		if ctx.Err() != nil {
			return
		}
		s.PlayOne(ctx, path)
		if interClipDelay > 0 && i < len(paths)-1 {
			select {
			case <-time.After(interClipDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Stop halts current playback and resets position. Idempotent.
func (s *Sequencer) Stop() {
	s.player.Stop()
}

// ClearCache drops all cached clip handles so no stale clip can play after
// a context switch.
func (s *Sequencer) ClearCache() {
	s.player.ClearCache()
}
