package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sinbadgame/internal/audio"
)

// ContentProvider supplies the ordered question list and the reveal-window
// tables. Unknown (level, stage) pairs fail with ErrContentNotFound.
type ContentProvider interface {
	Questions(level Level, stage int) ([]Question, error)
	TimingTable(mode TimingMode) []int
}

// ResultSink persists per-question results and session completion. The
// controller treats both calls as fire-and-forget: failures are logged and
// never alter phase, score, or navigation.
type ResultSink interface {
	RecordResult(ctx context.Context, sessionID string, r Result) error
	CompleteSession(ctx context.Context, sessionID string, durationSeconds int) error
}

// Sequencer plays clips for the listening and feedback phases. All play
// calls block until playback ends, the clip turns out to be unavailable,
// or a ceiling timeout expires; they never return errors to the game flow.
type Sequencer interface {
	PlayOne(ctx context.Context, path string)
	PlaySequence(ctx context.Context, paths []string, interClipDelay time.Duration)
	Stop()
	ClearCache()
}

var encouragements = []string{"great-job", "amazing", "fantastic", "wonderful"}

// Controller drives one learner's session through
// Loading → Instructions → Listening → Waiting → Selecting → Feedback,
// looping per question, then Completed. One controller per session; never
// shared across sessions.
//
// Timers and audio resolve asynchronously, so every phase-advancing
// continuation captures the transition epoch and is dropped if the
// controller has moved on by the time it fires.
type Controller struct {
	cfg     SessionConfig
	content ContentProvider
	sink    ResultSink
	seq     Sequencer
	timings Timings
	clock   *PhaseClock
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	phase        Phase
	epoch        uint64
	questions    []Question
	questionIx   int
	revealWindow int
	grid         []string
	selected     []string
	selectedSet  map[string]struct{}
	results      []Result
	score        int
	remaining    int
	startedAt    time.Time
	closed       bool

	onChange   func(Snapshot)
	onComplete func(Snapshot)
}

func NewController(cfg SessionConfig, content ContentProvider, sink ResultSink, seq Sequencer, logger zerolog.Logger) *Controller {
	if cfg.WaitTimer < 0 {
		cfg.WaitTimer = 0
	}
	if cfg.WaitTimer > 15 {
		cfg.WaitTimer = 15
	}
	if cfg.TimingMode == "" {
		cfg.TimingMode = TimingMedium
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := DefaultTimings()
	return &Controller{
		cfg:     cfg,
		content: content,
		sink:    sink,
		seq:     seq,
		timings: t,
		clock:   NewPhaseClockWithInterval(t.ClockInterval),
		log:     logger.With().Str("session", cfg.SessionID).Logger(),
		ctx:     ctx,
		cancel:  cancel,
		phase:   PhaseLoading,
	}
}

// SetTimings overrides the flow pauses. Call before Start.
func (c *Controller) SetTimings(t Timings) {
	c.timings = t
	c.clock = NewPhaseClockWithInterval(t.ClockInterval)
}

// OnChange registers a callback invoked with a fresh snapshot after every
// observable state change. Call before Start.
func (c *Controller) OnChange(fn func(Snapshot)) { c.onChange = fn }

// OnComplete registers a callback invoked once, CompletionDelay after the
// session reaches Completed. Call before Start.
func (c *Controller) OnComplete(fn func(Snapshot)) { c.onComplete = fn }

// Start resolves session content and begins the first question. An unknown
// (level, stage) pair is fatal: the error is returned and the session never
// leaves Loading.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.closed || c.phase != PhaseLoading {
		c.mu.Unlock()
		return ErrInvalidPhase
	}
	c.mu.Unlock()

	questions, err := c.content.Questions(c.cfg.Level, c.cfg.Stage)
	if err != nil {
		return fmt.Errorf("resolve questions for level %s stage %d: %w", c.cfg.Level, c.cfg.Stage, err)
	}
	if len(questions) == 0 {
		return fmt.Errorf("level %s stage %d has no questions: %w", c.cfg.Level, c.cfg.Stage, ErrContentNotFound)
	}
	reveal := revealWindowFor(c.content.TimingTable(c.cfg.TimingMode), c.cfg.Stage)

	c.mu.Lock()
	c.questions = questions
	c.revealWindow = reveal
	c.startedAt = time.Now()
	c.log.Info().Str("level", string(c.cfg.Level)).Int("stage", c.cfg.Stage).
		Int("questions", len(questions)).Int("revealWindow", reveal).Msg("session loaded")
	c.enterInstructionsLocked()
	c.mu.Unlock()
	c.notify()
	return nil
}

// revealWindowFor indexes the timing table by stage, clamping to the last
// entry when the stage exceeds the table.
func revealWindowFor(table []int, stage int) int {
	if len(table) == 0 {
		return 30
	}
	ix := stage - 1
	if ix < 0 {
		ix = 0
	}
	if ix >= len(table) {
		ix = len(table) - 1
	}
	return table[ix]
}

// advance applies a phase transition from an asynchronous continuation.
// Stale callbacks (the epoch moved, the phase changed, or the controller
// closed) are dropped without effect.
func (c *Controller) advance(epoch uint64, from Phase, enter func()) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch || c.phase != from {
		c.mu.Unlock()
		return
	}
	enter()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) enterInstructionsLocked() {
	c.phase = PhaseInstructions
	c.epoch++
	epoch := c.epoch
	first := c.questionIx == 0
	go func() {
		if first {
			// welcome framing plays once per session, not per trial
			c.seq.PlaySequence(c.ctx, []string{
				audio.InstructionClipPath("welcome"),
				audio.InstructionClipPath("watch-carefully"),
			}, c.timings.InterClipDelay)
		} else if !c.sleep(c.timings.NextQuestionPause) {
			return
		}
		c.advance(epoch, PhaseInstructions, c.enterListeningLocked)
	}()
}

func (c *Controller) enterListeningLocked() {
	c.phase = PhaseListening
	c.epoch++
	epoch := c.epoch
	q := c.questions[c.questionIx]
	paths := make([]string, len(q.RequiredItems))
	for i, item := range q.RequiredItems {
		paths[i] = audio.ItemClipPath(item)
	}
	go func() {
		c.seq.PlaySequence(c.ctx, paths, c.timings.InterClipDelay)
		c.advance(epoch, PhaseListening, c.enterWaitingLocked)
	}()
}

func (c *Controller) enterWaitingLocked() {
	c.phase = PhaseWaiting
	c.epoch++
	epoch := c.epoch
	c.remaining = c.cfg.WaitTimer
	// no stale clip may bleed into the quiet window or the next question
	c.seq.Stop()
	c.seq.ClearCache()
	c.clock.Start(c.cfg.WaitTimer,
		func(remaining int) { c.tick(epoch, remaining) },
		func() { c.advance(epoch, PhaseWaiting, c.enterSelectingLocked) },
	)
}

func (c *Controller) enterSelectingLocked() {
	c.phase = PhaseSelecting
	c.epoch++
	epoch := c.epoch
	q := c.questions[c.questionIx]

	// shuffle once per question; the grid stays fixed for the whole
	// selection window so item positions never move mid-interaction
	grid := make([]string, 0, len(q.RequiredItems)+len(q.Distractors))
	grid = append(grid, q.RequiredItems...)
	grid = append(grid, q.Distractors...)
	rand.Shuffle(len(grid), func(i, j int) { grid[i], grid[j] = grid[j], grid[i] })
	c.grid = grid
	c.selected = nil
	c.selectedSet = make(map[string]struct{})

	c.remaining = c.revealWindow
	c.clock.Start(c.revealWindow,
		func(remaining int) { c.tick(epoch, remaining) },
		func() { c.revealTimeout(epoch) },
	)
}

// revealTimeout fires when the reveal window elapses. A non-empty selection
// auto-submits; an empty one leaves the phase in Selecting and waits for
// the learner, since submitting an untouched grid as a wrong answer tells
// us nothing about recall.
func (c *Controller) revealTimeout(epoch uint64) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch || c.phase != PhaseSelecting {
		c.mu.Unlock()
		return
	}
	c.remaining = 0
	if len(c.selected) == 0 {
		c.log.Info().Int("question", c.questionIx+1).Msg("reveal window elapsed with empty selection, holding phase")
		c.mu.Unlock()
		c.notify()
		return
	}
	c.submitLocked()
	c.mu.Unlock()
	c.notify()
}

// ToggleItem flips one grid item in or out of the selection. Valid only
// during Selecting and only for items on the current grid.
func (c *Controller) ToggleItem(name string) error {
	c.mu.Lock()
	if c.closed || c.phase != PhaseSelecting {
		c.mu.Unlock()
		return ErrInvalidPhase
	}
	onGrid := false
	for _, item := range c.grid {
		if item == name {
			onGrid = true
			break
		}
	}
	if !onGrid {
		c.mu.Unlock()
		return ErrUnknownItem
	}
	if _, picked := c.selectedSet[name]; picked {
		delete(c.selectedSet, name)
		for i, item := range c.selected {
			if item == name {
				c.selected = append(c.selected[:i], c.selected[i+1:]...)
				break
			}
		}
	} else {
		c.selectedSet[name] = struct{}{}
		c.selected = append(c.selected, name)
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// Submit scores the current selection. Rejected unless the selection count
// equals the question's required-item count.
func (c *Controller) Submit() error {
	c.mu.Lock()
	if c.closed || c.phase != PhaseSelecting {
		c.mu.Unlock()
		return ErrInvalidPhase
	}
	if len(c.selected) != len(c.questions[c.questionIx].RequiredItems) {
		c.mu.Unlock()
		return ErrSelectionIncomplete
	}
	c.submitLocked()
	c.mu.Unlock()
	c.notify()
	return nil
}

// submitLocked scores the selection and moves to Feedback. Caller holds the
// lock and has verified phase == Selecting.
func (c *Controller) submitLocked() {
	q := c.questions[c.questionIx]
	verdict := Evaluate(c.selected, q.RequiredItems)
	res := Result{
		QuestionNumber:    c.questionIx + 1,
		RequiredItems:     append([]string(nil), q.RequiredItems...),
		SelectedItems:     append([]string(nil), c.selected...),
		IsCorrect:         verdict.Correct,
		CorrectSelections: verdict.CorrectSelections,
		TotalRequired:     verdict.TotalRequired,
	}
	c.results = append(c.results, res)
	if verdict.Correct {
		c.score++
	}
	c.clock.Stop()
	c.phase = PhaseFeedback
	c.epoch++
	epoch := c.epoch
	c.remaining = 0
	c.log.Info().Int("question", res.QuestionNumber).Bool("correct", res.IsCorrect).
		Int("score", c.score).Msg("answer submitted")

	// persistence never blocks or reverses the phase transition
	go func() {
		if err := c.sink.RecordResult(c.ctx, c.cfg.SessionID, res); err != nil {
			c.log.Error().Err(err).Int("question", res.QuestionNumber).Msg("record result failed")
		}
	}()

	// feedback audio runs independently of the timed advance
	go func() {
		if verdict.Correct {
			c.seq.PlaySequence(c.ctx, []string{
				audio.InstructionClipPath("correct"),
				audio.EncouragementClipPath(encouragements[(res.QuestionNumber-1)%len(encouragements)]),
			}, c.timings.InterClipDelay)
		} else {
			c.seq.PlayOne(c.ctx, audio.InstructionClipPath("incorrect"))
		}
	}()

	last := c.questionIx == len(c.questions)-1
	go func() {
		if !c.sleep(c.timings.FeedbackPause) {
			return
		}
		if last {
			c.advance(epoch, PhaseFeedback, c.enterCompletedLocked)
		} else {
			c.advance(epoch, PhaseFeedback, c.nextQuestionLocked)
		}
	}()
}

func (c *Controller) nextQuestionLocked() {
	// fully reset audio so the next Listening phase cannot replay stale clips
	c.seq.Stop()
	c.seq.ClearCache()
	c.questionIx++
	c.grid = nil
	c.selected = nil
	c.selectedSet = nil
	c.enterInstructionsLocked()
}

func (c *Controller) enterCompletedLocked() {
	c.phase = PhaseCompleted
	c.epoch++
	c.clock.Stop()
	c.remaining = 0
	duration := int(time.Since(c.startedAt).Seconds())
	c.log.Info().Int("score", c.score).Int("durationSeconds", duration).Msg("session completed")

	go func() {
		if err := c.sink.CompleteSession(c.ctx, c.cfg.SessionID, duration); err != nil {
			c.log.Error().Err(err).Msg("complete session failed")
		}
	}()
	go func() { c.seq.PlayOne(c.ctx, audio.InstructionClipPath("stage-complete")) }()

	if c.onComplete != nil {
		go func() {
			if !c.sleep(c.timings.CompletionDelay) {
				return
			}
			c.onComplete(c.Snapshot())
		}()
	}
}

// tick updates the countdown display value for the active phase.
func (c *Controller) tick(epoch uint64, remaining int) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.remaining = remaining
	c.mu.Unlock()
	c.notify()
}

// sleep waits for d unless the controller is torn down first.
func (c *Controller) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-c.ctx.Done():
		return false
	}
}

// CurrentPhase returns the active phase.
func (c *Controller) CurrentPhase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot copies the observable session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	required := 0
	if len(c.questions) > 0 && c.questionIx < len(c.questions) {
		required = len(c.questions[c.questionIx].RequiredItems)
	}
	snap := Snapshot{
		SessionID:      c.cfg.SessionID,
		Phase:          c.phase,
		QuestionNumber: c.questionIx + 1,
		TotalQuestions: len(c.questions),
		Remaining:      c.remaining,
		Grid:           append([]string(nil), c.grid...),
		Selected:       append([]string(nil), c.selected...),
		Required:       required,
		Score:          c.score,
		Results:        append([]Result(nil), c.results...),
	}
	if len(snap.Results) > 0 {
		correct := 0
		for _, r := range snap.Results {
			if r.IsCorrect {
				correct++
			}
		}
		snap.Accuracy = float64(correct) / float64(len(snap.Results)) * 100
	}
	return snap
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.Snapshot())
}

// Close tears the session down: cancels in-flight waits, stops the clock,
// and releases audio. Safe on every exit path, idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	c.mu.Unlock()
	c.cancel()
	c.clock.Stop()
	c.seq.Stop()
	c.seq.ClearCache()
}
