package game

import (
	"errors"
	"time"
)

type Phase string

const (
	PhaseLoading      Phase = "Loading"
	PhaseInstructions Phase = "Instructions"
	PhaseListening    Phase = "Listening"
	PhaseWaiting      Phase = "Waiting"
	PhaseSelecting    Phase = "Selecting"
	PhaseFeedback     Phase = "Feedback"
	PhaseCompleted    Phase = "Completed"
)

type Level string

const (
	LevelA Level = "A"
	LevelB Level = "B"
	LevelC Level = "C"
)

type TimingMode string

const (
	TimingShort  TimingMode = "short"
	TimingMedium TimingMode = "medium"
	TimingLong   TimingMode = "long"
)

var (
	ErrContentNotFound     = errors.New("content not found")
	ErrInvalidPhase        = errors.New("invalid phase for action")
	ErrSelectionIncomplete = errors.New("selection count does not match required count")
	ErrUnknownItem         = errors.New("item not in current display set")
)

// SessionConfig is resolved by the caller before the controller is built;
// the controller never reads ambient settings itself.
type SessionConfig struct {
	SessionID  string     `json:"sessionId"`
	LearnerID  string     `json:"learnerId"`
	Level      Level      `json:"level"`
	Stage      int        `json:"stage"`
	TimingMode TimingMode `json:"timingMode"`
	WaitTimer  int        `json:"waitTimer"` // seconds, clamped to 0..15
}

// Question is one trial: the items the learner must recall plus the decoys
// shown next to them. Required and distractor sets are disjoint.
type Question struct {
	Index         int      `json:"index"`
	RequiredItems []string `json:"requiredItems"`
	Distractors   []string `json:"distractors"`
}

type Result struct {
	QuestionNumber    int      `json:"questionNumber"`
	RequiredItems     []string `json:"requiredItems"`
	SelectedItems     []string `json:"selectedItems"`
	IsCorrect         bool     `json:"isCorrect"`
	CorrectSelections int      `json:"correctSelections"`
	TotalRequired     int      `json:"totalRequired"`
}

// Snapshot is a point-in-time copy of controller state, safe to hand to
// other goroutines.
type Snapshot struct {
	SessionID      string   `json:"sessionId"`
	Phase          Phase    `json:"phase"`
	QuestionNumber int      `json:"questionNumber"` // 1-based
	TotalQuestions int      `json:"totalQuestions"`
	Remaining      int      `json:"remaining"` // seconds left on the active countdown
	Grid           []string `json:"grid"`      // shuffled display set, fixed per question
	Selected       []string `json:"selected"`
	Required       int      `json:"required"` // selection count needed to submit
	Score          int      `json:"score"`
	Results        []Result `json:"results"`
	Accuracy       float64  `json:"accuracy"`
}

// Timings groups the fixed pauses of the session flow. Production uses
// DefaultTimings; tests shrink them.
type Timings struct {
	InterClipDelay    time.Duration // between item clips during Listening
	NextQuestionPause time.Duration // Instructions pause on every question after the first
	FeedbackPause     time.Duration // Feedback display time before advancing
	CompletionDelay   time.Duration // before the completed session is handed off
	ClockInterval     time.Duration // PhaseClock tick length
}

func DefaultTimings() Timings {
	return Timings{
		InterClipDelay:    800 * time.Millisecond,
		NextQuestionPause: 1500 * time.Millisecond,
		FeedbackPause:     3 * time.Second,
		CompletionDelay:   2 * time.Second,
		ClockInterval:     time.Second,
	}
}
