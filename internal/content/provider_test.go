package content

import (
	"errors"
	"testing"

	"sinbadgame/internal/game"
)

func mustProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider()
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return p
}

func TestQuestionsForKnownLevelAndStage(t *testing.T) {
	p := mustProvider(t)
	questions, err := p.Questions(game.LevelA, 1)
	if err != nil {
		t.Fatalf("Questions(A, 1): %v", err)
	}
	if len(questions) == 0 {
		t.Fatal("level A stage 1 must have questions")
	}
	for i, q := range questions {
		if q.Index != i {
			t.Fatalf("question %d carries index %d", i, q.Index)
		}
		if len(q.RequiredItems) == 0 {
			t.Fatalf("question %d has no required items", i)
		}
		if len(q.Distractors) == 0 {
			t.Fatalf("question %d has no distractors", i)
		}
	}
}

func TestQuestionsUnknownLevelOrStage(t *testing.T) {
	p := mustProvider(t)
	if _, err := p.Questions(game.Level("Z"), 1); !errors.Is(err, game.ErrContentNotFound) {
		t.Fatalf("unknown level: got %v, want ErrContentNotFound", err)
	}
	if _, err := p.Questions(game.LevelA, 99); !errors.Is(err, game.ErrContentNotFound) {
		t.Fatalf("unknown stage: got %v, want ErrContentNotFound", err)
	}
}

func TestQuestionsReturnsCopies(t *testing.T) {
	p := mustProvider(t)
	first, _ := p.Questions(game.LevelA, 1)
	first[0].RequiredItems[0] = "mutated"
	second, _ := p.Questions(game.LevelA, 1)
	if second[0].RequiredItems[0] == "mutated" {
		t.Fatal("Questions must not share backing arrays across calls")
	}
}

func TestTimingTableModesAndFallback(t *testing.T) {
	p := mustProvider(t)
	short := p.TimingTable(game.TimingShort)
	medium := p.TimingTable(game.TimingMedium)
	long := p.TimingTable(game.TimingLong)
	if len(short) == 0 || len(medium) == 0 || len(long) == 0 {
		t.Fatal("all timing modes must have tables")
	}
	if short[0] >= medium[0] || medium[0] >= long[0] {
		t.Fatalf("tables out of order: short=%v medium=%v long=%v", short, medium, long)
	}

	fallback := p.TimingTable(game.TimingMode("nonsense"))
	if len(fallback) != len(medium) {
		t.Fatalf("unknown mode must fall back to medium, got %v", fallback)
	}
	for i := range medium {
		if fallback[i] != medium[i] {
			t.Fatalf("unknown mode must fall back to medium, got %v", fallback)
		}
	}
}

func TestTimingTableReturnsCopies(t *testing.T) {
	p := mustProvider(t)
	table := p.TimingTable(game.TimingMedium)
	table[0] = -1
	if p.TimingTable(game.TimingMedium)[0] == -1 {
		t.Fatal("TimingTable must not expose its backing array")
	}
}

func TestLevelsAndStageCounts(t *testing.T) {
	p := mustProvider(t)
	levels := p.Levels()
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %v", levels)
	}
	for _, level := range levels {
		if n := p.StageCount(level); n != 3 {
			t.Fatalf("level %s: expected 3 stages, got %d", level, n)
		}
	}
	if p.StageCount(game.Level("Z")) != 0 {
		t.Fatal("unknown level must report 0 stages")
	}
}
