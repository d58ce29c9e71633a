// Package content supplies the static question banks and reveal-window
// timing tables bundled with the game.
package content

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"sinbadgame/internal/game"
)

//go:embed game-data.json
var rawGameData []byte

type stageData struct {
	Questions []struct {
		RequiredItems []string `json:"requiredItems"`
		Distractors   []string `json:"distractors"`
	} `json:"questions"`
}

type levelData struct {
	Stages map[string]stageData `json:"stages"`
}

type gameData struct {
	Levels               map[string]levelData `json:"levels"`
	TimingConfigurations map[string][]int     `json:"timingConfigurations"`
}

// Provider implements game.ContentProvider over the embedded game data.
type Provider struct {
	data gameData
}

func NewProvider() (*Provider, error) {
	var data gameData
	if err := json.Unmarshal(rawGameData, &data); err != nil {
		return nil, fmt.Errorf("parse game data: %w", err)
	}
	if _, ok := data.TimingConfigurations[string(game.TimingMedium)]; !ok {
		return nil, fmt.Errorf("game data is missing the medium timing table")
	}
	return &Provider{data: data}, nil
}

// Questions returns the ordered trial list for (level, stage), or
// game.ErrContentNotFound when either is unrecognized.
func (p *Provider) Questions(level game.Level, stage int) ([]game.Question, error) {
	lvl, ok := p.data.Levels[string(level)]
	if !ok {
		return nil, fmt.Errorf("level %s: %w", level, game.ErrContentNotFound)
	}
	stg, ok := lvl.Stages[strconv.Itoa(stage)]
	if !ok {
		return nil, fmt.Errorf("level %s stage %d: %w", level, stage, game.ErrContentNotFound)
	}
	questions := make([]game.Question, len(stg.Questions))
	for i, q := range stg.Questions {
		questions[i] = game.Question{
			Index:         i,
			RequiredItems: append([]string(nil), q.RequiredItems...),
			Distractors:   append([]string(nil), q.Distractors...),
		}
	}
	return questions, nil
}

// TimingTable returns the reveal-window durations for mode, falling back to
// the medium table when the mode is unrecognized.
func (p *Provider) TimingTable(mode game.TimingMode) []int {
	if table, ok := p.data.TimingConfigurations[string(mode)]; ok {
		return append([]int(nil), table...)
	}
	return append([]int(nil), p.data.TimingConfigurations[string(game.TimingMedium)]...)
}

// Levels lists the configured level identifiers, for the entry screen.
func (p *Provider) Levels() []game.Level {
	out := make([]game.Level, 0, len(p.data.Levels))
	for name := range p.data.Levels {
		out = append(out, game.Level(name))
	}
	return out
}

// StageCount reports how many stages a level has, 0 for unknown levels.
func (p *Provider) StageCount(level game.Level) int {
	lvl, ok := p.data.Levels[string(level)]
	if !ok {
		return 0
	}
	return len(lvl.Stages)
}
