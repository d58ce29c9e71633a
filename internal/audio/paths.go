package audio

import "strings"

// Clip files follow the generator's naming scheme:
// item-<name>.mp3, instruction-<key>.mp3, encouragement-<key>.mp3.

var instructionClips = map[string]string{
	"listen-carefully": "watch_carefully",
	"watch-carefully":  "watch_carefully",
	"stage-complete":   "level_complete",
	"level-complete":   "level_complete",
	"correct":          "correct",
	"incorrect":        "incorrect",
	"get-ready":        "get_ready",
	"good-job":         "good_job",
	"welcome":          "welcome",
	"great-job":        "good_job",
	"excellent":        "excellent",
}

var encouragementClips = map[string]string{
	"great-job":     "great",
	"amazing":       "amazing",
	"fantastic":     "fantastic",
	"wonderful":     "wonderful",
	"you-can-do-it": "you_can_do_it",
	"keep-going":    "keep_going",
	"almost-there":  "almost_there",
	"one-more-try":  "one_more_try",
}

// ItemClipPath maps an item name to its clip path. Spaces become dashes to
// match the generated file names.
func ItemClipPath(itemName string) string {
	return "/audio/item-" + strings.ReplaceAll(itemName, " ", "-") + ".mp3"
}

// InstructionClipPath maps an instruction key to its clip path, falling
// back to an underscore rendering of the key for unmapped entries.
func InstructionClipPath(key string) string {
	name, ok := instructionClips[key]
	if !ok {
		name = strings.ReplaceAll(key, "-", "_")
	}
	return "/audio/instruction-" + name + ".mp3"
}

// EncouragementClipPath maps an encouragement key to its clip path with the
// same fallback convention as instructions.
func EncouragementClipPath(key string) string {
	name, ok := encouragementClips[key]
	if !ok {
		name = strings.ReplaceAll(key, "-", "_")
	}
	return "/audio/encouragement-" + name + ".mp3"
}
