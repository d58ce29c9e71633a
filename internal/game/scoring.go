package game

// Verdict is the outcome of comparing a selection against a question's
// required items.
type Verdict struct {
	Correct           bool
	CorrectSelections int
	TotalRequired     int
}

// Evaluate compares selected and required as sets. Correct only on exact
// set equality; partial matches never count. Pure, no side effects.
func Evaluate(selected, required []string) Verdict {
	reqSet := make(map[string]struct{}, len(required))
	for _, item := range required {
		reqSet[item] = struct{}{}
	}
	selSet := make(map[string]struct{}, len(selected))
	for _, item := range selected {
		selSet[item] = struct{}{}
	}

	hits := 0
	for item := range selSet {
		if _, ok := reqSet[item]; ok {
			hits++
		}
	}

	return Verdict{
		Correct:           len(selSet) == len(reqSet) && hits == len(reqSet),
		CorrectSelections: hits,
		TotalRequired:     len(reqSet),
	}
}
