package engine

// Diff splits two finding sets into new, fixed and unchanged risks.
type Diff struct {
	New       []Finding `json:"new"`
	Fixed     []Finding `json:"fixed"`
	Unchanged []Finding `json:"unchanged"`
}

// CompareFindings compares current findings against a baseline.
// Findings are matched on Key; duplicates within one set collapse to one entry.
func CompareFindings(baseline, current []Finding) Diff {
	diff := Diff{
		New:       make([]Finding, 0),
		Fixed:     make([]Finding, 0),
		Unchanged: make([]Finding, 0),
	}

	baseKeys := make(map[string]bool, len(baseline))
	for _, f := range baseline {
		baseKeys[f.Key()] = true
	}

	seen := make(map[string]bool, len(current))
	for _, f := range current {
		k := f.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		if baseKeys[k] {
			diff.Unchanged = append(diff.Unchanged, f)
		} else {
			diff.New = append(diff.New, f)
		}
	}

	fixed := make(map[string]bool)
	for _, f := range baseline {
		k := f.Key()
		if seen[k] || fixed[k] {
			continue
		}
		fixed[k] = true
		diff.Fixed = append(diff.Fixed, f)
	}
	return diff
}
