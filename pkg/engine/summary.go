package engine

// Summary counts findings per severity. The critical, high, medium and low
// buckets are always present, other severities only when they occur.
type Summary map[Severity]int

// NewSummary returns a summary with the four mandatory buckets set to zero.
func NewSummary() Summary {
	return Summary{
		SeverityCritical: 0,
		SeverityHigh:     0,
		SeverityMedium:   0,
		SeverityLow:      0,
	}
}

// Summarize counts findings by severity.
func Summarize(findings []Finding) Summary {
	s := NewSummary()
	for _, f := range findings {
		s[f.Severity]++
	}
	return s
}

// Count returns the number of findings with the given severity.
func (s Summary) Count(sev Severity) int {
	return s[sev]
}

// Total returns the number of findings the summary was built from.
func (s Summary) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Normalized returns a copy that is guaranteed to carry the mandatory buckets.
func (s Summary) Normalized() Summary {
	out := NewSummary()
	for k, v := range s {
		out[k] = v
	}
	return out
}
