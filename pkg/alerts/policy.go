package alerts

import "github.com/user/scanhub/pkg/engine"

// highThreshold is the number of high findings that alone triggers an alert.
const highThreshold = 5

// ShouldAlert reports whether a result is worth notifying about:
// any critical finding, or more than five high ones.
func ShouldAlert(s engine.Summary) bool {
	return s.Count(engine.SeverityCritical) > 0 || s.Count(engine.SeverityHigh) > highThreshold
}
