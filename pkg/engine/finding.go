package engine

import "strings"

// Severity is the normalized severity label of a finding.
// Values outside the known set are kept verbatim.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
	SeverityUnknown  Severity = "unknown"
)

// Rank orders severities, critical being the highest. Unrecognized labels rank like unknown.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Known reports whether s is one of the six canonical labels.
func (s Severity) Known() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo, SeverityUnknown:
		return true
	}
	return false
}

// ParseSeverity lower-cases a tool-provided label. An empty label becomes unknown.
func ParseSeverity(s string) Severity {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SeverityUnknown
	}
	return Severity(s)
}

// Finding represents a normalized security finding from any tool
type Finding struct {
	Tool        string   `json:"tool"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Remediation string   `json:"solution,omitempty"`
	Reference   string   `json:"cve_id,omitempty"`
}

// Key identifies a finding across scans of the same target.
func (f Finding) Key() string {
	return f.Tool + "|" + f.Category + "|" + f.Location + "|" + f.Description
}
