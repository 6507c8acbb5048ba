package engine

import (
	"fmt"
	"sort"
	"strings"
)

// SortFindings orders findings from most to least severe, keeping tool order within a level.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() > findings[j].Severity.Rank()
	})
}

// SummaryLine renders a summary as "critical=1 high=0 ..." with the mandatory buckets first.
func SummaryLine(s Summary) string {
	s = s.Normalized()
	order := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
	parts := make([]string, 0, len(s))
	for _, sev := range order {
		parts = append(parts, fmt.Sprintf("%s=%d", sev, s[sev]))
	}

	var extra []string
	for sev := range s {
		if sev == SeverityCritical || sev == SeverityHigh || sev == SeverityMedium || sev == SeverityLow {
			continue
		}
		extra = append(extra, string(sev))
	}
	sort.Strings(extra)
	for _, sev := range extra {
		parts = append(parts, fmt.Sprintf("%s=%d", sev, s[Severity(sev)]))
	}
	return strings.Join(parts, " ")
}

// Report returns a text summary of a job and its findings
func Report(job *ScanJob) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scan %s [%s] %s\n", job.ID, job.Category, job.Target))
	sb.WriteString(fmt.Sprintf("Status: %s\n", job.Status))
	if job.Message != "" {
		sb.WriteString(fmt.Sprintf("Message: %s\n", job.Message))
	}
	if job.Status != StatusCompleted {
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Findings (%d): %s\n", len(job.Findings), SummaryLine(job.Summary)))
	sb.WriteString("--------------------------------------------------\n")

	findings := make([]Finding, len(job.Findings))
	copy(findings, job.Findings)
	SortFindings(findings)

	for _, f := range findings {
		sb.WriteString(fmt.Sprintf("[%s] %s (%s)\n", strings.ToUpper(string(f.Severity)), f.Category, f.Tool))
		sb.WriteString(fmt.Sprintf("  Location: %s\n", f.Location))
		sb.WriteString(fmt.Sprintf("  %s\n", f.Description))
		if f.Reference != "" {
			sb.WriteString(fmt.Sprintf("  Ref: %s\n", f.Reference))
		}
		if f.Remediation != "" {
			sb.WriteString(fmt.Sprintf("  Fix: %s\n", f.Remediation))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// DiffReport renders a comparison the way the CLI and the agent print it.
// At most maxUnchanged unchanged findings are listed.
func DiffReport(d Diff, maxUnchanged int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("NEW RISKS: %d\n", len(d.New)))
	for _, f := range d.New {
		sb.WriteString(fmt.Sprintf("  [+] [%s] %s (%s) - %s\n", f.Severity, f.Category, f.Location, f.Description))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("FIXED RISKS: %d\n", len(d.Fixed)))
	for _, f := range d.Fixed {
		sb.WriteString(fmt.Sprintf("  [-] [%s] %s (%s) - %s\n", f.Severity, f.Category, f.Location, f.Description))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("UNCHANGED RISKS: %d\n", len(d.Unchanged)))
	for i, f := range d.Unchanged {
		if i >= maxUnchanged {
			sb.WriteString(fmt.Sprintf("  ... and %d more.\n", len(d.Unchanged)-maxUnchanged))
			break
		}
		sb.WriteString(fmt.Sprintf("  [=] [%s] %s (%s) - %s\n", f.Severity, f.Category, f.Location, f.Description))
	}
	return sb.String()
}
