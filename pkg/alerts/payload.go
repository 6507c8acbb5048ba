package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/scanhub/pkg/engine"
)

const (
	maxCriticalExcerpt = 3
	maxHighExcerpt     = 2
	descriptionBudget  = 100
	// The high section is only appended while the excerpt is shorter than this.
	excerptSoftLimit = 1500

	DiscordExcerptCap = 1024
	SlackExcerptCap   = 2000

	timestampLayout = "2006-01-02 15:04:05"
)

// ScanInfo identifies the scan an alert is about.
type ScanInfo struct {
	ScanID   string
	Category engine.Category
	Target   string
}

// Payload is the channel-agnostic alert content. It is built once by Format
// and only read afterwards.
type Payload struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	SeveritySummary string `json:"severity_summary"`
	FindingsDetail  string `json:"findings_detail"`
	ScanID          string `json:"scan_id"`
	Timestamp       string `json:"timestamp"`
}

// Format renders findings into a bounded payload.
func Format(info ScanInfo, findings []engine.Finding, now time.Time) Payload {
	category := strings.ToUpper(string(info.Category))
	if category == "" {
		category = "UNKNOWN"
	}
	target := info.Target
	if target == "" {
		target = "Unknown"
	}

	return Payload{
		Title:           "🚨 Security Alert - " + category,
		Description:     "Vulnerabilities detected in the scan of " + target,
		SeveritySummary: severitySummary(engine.Summarize(findings)),
		FindingsDetail:  excerpt(findings),
		ScanID:          info.ScanID,
		Timestamp:       now.Format(timestampLayout),
	}
}

func severitySummary(s engine.Summary) string {
	var parts []string
	if n := s.Count(engine.SeverityCritical); n > 0 {
		parts = append(parts, fmt.Sprintf("🔴 %d Critical", n))
	}
	if n := s.Count(engine.SeverityHigh); n > 0 {
		parts = append(parts, fmt.Sprintf("🟠 %d High", n))
	}
	if n := s.Count(engine.SeverityMedium); n > 0 {
		parts = append(parts, fmt.Sprintf("🟡 %d Medium", n))
	}
	if len(parts) == 0 {
		return "No critical vulnerabilities"
	}
	return strings.Join(parts, " | ")
}

func excerpt(findings []engine.Finding) string {
	critical := pick(findings, engine.SeverityCritical, maxCriticalExcerpt)
	high := pick(findings, engine.SeverityHigh, maxHighExcerpt)

	var sb strings.Builder
	if len(critical) > 0 {
		sb.WriteString("**Critical Vulnerabilities:**\n")
		for _, f := range critical {
			writeLine(&sb, f)
		}
	}
	if len(high) > 0 && sb.Len() < excerptSoftLimit {
		sb.WriteString("\n**High Vulnerabilities:**\n")
		for _, f := range high {
			writeLine(&sb, f)
		}
	}
	return sb.String()
}

func pick(findings []engine.Finding, sev engine.Severity, limit int) []engine.Finding {
	var out []engine.Finding
	for _, f := range findings {
		if f.Severity != sev {
			continue
		}
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	return out
}

func writeLine(sb *strings.Builder, f engine.Finding) {
	category := f.Category
	if category == "" {
		category = "Unknown"
	}
	description := f.Description
	if description == "" {
		description = "No description"
	}
	sb.WriteString("• ")
	sb.WriteString(category)
	sb.WriteString(": ")
	sb.WriteString(truncate(description, descriptionBudget))
	sb.WriteString("...\n")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
