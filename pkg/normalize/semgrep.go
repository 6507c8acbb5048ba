package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/scanhub/pkg/engine"
)

type semgrepReport struct {
	Results []semgrepResult `json:"results"`
}

type semgrepResult struct {
	CheckID string `json:"check_id"`
	Path    string `json:"path"`
	Start   struct {
		Line int `json:"line"`
	} `json:"start"`
	Extra struct {
		Message  string `json:"message"`
		Severity string `json:"severity"`
		Fix      string `json:"fix"`
	} `json:"extra"`
}

// semgrepSeverity maps semgrep levels onto the shared scale.
func semgrepSeverity(level string) engine.Severity {
	switch strings.ToUpper(level) {
	case "ERROR":
		return engine.SeverityHigh
	case "WARNING":
		return engine.SeverityMedium
	case "INFO":
		return engine.SeverityLow
	default:
		return engine.SeverityInfo
	}
}

func parseSemgrep(raw []byte) ([]engine.Finding, error) {
	var report semgrepReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, parseError(ToolSemgrep, err)
	}

	findings := make([]engine.Finding, 0, len(report.Results))
	for _, r := range report.Results {
		findings = append(findings, engine.Finding{
			Tool:        ToolSemgrep,
			Severity:    semgrepSeverity(r.Extra.Severity),
			Category:    or(r.CheckID, "Unknown"),
			Description: or(r.Extra.Message, "No description"),
			Location:    fmt.Sprintf("%s:%d", or(r.Path, "Unknown"), r.Start.Line),
			Remediation: or(r.Extra.Fix, "No solution provided"),
		})
	}
	return findings, nil
}
