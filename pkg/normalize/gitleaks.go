package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/user/scanhub/pkg/engine"
)

// gitleaksFinding is one entry of the gitleaks JSON report.
type gitleaksFinding struct {
	Description string `json:"Description"`
	File        string `json:"File"`
	StartLine   int    `json:"StartLine"`
	RuleID      string `json:"RuleID"`
}

const (
	categorySecret    = "Secret Exposure"
	secretRemediation = "Remove or encrypt the secret, rotate if necessary"
)

func parseGitleaks(raw []byte) ([]engine.Finding, error) {
	// Anything other than a top-level array carries no findings.
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] != '[' {
		if !json.Valid(trimmed) {
			return nil, parseError(ToolGitleaks, fmt.Errorf("invalid document"))
		}
		log.WithField("tool", ToolGitleaks).Warn("Report is not a JSON array, ignoring")
		return nil, nil
	}

	var leaks []gitleaksFinding
	if err := json.Unmarshal(raw, &leaks); err != nil {
		return nil, parseError(ToolGitleaks, err)
	}

	findings := make([]engine.Finding, 0, len(leaks))
	for _, l := range leaks {
		findings = append(findings, engine.Finding{
			Tool:        ToolGitleaks,
			Severity:    engine.SeverityHigh,
			Category:    categorySecret,
			Description: "Secret detected: " + or(l.Description, "Unknown secret type"),
			Location:    fmt.Sprintf("%s:%d", or(l.File, "Unknown"), l.StartLine),
			Remediation: secretRemediation,
		})
	}
	return findings, nil
}
