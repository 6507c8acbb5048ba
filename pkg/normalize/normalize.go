// Package normalize converts raw scanner reports into engine findings.
//
// The exported functions never fail: malformed or empty input produces an
// empty slice and a log entry, so one bad report never aborts a scan.
package normalize

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/logging"
)

// Tool names as they appear in Finding.Tool.
const (
	ToolSemgrep  = "semgrep"
	ToolTrivy    = "trivy"
	ToolGitleaks = "gitleaks"
)

var log = logging.Component("normalizer")

var parsers = map[string]func([]byte) ([]engine.Finding, error){
	ToolSemgrep:  parseSemgrep,
	ToolTrivy:    parseTrivy,
	ToolGitleaks: parseGitleaks,
}

// Normalize dispatches raw output to the parser registered for tool.
func Normalize(tool string, raw []byte) []engine.Finding {
	parse, ok := parsers[tool]
	if !ok {
		log.WithField("tool", tool).Warn("No normalizer registered for tool")
		return []engine.Finding{}
	}
	return run(tool, parse, raw)
}

// Semgrep normalizes a semgrep --json report.
func Semgrep(raw []byte) []engine.Finding { return run(ToolSemgrep, parseSemgrep, raw) }

// Trivy normalizes a trivy --format json report.
func Trivy(raw []byte) []engine.Finding { return run(ToolTrivy, parseTrivy, raw) }

// Gitleaks normalizes a gitleaks --report-format json report.
func Gitleaks(raw []byte) []engine.Finding { return run(ToolGitleaks, parseGitleaks, raw) }

func run(tool string, parse func([]byte) ([]engine.Finding, error), raw []byte) []engine.Finding {
	if len(bytes.TrimSpace(raw)) == 0 {
		log.WithField("tool", tool).Debug("Empty report")
		return []engine.Finding{}
	}
	findings, err := parse(raw)
	if err != nil {
		entry := log.WithField("tool", tool).WithError(err)
		if errors.Is(err, engine.ErrParse) {
			entry.Error("Could not decode report")
		} else {
			entry.Warn("Could not process report")
		}
		return []engine.Finding{}
	}
	if findings == nil {
		findings = []engine.Finding{}
	}
	return findings
}

func parseError(tool string, err error) error {
	return fmt.Errorf("%w: %s json: %v", engine.ErrParse, tool, err)
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
