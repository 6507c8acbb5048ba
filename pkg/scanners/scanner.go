// Package scanners wraps the external security tools behind one Scanner contract.
package scanners

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/process"
)

// Status is the outcome of a single scanner run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Result is what a Scanner reports back. Findings are empty unless Status is completed.
type Result struct {
	Status   Status           `json:"status"`
	Tool     string           `json:"tool"`
	Message  string           `json:"message,omitempty"`
	Findings []engine.Finding `json:"findings"`
	Summary  engine.Summary   `json:"summary"`
	Err      error            `json:"-"`
}

// Scanner runs one external tool against a target.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, target string) Result
}

const (
	DefaultTimeout      = 300 * time.Second
	DefaultImageTimeout = 600 * time.Second
)

// Config selects binaries, rules and timeouts. Zero values fall back to defaults.
type Config struct {
	SemgrepBinary  string
	SemgrepRules   string
	TrivyBinary    string
	GitleaksBinary string
	Timeout        time.Duration
	ImageTimeout   time.Duration
}

// DefaultConfig returns the stock tool settings.
func DefaultConfig() Config {
	return Config{
		SemgrepBinary:  "semgrep",
		SemgrepRules:   "auto",
		TrivyBinary:    "trivy",
		GitleaksBinary: "gitleaks",
		Timeout:        DefaultTimeout,
		ImageTimeout:   DefaultImageTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SemgrepBinary == "" {
		c.SemgrepBinary = d.SemgrepBinary
	}
	if c.SemgrepRules == "" {
		c.SemgrepRules = d.SemgrepRules
	}
	if c.TrivyBinary == "" {
		c.TrivyBinary = d.TrivyBinary
	}
	if c.GitleaksBinary == "" {
		c.GitleaksBinary = d.GitleaksBinary
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.ImageTimeout <= 0 {
		c.ImageTimeout = d.ImageTimeout
	}
	return c
}

// invocation describes one external tool call.
type invocation struct {
	tool    string // finding tool name
	display string // human name used in messages
	binary  string
	args    []string
	timeout time.Duration
	okCodes []int
}

func (inv invocation) accepts(code int) bool {
	for _, c := range inv.okCodes {
		if c == code {
			return true
		}
	}
	return false
}

// invoke runs the tool and applies its exit-code policy. The returned error wraps engine.ErrProcess.
func invoke(ctx context.Context, runner process.Runner, inv invocation) (process.Result, error) {
	entry := logrus.WithFields(logrus.Fields{"component": "scanner", "tool": inv.tool})
	entry.WithField("args", strings.Join(inv.args, " ")).Debug("Running tool")

	res, err := runner.Run(ctx, inv.binary, inv.args, inv.timeout)
	switch {
	case errors.Is(err, process.ErrTimeout):
		return res, fmt.Errorf("%w: %s scan timed out", engine.ErrProcess, inv.display)
	case err != nil:
		return res, fmt.Errorf("%w: %s scan failed: %v", engine.ErrProcess, inv.display, err)
	case !inv.accepts(res.ExitCode):
		return res, fmt.Errorf("%w: %s scan failed: exit code %d: %s",
			engine.ErrProcess, inv.display, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}

	entry.WithFields(logrus.Fields{"exit_code": res.ExitCode, "duration": res.Duration}).Debug("Tool finished")
	return res, nil
}

func completed(tool string, findings []engine.Finding) Result {
	if findings == nil {
		findings = []engine.Finding{}
	}
	return Result{
		Status:   StatusCompleted,
		Tool:     tool,
		Message:  fmt.Sprintf("Scan completed with %d findings", len(findings)),
		Findings: findings,
		Summary:  engine.Summarize(findings),
	}
}

func failed(tool string, err error) Result {
	logrus.WithFields(logrus.Fields{"component": "scanner", "tool": tool}).WithError(err).Warn("Scan failed")
	return Result{
		Status:   StatusError,
		Tool:     tool,
		Message:  strings.TrimPrefix(err.Error(), engine.ErrProcess.Error()+": "),
		Findings: []engine.Finding{},
		Summary:  engine.NewSummary(),
		Err:      err,
	}
}
