package scanners

import (
	"context"
	"fmt"
	"os"

	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/normalize"
	"github.com/user/scanhub/pkg/process"
)

// SecretScan runs gitleaks, which writes its report to a file rather than stdout.
// Exit code 1 means leaks were found.
type SecretScan struct {
	Runner process.Runner
	Config Config
}

// NewSecretScan creates a gitleaks-backed scanner.
func NewSecretScan(runner process.Runner, cfg Config) *SecretScan {
	return &SecretScan{Runner: runner, Config: cfg.withDefaults()}
}

func (s *SecretScan) Name() string { return normalize.ToolGitleaks }

func (s *SecretScan) Scan(ctx context.Context, target string) Result {
	cfg := s.Config.withDefaults()
	var result Result
	err := withScratchReport(func(reportPath string) {
		_, err := invoke(ctx, s.Runner, invocation{
			tool:    normalize.ToolGitleaks,
			display: "Gitleaks",
			binary:  cfg.GitleaksBinary,
			args: []string{"detect", "--source", target, "--report-format", "json",
				"--report-path", reportPath, "--no-git"},
			timeout: cfg.Timeout,
			okCodes: []int{0, 1},
		})
		if err != nil {
			result = failed(s.Name(), err)
			return
		}

		data, err := os.ReadFile(reportPath)
		if err != nil {
			result = failed(s.Name(), fmt.Errorf("%w: Gitleaks scan failed: read report: %v", engine.ErrProcess, err))
			return
		}
		result = completed(s.Name(), normalize.Gitleaks(data))
	})
	if err != nil {
		return failed(s.Name(), err)
	}
	return result
}

// withScratchReport creates an empty temp file for the tool to write into
// and removes it once fn returns, whatever the outcome.
func withScratchReport(fn func(path string)) error {
	reportFile, err := os.CreateTemp("", "gitleaks-report-*.json")
	if err != nil {
		return fmt.Errorf("%w: Gitleaks scan failed: create report file: %v", engine.ErrProcess, err)
	}
	reportPath := reportFile.Name()
	reportFile.Close()
	defer os.Remove(reportPath)

	fn(reportPath)
	return nil
}
