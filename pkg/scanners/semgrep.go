package scanners

import (
	"context"

	"github.com/user/scanhub/pkg/normalize"
	"github.com/user/scanhub/pkg/process"
)

// StaticAnalysis runs semgrep. Exit code 1 means findings were reported.
type StaticAnalysis struct {
	Runner process.Runner
	Config Config
}

// NewStaticAnalysis creates a semgrep-backed scanner.
func NewStaticAnalysis(runner process.Runner, cfg Config) *StaticAnalysis {
	return &StaticAnalysis{Runner: runner, Config: cfg.withDefaults()}
}

func (s *StaticAnalysis) Name() string { return normalize.ToolSemgrep }

func (s *StaticAnalysis) invocation(target string) invocation {
	cfg := s.Config.withDefaults()
	return invocation{
		tool:    normalize.ToolSemgrep,
		display: "Semgrep",
		binary:  cfg.SemgrepBinary,
		args:    []string{"--config=" + cfg.SemgrepRules, "--json", "--quiet", target},
		timeout: cfg.Timeout,
		okCodes: []int{0, 1},
	}
}

func (s *StaticAnalysis) Scan(ctx context.Context, target string) Result {
	res, err := invoke(ctx, s.Runner, s.invocation(target))
	if err != nil {
		return failed(s.Name(), err)
	}
	return completed(s.Name(), normalize.Semgrep(res.Stdout))
}
