package scanners

import (
	"context"

	"github.com/user/scanhub/pkg/normalize"
	"github.com/user/scanhub/pkg/process"
)

// DependencyScan runs trivy against a filesystem path. Only exit code 0 is success.
type DependencyScan struct {
	Runner process.Runner
	Config Config
}

// NewDependencyScan creates a trivy fs scanner.
func NewDependencyScan(runner process.Runner, cfg Config) *DependencyScan {
	return &DependencyScan{Runner: runner, Config: cfg.withDefaults()}
}

func (s *DependencyScan) Name() string { return normalize.ToolTrivy }

func (s *DependencyScan) Scan(ctx context.Context, target string) Result {
	cfg := s.Config.withDefaults()
	return trivyScan(ctx, s.Runner, invocation{
		tool:    normalize.ToolTrivy,
		display: "Trivy",
		binary:  cfg.TrivyBinary,
		args:    []string{"fs", "--format", "json", "--quiet", target},
		timeout: cfg.Timeout,
		okCodes: []int{0},
	})
}

// ContainerImageScan runs trivy against an image reference. Image pulls get the longer timeout.
type ContainerImageScan struct {
	Runner process.Runner
	Config Config
}

// NewContainerImageScan creates a trivy image scanner.
func NewContainerImageScan(runner process.Runner, cfg Config) *ContainerImageScan {
	return &ContainerImageScan{Runner: runner, Config: cfg.withDefaults()}
}

func (s *ContainerImageScan) Name() string { return normalize.ToolTrivy }

func (s *ContainerImageScan) Scan(ctx context.Context, target string) Result {
	cfg := s.Config.withDefaults()
	return trivyScan(ctx, s.Runner, invocation{
		tool:    normalize.ToolTrivy,
		display: "Trivy",
		binary:  cfg.TrivyBinary,
		args:    []string{"image", "--format", "json", "--quiet", target},
		timeout: cfg.ImageTimeout,
		okCodes: []int{0},
	})
}

func trivyScan(ctx context.Context, runner process.Runner, inv invocation) Result {
	res, err := invoke(ctx, runner, inv)
	if err != nil {
		return failed(inv.tool, err)
	}
	return completed(inv.tool, normalize.Trivy(res.Stdout))
}
