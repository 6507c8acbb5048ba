package scanners

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/process"
)

type call struct {
	name    string
	args    []string
	timeout time.Duration
}

// fakeRunner returns a canned result and records every call.
type fakeRunner struct {
	result process.Result
	err    error
	// report, when set, is written to the path following --report-path.
	report []byte
	calls  []call
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, timeout time.Duration) (process.Result, error) {
	f.calls = append(f.calls, call{name: name, args: args, timeout: timeout})
	if f.report != nil {
		for i, a := range args {
			if a == "--report-path" && i+1 < len(args) {
				if err := os.WriteFile(args[i+1], f.report, 0o600); err != nil {
					return process.Result{}, err
				}
			}
		}
	}
	return f.result, f.err
}

func reportPath(t *testing.T, c call) string {
	t.Helper()
	for i, a := range c.args {
		if a == "--report-path" && i+1 < len(c.args) {
			return c.args[i+1]
		}
	}
	t.Fatalf("no --report-path in %v", c.args)
	return ""
}

const semgrepJSON = `{"results":[
 {"check_id":"a","path":"x.go","start":{"line":1},"extra":{"message":"m","severity":"ERROR"}},
 {"check_id":"b","path":"y.go","start":{"line":2},"extra":{"message":"m","severity":"WARNING"}}]}`

const trivyJSON = `{"Results":[{"Target":"go.sum","Vulnerabilities":[
 {"VulnerabilityID":"CVE-1","PkgName":"p","Severity":"CRITICAL"}]}]}`

func TestStaticAnalysisExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		status   Status
		findings int
	}{
		{"clean", 0, StatusCompleted, 2},
		{"findings present", 1, StatusCompleted, 2},
		{"tool error", 2, StatusError, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{result: process.Result{Stdout: []byte(semgrepJSON), ExitCode: tt.exitCode}}
			res := NewStaticAnalysis(runner, Config{}).Scan(context.Background(), "./src")

			assert.Equal(t, tt.status, res.Status)
			assert.Len(t, res.Findings, tt.findings)
			assert.Equal(t, "semgrep", res.Tool)
			require.Len(t, runner.calls, 1)
			assert.Equal(t, []string{"--config=auto", "--json", "--quiet", "./src"}, runner.calls[0].args)
			assert.Equal(t, DefaultTimeout, runner.calls[0].timeout)
		})
	}
}

func TestStaticAnalysisSummary(t *testing.T) {
	runner := &fakeRunner{result: process.Result{Stdout: []byte(semgrepJSON), ExitCode: 1}}
	res := NewStaticAnalysis(runner, Config{}).Scan(context.Background(), ".")
	assert.Equal(t, 1, res.Summary[engine.SeverityHigh])
	assert.Equal(t, 1, res.Summary[engine.SeverityMedium])
	assert.Equal(t, 0, res.Summary[engine.SeverityCritical])
	assert.Contains(t, res.Summary, engine.SeverityLow)
}

func TestTrivyRejectsExitOne(t *testing.T) {
	runner := &fakeRunner{result: process.Result{Stdout: []byte(trivyJSON), ExitCode: 1, Stderr: []byte("boom")}}
	res := NewDependencyScan(runner, Config{}).Scan(context.Background(), ".")

	assert.Equal(t, StatusError, res.Status)
	assert.Empty(t, res.Findings)
	assert.True(t, errors.Is(res.Err, engine.ErrProcess))
	assert.Contains(t, res.Message, "Trivy scan failed")
}

func TestDependencyAndImageArgs(t *testing.T) {
	runner := &fakeRunner{result: process.Result{Stdout: []byte(trivyJSON)}}

	res := NewDependencyScan(runner, Config{}).Scan(context.Background(), "/repo")
	require.Equal(t, StatusCompleted, res.Status)
	assert.Len(t, res.Findings, 1)

	res = NewContainerImageScan(runner, Config{}).Scan(context.Background(), "alpine:3.13")
	require.Equal(t, StatusCompleted, res.Status)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"fs", "--format", "json", "--quiet", "/repo"}, runner.calls[0].args)
	assert.Equal(t, DefaultTimeout, runner.calls[0].timeout)
	assert.Equal(t, []string{"image", "--format", "json", "--quiet", "alpine:3.13"}, runner.calls[1].args)
	assert.Equal(t, DefaultImageTimeout, runner.calls[1].timeout)
}

func TestScanTimeout(t *testing.T) {
	runner := &fakeRunner{
		result: process.Result{Stdout: []byte(trivyJSON), ExitCode: 124},
		err:    fmt.Errorf("%w: trivy", process.ErrTimeout),
	}
	res := NewContainerImageScan(runner, Config{}).Scan(context.Background(), "alpine")

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "Trivy scan timed out", res.Message)
	assert.Empty(t, res.Findings)
}

func TestScanBinaryMissing(t *testing.T) {
	runner := &fakeRunner{result: process.Result{ExitCode: 127}, err: fmt.Errorf("%w: semgrep", process.ErrNotFound)}
	res := NewStaticAnalysis(runner, Config{}).Scan(context.Background(), ".")

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "Semgrep scan failed")
}

func TestConfigOverrides(t *testing.T) {
	runner := &fakeRunner{result: process.Result{Stdout: []byte(`{"results":[]}`)}}
	cfg := Config{SemgrepBinary: "/opt/semgrep", SemgrepRules: "p/ci", Timeout: time.Minute}
	NewStaticAnalysis(runner, cfg).Scan(context.Background(), ".")

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/opt/semgrep", runner.calls[0].name)
	assert.Equal(t, "--config=p/ci", runner.calls[0].args[0])
	assert.Equal(t, time.Minute, runner.calls[0].timeout)
}

func TestSecretScanReadsAndRemovesReport(t *testing.T) {
	runner := &fakeRunner{
		result: process.Result{ExitCode: 1},
		report: []byte(`[{"Description":"AWS Access Key","File":".env","StartLine":3}]`),
	}
	res := NewSecretScan(runner, Config{}).Scan(context.Background(), "/repo")

	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, engine.SeverityHigh, res.Findings[0].Severity)
	assert.Equal(t, "Secret Exposure", res.Findings[0].Category)

	require.Len(t, runner.calls, 1)
	args := runner.calls[0].args
	assert.Equal(t, []string{"detect", "--source", "/repo", "--report-format", "json"}, args[:5])
	assert.Equal(t, "--no-git", args[len(args)-1])

	_, err := os.Stat(reportPath(t, runner.calls[0]))
	assert.True(t, os.IsNotExist(err), "report file should be removed")
}

func TestSecretScanRemovesReportOnFailure(t *testing.T) {
	runner := &fakeRunner{result: process.Result{ExitCode: 2}}
	res := NewSecretScan(runner, Config{}).Scan(context.Background(), "/repo")

	assert.Equal(t, StatusError, res.Status)
	require.Len(t, runner.calls, 1)
	_, err := os.Stat(reportPath(t, runner.calls[0]))
	assert.True(t, os.IsNotExist(err), "report file should be removed")
}

func TestSecretScanEmptyReport(t *testing.T) {
	runner := &fakeRunner{result: process.Result{ExitCode: 0}}
	res := NewSecretScan(runner, Config{}).Scan(context.Background(), "/repo")

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Empty(t, res.Findings)
}

func TestSelector(t *testing.T) {
	sel := NewSelector(&fakeRunner{}, DefaultConfig())

	for _, c := range engine.Categories() {
		sc, err := sel.Select(c)
		require.NoError(t, err, c)
		assert.NotNil(t, sc)
	}

	sc, _ := sel.Select(engine.CategoryDocker)
	assert.IsType(t, &ContainerImageScan{}, sc)
	sc, _ = sel.Select(engine.CategorySecrets)
	assert.IsType(t, &SecretScan{}, sc)

	_, err := sel.Select("dast")
	assert.ErrorIs(t, err, engine.ErrConfiguration)

	c, err := sel.Validate("SAST")
	require.NoError(t, err)
	assert.Equal(t, engine.CategorySAST, c)

	_, err = NewSelectorWith(nil).Validate("sca")
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}
