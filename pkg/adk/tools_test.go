package adk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/jobs"
)

type fakeService struct {
	repo      *jobs.MemoryRepository
	submitted []string
	submitErr error
	finish    func(ctx context.Context, id string)
}

func (f *fakeService) Submit(ctx context.Context, category, target string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	c, err := engine.ParseCategory(category)
	if err != nil {
		return "", err
	}
	id := "job-" + category
	if _, err := f.repo.CreateJob(ctx, id, c, target); err != nil {
		return "", err
	}
	f.submitted = append(f.submitted, id)
	return id, nil
}

func (f *fakeService) Wait(ctx context.Context, id string, _ time.Duration) (*engine.ScanJob, error) {
	if f.finish != nil {
		f.finish(ctx, id)
	}
	job, err := f.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.Terminal() {
		return nil, context.DeadlineExceeded
	}
	return job, nil
}

func completeJob(t *testing.T, repo *jobs.MemoryRepository, id string, cat engine.Category, findings ...engine.Finding) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.CreateJob(ctx, id, cat, "./src")
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, id, engine.StatusRunning, ""))
	require.NoError(t, repo.UpdateResults(ctx, id, findings, engine.Summarize(findings)))
}

func TestScanToolsRegistersStatsWhenSupported(t *testing.T) {
	repo := jobs.NewMemoryRepository()
	var names []string
	for _, tool := range ScanTools(&fakeService{repo: repo}, repo) {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"RunSecurityScan", "GetScanResult", "ListScans", "CompareScans", "ScanStatistics"}, names)
}

func TestSubmitScanToolQueues(t *testing.T) {
	repo := jobs.NewMemoryRepository()
	svc := &fakeService{repo: repo}
	tool := &SubmitScanTool{Service: svc}

	out, err := tool.Execute(context.Background(), map[string]interface{}{"scan_type": "sast", "target": "./src"}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "job-sast queued")
	assert.Equal(t, []string{"job-sast"}, svc.submitted)
}

func TestSubmitScanToolValidation(t *testing.T) {
	repo := jobs.NewMemoryRepository()
	tool := &SubmitScanTool{Service: &fakeService{repo: repo}}

	out, _ := tool.Execute(context.Background(), map[string]interface{}{"scan_type": "sast"}, nil)
	assert.Contains(t, out, "required")

	out, _ = tool.Execute(context.Background(), map[string]interface{}{"scan_type": "dast", "target": "x"}, nil)
	assert.Contains(t, out, "Error submitting scan")

	tool.Service = &fakeService{repo: repo, submitErr: errors.New("queue closed")}
	out, _ = tool.Execute(context.Background(), map[string]interface{}{"scan_type": "sca", "target": "x"}, nil)
	assert.Contains(t, out, "queue closed")
}

func TestSubmitScanToolWaitsForReport(t *testing.T) {
	repo := jobs.NewMemoryRepository()
	svc := &fakeService{repo: repo, finish: func(ctx context.Context, id string) {
		_ = repo.UpdateStatus(ctx, id, engine.StatusRunning, "")
		f := []engine.Finding{{Tool: "gitleaks", Severity: engine.SeverityHigh, Category: "aws-key", Description: "AWS key", Location: "a.env:1"}}
		_ = repo.UpdateResults(ctx, id, f, engine.Summarize(f))
	}}
	tool := &SubmitScanTool{Service: svc}

	var progress []string
	out, err := tool.Execute(context.Background(),
		map[string]interface{}{"scan_type": "secrets", "target": ".", "wait": true},
		func(s string) { progress = append(progress, s) })
	require.NoError(t, err)
	assert.Contains(t, out, "Status: completed")
	assert.Contains(t, out, "aws-key")
	assert.Len(t, progress, 1)
}

func TestSubmitScanToolWaitTimesOut(t *testing.T) {
	repo := jobs.NewMemoryRepository()
	tool := &SubmitScanTool{Service: &fakeService{repo: repo}, WaitTimeout: time.Millisecond}

	out, err := tool.Execute(context.Background(), map[string]interface{}{"scan_type": "sca", "target": ".", "wait": true}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "still running")
}

func TestGetScanResultTool(t *testing.T) {
	repo := jobs.NewMemoryRepository()
	completeJob(t, repo, "a", engine.CategorySAST, engine.Finding{Tool: "semgrep", Severity: engine.SeverityMedium, Category: "xss", Location: "a.go:3"})
	tool := &GetScanResultTool{Repo: repo}

	out, _ := tool.Execute(context.Background(), map[string]interface{}{"scan_id": "a"}, nil)
	assert.Contains(t, out, "[MEDIUM] xss (semgrep)")

	out, _ = tool.Execute(context.Background(), map[string]interface{}{"scan_id": "missing"}, nil)
	assert.Contains(t, out, "not found")

	out, _ = tool.Execute(context.Background(), map[string]interface{}{}, nil)
	assert.Contains(t, out, "required")
}

func TestListScansTool(t *testing.T) {
	repo := jobs.NewMemoryRepository()
	tool := &ListScansTool{Repo: repo}

	out, _ := tool.Execute(context.Background(), nil, nil)
	assert.Equal(t, "No scans yet.", out)

	completeJob(t, repo, "a", engine.CategorySCA, engine.Finding{Severity: engine.SeverityLow})
	out, _ = tool.Execute(context.Background(), map[string]interface{}{"limit": float64(5)}, nil)
	assert.Contains(t, out, "a  sca")
	assert.Contains(t, out, "1 findings")
}

func TestCompareScansTool(t *testing.T) {
	repo := jobs.NewMemoryRepository()
	old := engine.Finding{Tool: "trivy", Severity: engine.SeverityHigh, Category: "CVE-1", Location: "go.sum"}
	kept := engine.Finding{Tool: "trivy", Severity: engine.SeverityLow, Category: "CVE-2", Location: "go.sum"}
	added := engine.Finding{Tool: "trivy", Severity: engine.SeverityCritical, Category: "CVE-3", Location: "go.sum"}
	completeJob(t, repo, "base", engine.CategorySCA, old, kept)
	completeJob(t, repo, "cur", engine.CategorySCA, kept, added)

	out, _ := (&CompareScansTool{Repo: repo}).Execute(context.Background(),
		map[string]interface{}{"baseline_id": "base", "current_id": "cur"}, nil)
	assert.Contains(t, out, "NEW RISKS: 1")
	assert.Contains(t, out, "CVE-3")
	assert.Contains(t, out, "FIXED RISKS: 1")
	assert.Contains(t, out, "UNCHANGED RISKS: 1")
}

func TestScanStatsTool(t *testing.T) {
	repo := jobs.NewMemoryRepository()
	completeJob(t, repo, "a", engine.CategorySecrets, engine.Finding{Severity: engine.SeverityCritical})

	out, _ := (&ScanStatsTool{Repo: repo}).Execute(context.Background(), nil, nil)
	assert.Contains(t, out, "Total scans: 1")
	assert.Contains(t, out, "critical=1")
}

func TestNewScanAgentRegistersTools(t *testing.T) {
	repo := jobs.NewMemoryRepository()
	llm := &scriptedLLM{steps: []step{{text: "hello"}}}
	agent := NewScanAgent(llm, &fakeService{repo: repo}, repo)

	_, err := agent.Chat(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Len(t, llm.toolNames[0], 5)
	assert.Equal(t, "system", llm.histories[0][0].Role)
}
