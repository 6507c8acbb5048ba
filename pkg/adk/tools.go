package adk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/jobs"
)

// ScanService is the part of the job manager the tools need.
type ScanService interface {
	Submit(ctx context.Context, category, target string) (string, error)
	Wait(ctx context.Context, id string, interval time.Duration) (*engine.ScanJob, error)
}

// ScanTools returns every scan tool wired to the given service and repository.
func ScanTools(svc ScanService, repo jobs.Repository) []Tool {
	tools := []Tool{
		&SubmitScanTool{Service: svc},
		&GetScanResultTool{Repo: repo},
		&ListScansTool{Repo: repo},
		&CompareScansTool{Repo: repo},
	}
	if stats, ok := repo.(jobs.StatsRepository); ok {
		tools = append(tools, &ScanStatsTool{Repo: stats})
	}
	return tools
}

func stringArg(args map[string]interface{}, name string) string {
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}

func intArg(args map[string]interface{}, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

// SubmitScanTool queues a scan and optionally waits for its report.
type SubmitScanTool struct {
	Service ScanService
	// WaitTimeout bounds how long a waiting call blocks. Zero means 15 minutes.
	WaitTimeout time.Duration
}

func (t *SubmitScanTool) Name() string { return "RunSecurityScan" }

func (t *SubmitScanTool) Description() string {
	return "Runs a security scan. scan_type is sast (semgrep), sca (trivy filesystem), docker (trivy image) or secrets (gitleaks)."
}

func (t *SubmitScanTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"scan_type": map[string]interface{}{
				"type":        "string",
				"description": "Kind of scan to run.",
				"enum":        []string{"sast", "sca", "docker", "secrets"},
			},
			"target": map[string]interface{}{
				"type":        "string",
				"description": "Directory path, repository path or container image reference.",
			},
			"wait": map[string]interface{}{
				"type":        "boolean",
				"description": "Wait for the scan to finish and return its report.",
			},
		},
		"required": []string{"scan_type", "target"},
	}
}

func (t *SubmitScanTool) Execute(ctx context.Context, args map[string]interface{}, progress func(string)) (string, error) {
	scanType := stringArg(args, "scan_type")
	target := stringArg(args, "target")
	if scanType == "" || target == "" {
		return "Error: scan_type and target are required.", nil
	}

	id, err := t.Service.Submit(ctx, scanType, target)
	if err != nil {
		return fmt.Sprintf("Error submitting scan: %v", err), nil
	}

	wait, _ := args["wait"].(bool)
	if !wait {
		return fmt.Sprintf("Scan %s queued. Use GetScanResult with this id to fetch the report.", id), nil
	}

	if progress != nil {
		progress(fmt.Sprintf("Waiting for %s scan of %s", scanType, target))
	}
	timeout := t.WaitTimeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	job, err := t.Service.Wait(wctx, id, time.Second)
	if err != nil {
		return fmt.Sprintf("Scan %s is still running (%v). Use GetScanResult later.", id, err), nil
	}
	return engine.Report(job), nil
}

// GetScanResultTool prints the report of one job.
type GetScanResultTool struct {
	Repo jobs.Repository
}

func (t *GetScanResultTool) Name() string { return "GetScanResult" }

func (t *GetScanResultTool) Description() string {
	return "Returns the status and findings of a scan by id."
}

func (t *GetScanResultTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"scan_id": map[string]interface{}{"type": "string", "description": "Scan id returned by RunSecurityScan."},
		},
		"required": []string{"scan_id"},
	}
}

func (t *GetScanResultTool) Execute(ctx context.Context, args map[string]interface{}, _ func(string)) (string, error) {
	id := stringArg(args, "scan_id")
	if id == "" {
		return "Error: scan_id is required.", nil
	}
	job, err := t.Repo.GetJob(ctx, id)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	return engine.Report(job), nil
}

// ListScansTool lists recent jobs.
type ListScansTool struct {
	Repo jobs.Repository
}

func (t *ListScansTool) Name() string { return "ListScans" }

func (t *ListScansTool) Description() string {
	return "Lists recent scans, newest first."
}

func (t *ListScansTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{"type": "integer", "description": "Maximum number of scans (default 10)."},
		},
	}
}

func (t *ListScansTool) Execute(ctx context.Context, args map[string]interface{}, _ func(string)) (string, error) {
	list, err := t.Repo.ListJobs(ctx, 0, intArg(args, "limit", 10))
	if err != nil {
		return fmt.Sprintf("Error listing scans: %v", err), nil
	}
	if len(list) == 0 {
		return "No scans yet.", nil
	}

	var sb strings.Builder
	for _, j := range list {
		sb.WriteString(fmt.Sprintf("%s  %-7s %-9s %3d findings  %s\n",
			j.ID, j.Category, j.Status, j.FindingsCount(), j.Target))
	}
	return sb.String(), nil
}

// CompareScansTool diffs the findings of two completed jobs.
type CompareScansTool struct {
	Repo jobs.Repository
}

func (t *CompareScansTool) Name() string { return "CompareScans" }

func (t *CompareScansTool) Description() string {
	return "Compares two scans to identify New, Fixed, and Unchanged risks."
}

func (t *CompareScansTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"baseline_id": map[string]interface{}{"type": "string", "description": "Older scan id."},
			"current_id":  map[string]interface{}{"type": "string", "description": "Newer scan id."},
		},
		"required": []string{"baseline_id", "current_id"},
	}
}

func (t *CompareScansTool) Execute(ctx context.Context, args map[string]interface{}, _ func(string)) (string, error) {
	baseID, curID := stringArg(args, "baseline_id"), stringArg(args, "current_id")
	if baseID == "" || curID == "" {
		return "Error: baseline_id and current_id are required.", nil
	}
	base, err := t.Repo.GetJob(ctx, baseID)
	if err != nil {
		return fmt.Sprintf("Error loading baseline: %v", err), nil
	}
	cur, err := t.Repo.GetJob(ctx, curID)
	if err != nil {
		return fmt.Sprintf("Error loading current scan: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scan Comparison (%s vs %s):\n", curID, baseID))
	sb.WriteString("--------------------------------------------------\n")
	sb.WriteString(engine.DiffReport(engine.CompareFindings(base.Findings, cur.Findings), 10))
	return sb.String(), nil
}

// ScanStatsTool reports dashboard statistics.
type ScanStatsTool struct {
	Repo jobs.StatsRepository
}

func (t *ScanStatsTool) Name() string { return "ScanStatistics" }

func (t *ScanStatsTool) Description() string {
	return "Summarizes all scans: totals per scan type and severity distribution."
}

func (t *ScanStatsTool) Schema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *ScanStatsTool) Execute(ctx context.Context, _ map[string]interface{}, _ func(string)) (string, error) {
	stats, err := t.Repo.Stats(ctx)
	if err != nil {
		return fmt.Sprintf("Error computing statistics: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total scans: %d\n", stats.TotalScans))
	for _, c := range engine.Categories() {
		sb.WriteString(fmt.Sprintf("  %-7s %d\n", c, stats.ScanTypes[c]))
	}
	sb.WriteString("Severity distribution: " + engine.SummaryLine(stats.SeverityDistribution) + "\n")
	return sb.String(), nil
}
