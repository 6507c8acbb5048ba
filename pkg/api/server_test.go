package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scanhub/pkg/alerts"
	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/jobs"
)

// stubSubmitter stores pending jobs without running anything.
type stubSubmitter struct {
	repo *jobs.MemoryRepository
	n    int
	err  error
}

func (s *stubSubmitter) Submit(ctx context.Context, category, target string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	c, err := engine.ParseCategory(category)
	if err != nil {
		return "", err
	}
	s.n++
	id := fmt.Sprintf("scan-%d", s.n)
	if _, err := s.repo.CreateJob(ctx, id, c, target); err != nil {
		return "", err
	}
	return id, nil
}

func newTestServer(t *testing.T) (*Server, *jobs.MemoryRepository, *bytes.Buffer) {
	t.Helper()
	repo := jobs.NewMemoryRepository()
	var out bytes.Buffer
	alerter := alerts.New(&alerts.Console{Out: &out})
	return NewServer(Config{Port: 0}, &stubSubmitter{repo: repo}, repo, alerter), repo, &out
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestStartScan(t *testing.T) {
	s, repo, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/scan", `{"scan_type":"sast","target":"./app"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp scanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "scan-1", resp.ScanID)
	assert.Equal(t, engine.StatusPending, resp.Status)
	assert.Equal(t, "Scan sast initiated for ./app", resp.Message)

	job, err := repo.GetJob(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPending, job.Status)
}

func TestStartScanErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body string
		code int
	}{
		{"unknown type", nil, `{"scan_type":"dast","target":"x"}`, http.StatusBadRequest},
		{"bad json", nil, `{"scan_type":`, http.StatusBadRequest},
		{"shut down", jobs.ErrShutdown, `{"scan_type":"sast","target":"x"}`, http.StatusServiceUnavailable},
		{"duplicate", fmt.Errorf("create job: %w", engine.ErrDuplicateJob), `{"scan_type":"sast","target":"x"}`, http.StatusConflict},
		{"storage", fmt.Errorf("disk full"), `{"scan_type":"sast","target":"x"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := jobs.NewMemoryRepository()
			s := NewServer(Config{}, &stubSubmitter{repo: repo, err: tt.err}, repo, nil)
			rec := do(t, s, http.MethodPost, "/api/scan", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestGetScan(t *testing.T) {
	s, repo, _ := newTestServer(t)
	ctx := context.Background()

	rec := do(t, s, http.MethodGet, "/api/scan/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := repo.CreateJob(ctx, "a", engine.CategorySecrets, ".")
	require.NoError(t, err)
	rec = do(t, s, http.MethodGet, "/api/scan/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pending map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	assert.Equal(t, "pending", pending["status"])
	assert.Equal(t, map[string]interface{}{"critical": 0.0, "high": 0.0, "medium": 0.0, "low": 0.0}, pending["summary"])

	findings := []engine.Finding{{Tool: "gitleaks", Severity: engine.SeverityHigh, Category: "generic-api-key", Location: "a.env:2"}}
	require.NoError(t, repo.UpdateStatus(ctx, "a", engine.StatusRunning, ""))
	require.NoError(t, repo.UpdateResults(ctx, "a", findings, engine.Summarize(findings)))

	rec = do(t, s, http.MethodGet, "/api/scan/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var job engine.ScanJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, engine.StatusCompleted, job.Status)
	assert.Equal(t, engine.CategorySecrets, job.Category)
	require.Len(t, job.Findings, 1)
	assert.Equal(t, 1, job.Summary[engine.SeverityHigh])
	assert.Equal(t, 0, job.Summary[engine.SeverityCritical])
}

func TestListScans(t *testing.T) {
	s, _, _ := newTestServer(t)
	for i := 0; i < 3; i++ {
		rec := do(t, s, http.MethodPost, "/api/scan", `{"scan_type":"sca","target":"."}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/api/scans?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []scanListItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 2)
	assert.Equal(t, engine.CategorySCA, items[0].ScanType)

	rec = do(t, s, http.MethodGet, "/api/scans?offset=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardStats(t *testing.T) {
	s, _, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/scan", `{"scan_type":"docker","target":"nginx:latest"}`)

	rec := do(t, s, http.MethodGet, "/api/dashboard/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats engine.DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalScans)
	assert.Equal(t, 1, stats.ScanTypes[engine.CategoryDocker])
	assert.Len(t, stats.RecentScans, 1)
}

func TestTestAlert(t *testing.T) {
	s, _, out := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/test-alert", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Message string         `json:"message"`
		Result  alerts.Outcome `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Result.Sent)
	assert.True(t, body.Result.Channels["console"])
	assert.Contains(t, out.String(), alerts.TestScanInfo.ScanID)

	disabled := NewServer(Config{}, &stubSubmitter{}, jobs.NewMemoryRepository(), nil)
	rec = do(t, disabled, http.MethodPost, "/api/test-alert", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
