package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scanhub/pkg/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func batch(n int, sev engine.Severity) []engine.Finding {
	out := make([]engine.Finding, n)
	for i := range out {
		out[i] = engine.Finding{
			Tool:        "trivy",
			Severity:    sev,
			Category:    "Dependency Vulnerability",
			Description: fmt.Sprintf("vuln %d", i),
			Location:    "go.sum - pkg",
			Remediation: "1.2.3",
			Reference:   fmt.Sprintf("CVE-2024-%04d", i),
		}
	}
	return out
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mysql"})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	job, err := s.CreateJob(ctx, "job-1", engine.CategorySCA, "/src")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPending, job.Status)
	assert.False(t, job.CreatedAt.IsZero())

	_, err = s.CreateJob(ctx, "job-1", engine.CategorySCA, "/src")
	assert.ErrorIs(t, err, engine.ErrDuplicateJob)

	assert.ErrorIs(t, s.UpdateResults(ctx, "job-1", nil, engine.NewSummary()), engine.ErrInvalidTransition)
	require.NoError(t, s.UpdateStatus(ctx, "job-1", engine.StatusRunning, ""))

	fs := append(batch(2, engine.SeverityCritical), batch(1, engine.SeverityLow)...)
	require.NoError(t, s.UpdateResults(ctx, "job-1", fs, engine.Summarize(fs)))

	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCompleted, got.Status)
	require.Len(t, got.Findings, 3)
	assert.Equal(t, fs[0], got.Findings[0])
	assert.Equal(t, fs[2], got.Findings[2])
	assert.Equal(t, 2, got.Summary[engine.SeverityCritical])
	assert.Equal(t, 1, got.Summary[engine.SeverityLow])
	assert.Equal(t, 0, got.Summary[engine.SeverityHigh])

	assert.ErrorIs(t, s.UpdateStatus(ctx, "job-1", engine.StatusFailed, "late"), engine.ErrInvalidTransition)

	_, err = s.GetJob(ctx, "nope")
	assert.ErrorIs(t, err, engine.ErrNotFound)
	assert.ErrorIs(t, s.UpdateStatus(ctx, "nope", engine.StatusRunning, ""), engine.ErrNotFound)
}

func TestStoreFailedKeepsMessage(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.CreateJob(ctx, "job-1", engine.CategoryDocker, "alpine")
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, "job-1", engine.StatusRunning, ""))
	require.NoError(t, s.UpdateStatus(ctx, "job-1", engine.StatusFailed, "Trivy scan timed out"))

	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusFailed, got.Status)
	assert.Equal(t, "Trivy scan timed out", got.Message)
	assert.Empty(t, got.Findings)
}

func TestStoreUpdateResultsReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.CreateJob(ctx, "job-1", engine.CategorySCA, "/src")
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, "job-1", engine.StatusRunning, ""))

	first := batch(5, engine.SeverityHigh)
	second := batch(2, engine.SeverityMedium)
	require.NoError(t, s.UpdateResults(ctx, "job-1", first, engine.Summarize(first)))
	require.NoError(t, s.UpdateResults(ctx, "job-1", second, engine.Summarize(second)))

	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Len(t, got.Findings, 2)
	assert.Equal(t, 0, got.Summary[engine.SeverityHigh])
	assert.Equal(t, 2, got.Summary[engine.SeverityMedium])

	var n int64
	require.NoError(t, s.db.Model(&FindingRecord{}).Where("scan_id = ?", "job-1").Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestStoreConcurrentWritersPerJob(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.CreateJob(ctx, "job-1", engine.CategorySCA, "/src")
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, "job-1", engine.StatusRunning, ""))

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			fs := batch(n, engine.SeverityLow)
			assert.NoError(t, s.UpdateResults(ctx, "job-1", fs, engine.Summarize(fs)))
		}(i)
	}
	wg.Wait()

	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, len(got.Findings), got.Summary[engine.SeverityLow])
}

func TestStoreListAndStats(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cats := []engine.Category{engine.CategorySAST, engine.CategorySAST, engine.CategorySCA, engine.CategoryDocker, engine.CategorySecrets, engine.CategorySecrets, engine.CategorySecrets}
	for i, c := range cats {
		_, err := s.CreateJob(ctx, fmt.Sprintf("job-%d", i), c, "t")
		require.NoError(t, err)
	}
	require.NoError(t, s.UpdateStatus(ctx, "job-2", engine.StatusRunning, ""))
	fs := append(batch(3, engine.SeverityHigh), batch(2, engine.SeverityInfo)...)
	fs = append(fs, batch(1, engine.SeverityUnknown)...)
	require.NoError(t, s.UpdateResults(ctx, "job-2", fs, engine.Summarize(fs)))

	list, err := s.ListJobs(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "job-6", list[0].ID)
	assert.Nil(t, list[0].Findings)

	list, err = s.ListJobs(ctx, 4, 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "job-2", list[0].ID)
	assert.Equal(t, 6, list[0].FindingsCount())

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalScans)
	assert.Equal(t, 3, stats.ScanTypes[engine.CategorySecrets])
	assert.Equal(t, 2, stats.ScanTypes[engine.CategorySAST])
	assert.Equal(t, 3, stats.SeverityDistribution[engine.SeverityHigh])
	assert.Equal(t, 2, stats.SeverityDistribution[engine.SeverityInfo])
	assert.Equal(t, 0, stats.SeverityDistribution[engine.SeverityCritical])
	assert.NotContains(t, stats.SeverityDistribution, engine.SeverityUnknown)
	assert.Len(t, stats.RecentScans, 5)
}
