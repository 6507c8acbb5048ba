// Package jobs owns the scan job lifecycle: persistence contract, worker pool and state transitions.
package jobs

import (
	"context"

	"github.com/user/scanhub/pkg/engine"
)

// Repository persists scan jobs. Implementations must reject non-monotonic
// status changes with engine.ErrInvalidTransition and allow at most one
// concurrent writer per job id.
type Repository interface {
	// CreateJob stores a new pending job. A reused id fails with engine.ErrDuplicateJob.
	CreateJob(ctx context.Context, id string, category engine.Category, target string) (*engine.ScanJob, error)
	// GetJob returns the job with its findings, or engine.ErrNotFound.
	GetJob(ctx context.Context, id string) (*engine.ScanJob, error)
	// ListJobs returns jobs newest first without their findings.
	ListJobs(ctx context.Context, offset, limit int) ([]*engine.ScanJob, error)
	UpdateStatus(ctx context.Context, id string, status engine.Status, message string) error
	// UpdateResults replaces the job's findings and summary and marks it completed.
	UpdateResults(ctx context.Context, id string, findings []engine.Finding, summary engine.Summary) error
}

// StatsRepository is implemented by repositories that can aggregate dashboard statistics.
type StatsRepository interface {
	Repository
	Stats(ctx context.Context) (engine.DashboardStats, error)
}

// RecentLimit is the number of jobs listed in dashboard statistics.
const RecentLimit = 5

// ComputeStats aggregates statistics from jobs ordered newest first.
func ComputeStats(jobs []*engine.ScanJob) engine.DashboardStats {
	stats := engine.NewDashboardStats()
	stats.TotalScans = len(jobs)
	for i, j := range jobs {
		stats.ScanTypes[j.Category]++
		for _, f := range j.Findings {
			if _, tracked := stats.SeverityDistribution[f.Severity]; tracked {
				stats.SeverityDistribution[f.Severity]++
			}
		}
		if i < RecentLimit {
			stats.RecentScans = append(stats.RecentScans, j.Recent())
		}
	}
	return stats
}
