package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/user/scanhub/pkg/engine"
)

// MemoryRepository keeps jobs in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	jobs   map[string]*engine.ScanJob
	writes KeyedMutex
	now    func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs: make(map[string]*engine.ScanJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) CreateJob(_ context.Context, id string, category engine.Category, target string) (*engine.ScanJob, error) {
	unlock := r.writes.Lock(id)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[id]; exists {
		return nil, fmt.Errorf("%w: %s", engine.ErrDuplicateJob, id)
	}

	now := r.now()
	job := &engine.ScanJob{
		ID:        id,
		Category:  category,
		Target:    target,
		Status:    engine.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Summary:   engine.NewSummary(),
	}
	r.jobs[id] = job
	return clone(job, true), nil
}

func (r *MemoryRepository) GetJob(_ context.Context, id string) (*engine.ScanJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrNotFound, id)
	}
	return clone(job, true), nil
}

func (r *MemoryRepository) ListJobs(_ context.Context, offset, limit int) ([]*engine.ScanJob, error) {
	r.mu.RLock()
	all := make([]*engine.ScanJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		all = append(all, clone(j, false))
	}
	r.mu.RUnlock()

	sortNewestFirst(all)
	return page(all, offset, limit), nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, status engine.Status, message string) error {
	unlock := r.writes.Lock(id)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrNotFound, id)
	}
	if !engine.CanTransition(job.Status, status) {
		return fmt.Errorf("%w: %s -> %s", engine.ErrInvalidTransition, job.Status, status)
	}
	if status == engine.StatusCompleted && job.Status != engine.StatusCompleted {
		return fmt.Errorf("%w: completed requires results", engine.ErrInvalidTransition)
	}

	job.Status = status
	job.Message = message
	job.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) UpdateResults(_ context.Context, id string, findings []engine.Finding, summary engine.Summary) error {
	unlock := r.writes.Lock(id)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrNotFound, id)
	}
	if !engine.CanTransition(job.Status, engine.StatusCompleted) {
		return fmt.Errorf("%w: %s -> %s", engine.ErrInvalidTransition, job.Status, engine.StatusCompleted)
	}

	job.Findings = append([]engine.Finding(nil), findings...)
	job.Summary = summary.Normalized()
	job.Status = engine.StatusCompleted
	job.UpdatedAt = r.now()
	return nil
}

// Stats aggregates dashboard statistics over every job.
func (r *MemoryRepository) Stats(_ context.Context) (engine.DashboardStats, error) {
	r.mu.RLock()
	all := make([]*engine.ScanJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		all = append(all, clone(j, true))
	}
	r.mu.RUnlock()

	sortNewestFirst(all)
	return ComputeStats(all), nil
}

func clone(j *engine.ScanJob, withFindings bool) *engine.ScanJob {
	c := *j
	c.Summary = j.Summary.Normalized()
	c.Findings = nil
	if withFindings && len(j.Findings) > 0 {
		c.Findings = append([]engine.Finding(nil), j.Findings...)
	}
	return &c
}

func sortNewestFirst(jobs []*engine.ScanJob) {
	sort.SliceStable(jobs, func(a, b int) bool {
		if jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].ID > jobs[b].ID
		}
		return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
	})
}

func page(jobs []*engine.ScanJob, offset, limit int) []*engine.ScanJob {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(jobs) {
		return []*engine.ScanJob{}
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}
