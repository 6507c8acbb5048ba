package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/user/scanhub/pkg/alerts"
	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/logging"
	"github.com/user/scanhub/pkg/scanners"
)

// ErrShutdown is returned by Submit once the manager stopped accepting jobs.
var ErrShutdown = errors.New("manager is shut down")

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 2

// Selector resolves a category to a scanner.
type Selector interface {
	Select(c engine.Category) (scanners.Scanner, error)
	Validate(category string) (engine.Category, error)
}

// Alerter is notified about completed jobs that produced findings.
type Alerter interface {
	Alert(ctx context.Context, info alerts.ScanInfo, findings []engine.Finding) alerts.Outcome
}

// Options configures a Manager.
type Options struct {
	Workers int
	// Alerter is optional; without one no alerts are sent.
	Alerter Alerter
	// NewID generates job ids for Submit. Defaults to random UUIDs.
	NewID func() string
}

// task is the message a worker receives.
type task struct {
	id       string
	category engine.Category
	target   string
}

// update is the message a worker sends back for the recorder to persist.
type update struct {
	id       string
	category engine.Category
	target   string
	status   engine.Status
	message  string
	findings []engine.Finding
	summary  engine.Summary
}

// Manager runs submitted jobs on a fixed worker pool. Workers never touch the
// repository: they report status changes over a channel to a single recorder.
type Manager struct {
	repo     Repository
	selector Selector
	alerter  Alerter
	newID    func() string
	log      *logrus.Entry

	mu     sync.Mutex
	closed bool

	intake  chan task
	work    chan task
	updates chan update

	workers  sync.WaitGroup
	alerting sync.WaitGroup
	done     chan struct{}
}

// NewManager starts the dispatcher, the workers and the recorder.
func NewManager(repo Repository, selector Selector, opts Options) *Manager {
	n := opts.Workers
	if n <= 0 {
		n = DefaultWorkers
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	m := &Manager{
		repo:     repo,
		selector: selector,
		alerter:  opts.Alerter,
		newID:    newID,
		log:      logging.Component("jobs"),
		intake:   make(chan task),
		work:     make(chan task),
		updates:  make(chan update, n*2),
		done:     make(chan struct{}),
	}

	go m.dispatch()
	for i := 0; i < n; i++ {
		m.workers.Add(1)
		go m.worker(i)
	}
	go func() {
		m.workers.Wait()
		close(m.updates)
	}()
	go m.record()

	m.log.WithField("workers", n).Debug("Job manager started")
	return m
}

// Submit validates the category, stores a pending job and queues it. It never waits for the scan.
func (m *Manager) Submit(ctx context.Context, category, target string) (string, error) {
	return m.SubmitWithID(ctx, m.newID(), category, target)
}

// SubmitWithID is Submit with a caller-chosen job id.
func (m *Manager) SubmitWithID(ctx context.Context, id, category, target string) (string, error) {
	c, err := m.selector.Validate(category)
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", fmt.Errorf("%w: empty target", engine.ErrConfiguration)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrShutdown
	}

	if _, err := m.repo.CreateJob(ctx, id, c, target); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	m.intake <- task{id: id, category: c, target: target}

	m.log.WithFields(logrus.Fields{"job_id": id, "scan_type": c, "target": target}).Info("Job queued")
	return id, nil
}

// Shutdown stops accepting jobs, lets queued jobs finish and waits for
// workers, the recorder and pending alerts, or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.intake)
	}
	m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait polls the repository until the job reaches a terminal status.
func (m *Manager) Wait(ctx context.Context, id string, interval time.Duration) (*engine.ScanJob, error) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := m.repo.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// dispatch moves tasks from intake to the workers, keeping a backlog so
// Submit never waits on busy workers.
func (m *Manager) dispatch() {
	defer close(m.work)

	var backlog []task
	intake := m.intake
	for intake != nil || len(backlog) > 0 {
		var out chan task
		var next task
		if len(backlog) > 0 {
			out = m.work
			next = backlog[0]
		}

		select {
		case t, ok := <-intake:
			if !ok {
				intake = nil
				continue
			}
			backlog = append(backlog, t)
		case out <- next:
			backlog = backlog[1:]
		}
	}
}

func (m *Manager) worker(n int) {
	defer m.workers.Done()
	for t := range m.work {
		m.log.WithFields(logrus.Fields{"worker": n, "job_id": t.id}).Debug("Picked up job")
		m.execute(t)
	}
}

// execute runs one job and reports running followed by exactly one terminal update.
func (m *Manager) execute(t task) {
	m.updates <- update{id: t.id, status: engine.StatusRunning}

	defer func() {
		if r := recover(); r != nil {
			m.log.WithFields(logrus.Fields{"job_id": t.id, "panic": r}).Error("Scan panicked")
			m.log.Debug(string(debug.Stack()))
			m.updates <- update{id: t.id, status: engine.StatusFailed, message: "internal error during scan"}
		}
	}()

	scanner, err := m.selector.Select(t.category)
	if err != nil {
		m.updates <- update{id: t.id, status: engine.StatusFailed, message: err.Error()}
		return
	}

	res := scanner.Scan(context.Background(), t.target)
	if res.Status != scanners.StatusCompleted {
		m.updates <- update{id: t.id, status: engine.StatusFailed, message: res.Message}
		return
	}

	m.updates <- update{
		id:       t.id,
		category: t.category,
		target:   t.target,
		status:   engine.StatusCompleted,
		message:  res.Message,
		findings: res.Findings,
		summary:  engine.Summarize(res.Findings),
	}
}

// record applies worker updates to the repository in arrival order.
func (m *Manager) record() {
	defer func() {
		m.alerting.Wait()
		close(m.done)
	}()

	ctx := context.Background()
	// ids whose running write failed; it is retried before their terminal update
	unstarted := make(map[string]bool)

	for u := range m.updates {
		entry := m.log.WithFields(logrus.Fields{"job_id": u.id, "status": u.status})

		if u.status == engine.StatusRunning {
			if err := m.repo.UpdateStatus(ctx, u.id, u.status, u.message); err != nil {
				entry.WithError(err).Error("Could not mark job running")
				unstarted[u.id] = true
				continue
			}
			entry.Debug("Job status updated")
			continue
		}

		if unstarted[u.id] {
			delete(unstarted, u.id)
			if err := m.repo.UpdateStatus(ctx, u.id, engine.StatusRunning, ""); err != nil {
				entry.WithError(err).Error("Could not mark job running, terminal status dropped")
				continue
			}
		}

		if u.status == engine.StatusCompleted {
			if err := m.repo.UpdateResults(ctx, u.id, u.findings, u.summary); err != nil {
				entry.WithError(err).Error("Could not store results")
				if ferr := m.repo.UpdateStatus(ctx, u.id, engine.StatusFailed, "could not store results"); ferr != nil {
					entry.WithError(ferr).Error("Could not mark job failed")
				}
				continue
			}
			entry.WithField("findings", len(u.findings)).Info("Job completed")
			if len(u.findings) > 0 && m.alerter != nil {
				m.alerting.Add(1)
				go m.alert(u)
			}
			continue
		}

		if err := m.repo.UpdateStatus(ctx, u.id, u.status, u.message); err != nil {
			entry.WithError(err).Error("Could not update job status")
			continue
		}
		entry.WithField("reason", u.message).Warn("Job failed")
	}
}

// alert is best-effort: its outcome is only logged and never changes the job.
func (m *Manager) alert(u update) {
	defer m.alerting.Done()
	defer func() {
		if r := recover(); r != nil {
			m.log.WithFields(logrus.Fields{"job_id": u.id, "panic": r}).Error("Alerting panicked")
		}
	}()

	out := m.alerter.Alert(context.Background(), alerts.ScanInfo{ScanID: u.id, Category: u.category, Target: u.target}, u.findings)
	m.log.WithFields(logrus.Fields{
		"job_id":   u.id,
		"sent":     out.Sent,
		"channels": out.Channels,
		"reason":   out.Reason,
	}).Info("Alert processed")
}
