package engine

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a scan job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a job may move from one status to another.
// Every job passes through running; terminal states are final. Repeating the current status is accepted so writes stay idempotent.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}

// Category selects which scanner handles a job.
type Category string

const (
	CategorySAST    Category = "sast"
	CategorySCA     Category = "sca"
	CategoryDocker  Category = "docker"
	CategorySecrets Category = "secrets"
)

// Categories lists the supported scan categories.
func Categories() []Category {
	return []Category{CategorySAST, CategorySCA, CategoryDocker, CategorySecrets}
}

// ParseCategory validates a user supplied category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown scan type %q", ErrConfiguration, s)
}

// ScanJob is one asynchronous scan request and its outcome.
type ScanJob struct {
	ID        string    `json:"id"`
	Category  Category  `json:"scan_type"`
	Target    string    `json:"target"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Findings  []Finding `json:"findings,omitempty"`
	Summary   Summary   `json:"summary,omitempty"`
}

// FindingsCount returns the number of stored findings. It relies on the
// summary so it also works for listings that omit the findings themselves.
func (j *ScanJob) FindingsCount() int {
	if n := j.Summary.Total(); n > 0 {
		return n
	}
	return len(j.Findings)
}

// RecentScan is the short form of a job shown on the dashboard.
type RecentScan struct {
	ID            string    `json:"id"`
	Category      Category  `json:"scan_type"`
	Target        string    `json:"target"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	FindingsCount int       `json:"findings_count"`
}

// DashboardStats aggregates counts over every stored job.
type DashboardStats struct {
	TotalScans           int              `json:"total_scans"`
	ScanTypes            map[Category]int `json:"scan_types"`
	SeverityDistribution Summary          `json:"severity_distribution"`
	RecentScans          []RecentScan     `json:"recent_scans"`
}

// NewDashboardStats returns stats with every distribution bucket present.
func NewDashboardStats() DashboardStats {
	dist := NewSummary()
	dist[SeverityInfo] = 0
	return DashboardStats{
		ScanTypes:            make(map[Category]int),
		SeverityDistribution: dist,
		RecentScans:          make([]RecentScan, 0),
	}
}

// Recent converts a job into its dashboard form.
func (j *ScanJob) Recent() RecentScan {
	return RecentScan{
		ID:            j.ID,
		Category:      j.Category,
		Target:        j.Target,
		Status:        j.Status,
		CreatedAt:     j.CreatedAt,
		FindingsCount: j.FindingsCount(),
	}
}
