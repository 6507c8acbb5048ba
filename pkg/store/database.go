// Package store persists scan jobs in SQLite or PostgreSQL through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite" // Pure Go SQLite (no CGO required)
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/jobs"
	"github.com/user/scanhub/pkg/logging"
)

// Config holds database configuration
type Config struct {
	Driver string // "sqlite" or "postgres"
	DSN    string // Data Source Name
	Debug  bool   // Enable query logging
}

// DefaultSQLiteConfig returns config for the local SQLite database under dir.
func DefaultSQLiteConfig(dir string) Config {
	return Config{
		Driver: "sqlite",
		DSN:    filepath.Join(dir, "scanhub.db"),
	}
}

// Store is a jobs.StatsRepository backed by gorm.
type Store struct {
	db     *gorm.DB
	writes jobs.KeyedMutex
	log    *logrus.Entry
}

var _ jobs.StatsRepository = (*Store)(nil)

// Open connects to the database and runs migrations.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "", "sqlite":
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		sep := "?"
		if strings.Contains(cfg.DSN, "?") {
			sep = "&"
		}
		dialector = sqlite.Open(cfg.DSN + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver: %s", engine.ErrConfiguration, cfg.Driver)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "" || cfg.Driver == "sqlite" {
		// SQLite allows a single writer; one connection avoids "database is locked".
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err := db.AutoMigrate(&ScanRecord{}, &FindingRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, log: logging.Component("store")}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateJob(ctx context.Context, id string, category engine.Category, target string) (*engine.ScanJob, error) {
	unlock := s.writes.Lock(id)
	defer unlock()

	summary, err := encodeSummary(engine.NewSummary())
	if err != nil {
		return nil, err
	}
	rec := &ScanRecord{
		ID:       id,
		ScanType: string(category),
		Target:   target,
		Status:   string(engine.StatusPending),
		Summary:  summary,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&ScanRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", engine.ErrDuplicateJob, id)
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec.toJob(), nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*engine.ScanJob, error) {
	var rec ScanRecord
	err := s.db.WithContext(ctx).
		Preload("Findings", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, notFound(id, err)
	}
	return rec.toJob(), nil
}

func (s *Store) ListJobs(ctx context.Context, offset, limit int) ([]*engine.ScanJob, error) {
	if offset < 0 {
		offset = 0
	}
	q := s.db.WithContext(ctx).Order("created_at DESC").Order("seq DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var recs []ScanRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}

	out := make([]*engine.ScanJob, len(recs))
	for i := range recs {
		out[i] = recs[i].toJob()
	}
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status engine.Status, message string) error {
	unlock := s.writes.Lock(id)
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := load(tx, id)
		if err != nil {
			return err
		}
		from := engine.Status(rec.Status)
		if !engine.CanTransition(from, status) {
			return fmt.Errorf("%w: %s -> %s", engine.ErrInvalidTransition, from, status)
		}
		if status == engine.StatusCompleted && from != engine.StatusCompleted {
			return fmt.Errorf("%w: completed requires results", engine.ErrInvalidTransition)
		}
		return tx.Model(rec).Updates(map[string]any{
			"status":  string(status),
			"message": message,
		}).Error
	})
}

// UpdateResults replaces the stored findings in one transaction: delete, insert, mark completed.
func (s *Store) UpdateResults(ctx context.Context, id string, findings []engine.Finding, summary engine.Summary) error {
	unlock := s.writes.Lock(id)
	defer unlock()

	encoded, err := encodeSummary(summary)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := load(tx, id)
		if err != nil {
			return err
		}
		from := engine.Status(rec.Status)
		if !engine.CanTransition(from, engine.StatusCompleted) {
			return fmt.Errorf("%w: %s -> %s", engine.ErrInvalidTransition, from, engine.StatusCompleted)
		}

		if err := tx.Where("scan_id = ?", id).Delete(&FindingRecord{}).Error; err != nil {
			return err
		}
		if len(findings) > 0 {
			if err := tx.CreateInBatches(findingRecords(id, findings), 100).Error; err != nil {
				return err
			}
		}
		return tx.Model(rec).Updates(map[string]any{
			"status":         string(engine.StatusCompleted),
			"summary":        encoded,
			"findings_count": len(findings),
		}).Error
	})
}

// Stats aggregates dashboard statistics with SQL queries.
func (s *Store) Stats(ctx context.Context) (engine.DashboardStats, error) {
	stats := engine.NewDashboardStats()
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&ScanRecord{}).Count(&total).Error; err != nil {
		return stats, err
	}
	stats.TotalScans = int(total)

	var types []struct {
		ScanType string
		N        int
	}
	if err := db.Model(&ScanRecord{}).Select("scan_type, count(*) AS n").Group("scan_type").Scan(&types).Error; err != nil {
		return stats, err
	}
	for _, t := range types {
		stats.ScanTypes[engine.Category(t.ScanType)] = t.N
	}

	tracked := make([]string, 0, len(stats.SeverityDistribution))
	for sev := range stats.SeverityDistribution {
		tracked = append(tracked, string(sev))
	}
	var sevs []struct {
		Severity string
		N        int
	}
	if err := db.Model(&FindingRecord{}).Select("severity, count(*) AS n").
		Where("severity IN ?", tracked).Group("severity").Scan(&sevs).Error; err != nil {
		return stats, err
	}
	for _, sv := range sevs {
		stats.SeverityDistribution[engine.Severity(sv.Severity)] = sv.N
	}

	recent, err := s.ListJobs(ctx, 0, jobs.RecentLimit)
	if err != nil {
		return stats, err
	}
	for _, j := range recent {
		stats.RecentScans = append(stats.RecentScans, j.Recent())
	}
	return stats, nil
}

func load(tx *gorm.DB, id string) (*ScanRecord, error) {
	var rec ScanRecord
	if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, notFound(id, err)
	}
	return &rec, nil
}

func notFound(id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", engine.ErrNotFound, id)
	}
	return err
}
