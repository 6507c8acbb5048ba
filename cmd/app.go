package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/scanhub/pkg/alerts"
	"github.com/user/scanhub/pkg/config"
	"github.com/user/scanhub/pkg/jobs"
	"github.com/user/scanhub/pkg/process"
	"github.com/user/scanhub/pkg/scanners"
	"github.com/user/scanhub/pkg/store"
)

// app wires the repository, scanners, alert engine and job manager from one config.
type app struct {
	cfg     *config.Config
	repo    jobs.Repository
	alerter *alerts.Engine
	manager *jobs.Manager

	closeRepo func() error
}

func openRepository(cfg *config.Config) (jobs.Repository, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if cfg.Database.Driver == "memory" {
		return jobs.NewMemoryRepository(), func() error { return nil }, nil
	}

	dbConfig := store.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Debug:  cfg.Database.Debug,
	}
	if dbConfig.Driver == "sqlite" && dbConfig.DSN == "" {
		dir, err := configDir()
		if err != nil {
			return nil, nil, err
		}
		dbConfig = store.DefaultSQLiteConfig(dir)
		dbConfig.Debug = cfg.Database.Debug
	}

	st, err := store.Open(dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return st, st.Close, nil
}

// configDir is the directory holding the active config file.
func configDir() (string, error) {
	if ConfigFile != "" {
		return filepath.Dir(ConfigFile), nil
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

func newAlerter(cfg *config.Config) *alerts.Engine {
	d := alerts.Destinations{
		DiscordWebhook: cfg.Alerts.DiscordWebhook,
		SlackWebhook:   cfg.Alerts.SlackWebhook,
		Timeout:        cfg.Alerts.Timeout,
	}
	if cfg.Alerts.Console {
		d.Console = os.Stdout
	}
	return alerts.NewFromDestinations(d)
}

func newSelector(cfg *config.Config) *scanners.Selector {
	return scanners.NewSelector(process.ExecRunner{}, scanners.Config{
		SemgrepBinary:  cfg.Scanners.Semgrep.Binary,
		SemgrepRules:   cfg.Scanners.Semgrep.Rules,
		TrivyBinary:    cfg.Scanners.Trivy.Binary,
		GitleaksBinary: cfg.Scanners.Gitleaks.Binary,
		Timeout:        cfg.Scanners.Timeout,
		ImageTimeout:   cfg.Scanners.ImageTimeout,
	})
}

func newApp(cfg *config.Config) (*app, error) {
	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return nil, err
	}

	alerter := newAlerter(cfg)
	manager := jobs.NewManager(repo, newSelector(cfg), jobs.Options{
		Workers: cfg.Workers,
		Alerter: alerter,
	})

	return &app{
		cfg:       cfg,
		repo:      repo,
		alerter:   alerter,
		manager:   manager,
		closeRepo: closeRepo,
	}, nil
}

// Close drains the manager, then releases the repository.
func (a *app) Close(ctx context.Context) error {
	err := a.manager.Shutdown(ctx)
	if cerr := a.closeRepo(); err == nil {
		err = cerr
	}
	return err
}
