// Package api provides the HTTP API for submitting and inspecting scans
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/user/scanhub/pkg/alerts"
	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/jobs"
	"github.com/user/scanhub/pkg/logging"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// DefaultPageSize is the listing size when no limit is given.
const DefaultPageSize = 100

// Config holds API server configuration
type Config struct {
	Port int
}

// Submitter queues scans.
type Submitter interface {
	Submit(ctx context.Context, category, target string) (string, error)
}

// TestAlerter sends the canned test alert.
type TestAlerter interface {
	SendTest(ctx context.Context) alerts.Outcome
}

// Server is the API server
type Server struct {
	echo    *echo.Echo
	config  Config
	jobs    Submitter
	repo    jobs.Repository
	stats   jobs.StatsRepository
	alerter TestAlerter
	log     *logrus.Entry
}

type scanRequest struct {
	ScanType string `json:"scan_type"`
	Target   string `json:"target"`
}

type scanResponse struct {
	ScanID  string        `json:"scan_id"`
	Status  engine.Status `json:"status"`
	Message string        `json:"message"`
}

type scanListItem struct {
	ScanID        string          `json:"scan_id"`
	ScanType      engine.Category `json:"scan_type"`
	Target        string          `json:"target"`
	Status        engine.Status   `json:"status"`
	Timestamp     string          `json:"timestamp"`
	FindingsCount int             `json:"findings_count"`
}

// NewServer creates a new API server. alerter may be nil, in which case the
// test-alert endpoint reports that alerting is disabled.
func NewServer(cfg Config, submitter Submitter, repo jobs.Repository, alerter TestAlerter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.RequestID())

	s := &Server{
		echo:    e,
		config:  cfg,
		jobs:    submitter,
		repo:    repo,
		alerter: alerter,
		log:     logging.Component("api"),
	}
	if st, ok := repo.(jobs.StatsRepository); ok {
		s.stats = st
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.echo.GET("/", s.root)
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api")
	api.POST("/scan", s.startScan)
	api.GET("/scan/:id", s.getScan)
	api.GET("/scans", s.listScans)
	api.GET("/dashboard/stats", s.dashboardStats)
	api.POST("/test-alert", s.testAlert)
}

// ServeHTTP makes the server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start starts the API server
func (s *Server) Start() error {
	s.log.WithField("port", s.config.Port).Info("API listening")
	err := s.echo.Start(fmt.Sprintf(":%d", s.config.Port))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func errorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "scanhub API",
		"version": Version,
	})
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) startScan(c echo.Context) error {
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	id, err := s.jobs.Submit(c.Request().Context(), req.ScanType, req.Target)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrConfiguration):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrDuplicateJob):
		return errorJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, jobs.ErrShutdown):
		return errorJSON(c, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.WithError(err).Error("Failed to start scan")
		return errorJSON(c, http.StatusInternalServerError, "error starting scan")
	}

	return c.JSON(http.StatusOK, scanResponse{
		ScanID:  id,
		Status:  engine.StatusPending,
		Message: fmt.Sprintf("Scan %s initiated for %s", req.ScanType, req.Target),
	})
}

func (s *Server) getScan(c echo.Context) error {
	job, err := s.repo.GetJob(c.Request().Context(), c.Param("id"))
	if errors.Is(err, engine.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "scan not found")
	}
	if err != nil {
		s.log.WithError(err).Error("Failed to load scan")
		return errorJSON(c, http.StatusInternalServerError, "error loading scan")
	}
	job.Summary = job.Summary.Normalized()
	return c.JSON(http.StatusOK, job)
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func (s *Server) listScans(c echo.Context) error {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	limit, err := queryInt(c, "limit", DefaultPageSize)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	list, err := s.repo.ListJobs(c.Request().Context(), offset, limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to list scans")
		return errorJSON(c, http.StatusInternalServerError, "error listing scans")
	}

	items := make([]scanListItem, 0, len(list))
	for _, j := range list {
		items = append(items, scanListItem{
			ScanID:        j.ID,
			ScanType:      j.Category,
			Target:        j.Target,
			Status:        j.Status,
			Timestamp:     j.CreatedAt.Format(time.RFC3339),
			FindingsCount: j.FindingsCount(),
		})
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) dashboardStats(c echo.Context) error {
	if s.stats == nil {
		return errorJSON(c, http.StatusNotImplemented, "statistics not supported by this repository")
	}
	stats, err := s.stats.Stats(c.Request().Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to compute statistics")
		return errorJSON(c, http.StatusInternalServerError, "error computing statistics")
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) testAlert(c echo.Context) error {
	if s.alerter == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "alerting is disabled")
	}
	outcome := s.alerter.SendTest(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Test alert processed",
		"result":  outcome,
	})
}
