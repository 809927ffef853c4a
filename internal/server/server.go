// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dbsnap/internal/artifact"
	"dbsnap/internal/backup"
	"dbsnap/internal/ledger"
	"dbsnap/internal/logging"
	"dbsnap/internal/scheduler"
)

// Server wires the engine components behind a REST API.
type Server struct {
	orch     *backup.Orchestrator
	restore  *backup.RestoreOrchestrator
	verifier *backup.Verifier
	sweeper  *backup.Sweeper
	sched    *scheduler.Scheduler
	ledger   *ledger.Store
	store    artifact.Store
	logger   *logging.Logger
}

// Deps carries the engine components the server exposes.
type Deps struct {
	Orchestrator *backup.Orchestrator
	Restore      *backup.RestoreOrchestrator
	Verifier     *backup.Verifier
	Sweeper      *backup.Sweeper
	Scheduler    *scheduler.Scheduler
	Ledger       *ledger.Store
	Store        artifact.Store
	Logger       *logging.Logger
}

// New creates an HTTP server over the given engine components.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Server{
		orch:     deps.Orchestrator,
		restore:  deps.Restore,
		verifier: deps.Verifier,
		sweeper:  deps.Sweeper,
		sched:    deps.Scheduler,
		ledger:   deps.Ledger,
		store:    deps.Store,
		logger:   logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.POST("/backups", s.handleCreateBackup)
		api.GET("/backups", s.handleListBackups)
		api.GET("/backups/:id", s.handleGetBackup)
		api.POST("/backups/:id/validate", s.handleValidateBackup)
		api.POST("/backups/:id/restore", s.handleRestoreBackup)
		api.DELETE("/backups/:id", s.handleDeleteBackup)
		api.POST("/backups/cleanup", s.handleCleanup)
		api.GET("/backup-statistics", s.handleStatistics)

		api.GET("/backup-schedules", s.handleListSchedules)
		api.POST("/backup-schedules", s.handleUpsertSchedule)
		api.PUT("/backup-schedules/:id", s.handleUpsertScheduleByID)
		api.DELETE("/backup-schedules/:id", s.handleDeleteSchedule)
	}
	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Infof("HTTP API listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
