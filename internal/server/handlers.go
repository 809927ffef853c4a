package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dbsnap/internal/backup"
	"dbsnap/internal/ledger"
)

type createBackupRequest struct {
	Type ledger.BackupType `json:"type" binding:"required"`
}

func (s *Server) handleCreateBackup(c *gin.Context) {
	var req createBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	result, err := s.orch.CreateBackup(c.Request.Context(), req.Type)
	if err != nil {
		s.renderEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleListBackups(c *gin.Context) {
	filter := ledger.BackupFilter{
		Type:   ledger.BackupType(c.Query("type")),
		Status: ledger.Status(c.Query("status")),
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, want RFC3339"})
			return
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, want RFC3339"})
			return
		}
		filter.EndDate = &t
	}

	records, err := s.orch.ListBackups(filter)
	if err != nil {
		s.renderEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": records, "count": len(records)})
}

func (s *Server) handleGetBackup(c *gin.Context) {
	rec, err := s.ledger.GetBackupRecord(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "backup not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleValidateBackup(c *gin.Context) {
	// Validation is a query; its failures live in the body, not the status.
	result := s.verifier.ValidateBackup(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRestoreBackup(c *gin.Context) {
	result, err := s.restore.RestoreFromBackup(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDeleteBackup(c *gin.Context) {
	if err := s.orch.DeleteBackup(c.Request.Context(), c.Param("id")); err != nil {
		s.renderEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCleanup(c *gin.Context) {
	count, err := s.sweeper.CleanupOldBackups(c.Request.Context())
	if err != nil {
		s.renderEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_count": count})
}

func (s *Server) handleStatistics(c *gin.Context) {
	stats, err := backup.GetBackupStatistics(s.ledger)
	if err != nil {
		s.renderEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}

type scheduleRequest struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Type           ledger.BackupType `json:"type" binding:"required"`
	CronExpression string            `json:"cron_expression" binding:"required"`
	IsActive       bool              `json:"is_active"`
	RetentionDays  int               `json:"retention_days"`
}

func (s *Server) handleListSchedules(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	schedules, err := s.ledger.ListSchedules(activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules, "count": len(schedules)})
}

func (s *Server) handleUpsertSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "schedule id is required"})
		return
	}
	s.upsertSchedule(c, &req)
}

func (s *Server) handleUpsertScheduleByID(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	req.ID = c.Param("id")
	s.upsertSchedule(c, &req)
}

func (s *Server) upsertSchedule(c *gin.Context, req *scheduleRequest) {
	schedule := &ledger.BackupSchedule{
		ID:             req.ID,
		Name:           req.Name,
		Type:           req.Type,
		CronExpression: req.CronExpression,
		IsActive:       req.IsActive,
		RetentionDays:  req.RetentionDays,
	}
	if err := s.sched.ScheduleBackup(schedule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := s.ledger.GetSchedule(schedule.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (s *Server) handleDeleteSchedule(c *gin.Context) {
	if err := s.sched.RemoveSchedule(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// renderEngineError maps the engine's error taxonomy onto HTTP statuses.
func (s *Server) renderEngineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case backup.IsNotFound(err):
		status = http.StatusNotFound
	case backup.IsPrecondition(err):
		status = http.StatusConflict
	}

	var engineErr *backup.EngineError
	if errors.As(err, &engineErr) {
		if engineErr.Type == backup.EngineErrorTypeValidation {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": engineErr.Message, "type": string(engineErr.Type)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
