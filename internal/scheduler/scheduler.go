// Package scheduler runs cron-driven recurring backups. Schedules are
// durable ledger rows; only the in-memory job handles are ephemeral.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dbsnap/internal/backup"
	"dbsnap/internal/ledger"
	"dbsnap/internal/logging"
)

// Scheduler maps schedule ids to running cron jobs. All registration and
// deregistration goes through one mutex; registrations are infrequent enough
// that finer locking buys nothing.
type Scheduler struct {
	ledger *ledger.Store
	orch   *backup.Orchestrator
	logger *logging.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	started bool
}

// New creates a scheduler. Call Start to load persisted schedules and begin
// firing.
func New(ledgerStore *ledger.Store, orch *backup.Orchestrator, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Scheduler{
		ledger:  ledgerStore,
		orch:    orch,
		logger:  logger,
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
	}
}

// Start loads every active schedule from the ledger, registers it and starts
// the cron loop. Schedules survive process restarts.
func (s *Scheduler) Start() error {
	schedules, err := s.ledger.ListSchedules(true)
	if err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}

	for i := range schedules {
		if err := s.ScheduleBackup(&schedules[i]); err != nil {
			s.logger.Errorf("Failed to register schedule %s: %v", schedules[i].ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
	s.logger.Infof("Scheduler started with %d active schedule(s)", len(schedules))
	return nil
}

// ScheduleBackup persists the schedule and registers its cron job. An
// existing job for the same id is stopped and discarded first, so calling
// this twice never leaves two timers firing. Inactive schedules are persisted
// without a job.
func (s *Scheduler) ScheduleBackup(schedule *ledger.BackupSchedule) error {
	if !schedule.Type.IsValid() {
		return fmt.Errorf("invalid backup type: %s", schedule.Type)
	}
	if schedule.CronExpression == "" {
		return fmt.Errorf("cron expression is required")
	}
	if _, err := cron.ParseStandard(schedule.CronExpression); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule.CronExpression, err)
	}

	if err := s.ledger.UpsertSchedule(schedule); err != nil {
		return fmt.Errorf("failed to persist schedule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.unregisterLocked(schedule.ID)

	if !schedule.IsActive {
		return nil
	}

	id := schedule.ID
	entryID, err := s.cron.AddFunc(schedule.CronExpression, func() {
		// Fires run in cron's own goroutines, so a slow dump never
		// delays the next tick of other schedules.
		s.fire(id)
	})
	if err != nil {
		return fmt.Errorf("failed to register cron job: %w", err)
	}
	s.entries[schedule.ID] = entryID

	next := s.cron.Entry(entryID).Next
	if !next.IsZero() {
		if err := s.ledger.UpdateScheduleRunTimes(schedule.ID, nil, &next); err != nil {
			s.logger.Warnf("Failed to record next run time for schedule %s: %v", schedule.ID, err)
		}
	}
	return nil
}

// RemoveSchedule stops the schedule's job and deletes the ledger row.
func (s *Scheduler) RemoveSchedule(id string) error {
	s.mu.Lock()
	s.unregisterLocked(id)
	s.mu.Unlock()

	if err := s.ledger.DeleteSchedule(id); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

// IsRegistered reports whether a cron job is currently registered for the id.
func (s *Scheduler) IsRegistered(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// RegisteredCount returns the number of live cron registrations.
func (s *Scheduler) RegisteredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Destroy stops every registered job and the cron loop, waiting for any
// in-flight fire to return. Used at orderly shutdown so nothing fires after
// the rest of the engine is gone.
func (s *Scheduler) Destroy() {
	s.mu.Lock()
	for id := range s.entries {
		s.cron.Remove(s.entries[id])
		delete(s.entries, id)
	}
	started := s.started
	s.started = false
	s.mu.Unlock()

	if started {
		<-s.cron.Stop().Done()
	}
	s.logger.Info("Scheduler stopped")
}

// fire runs one scheduled backup. Errors are logged and swallowed: a single
// schedule's failure must not crash the scheduler or block other schedules.
func (s *Scheduler) fire(scheduleID string) {
	schedule, err := s.ledger.GetSchedule(scheduleID)
	if err != nil {
		s.logger.Errorf("Scheduled fire for %s could not load the schedule: %v", scheduleID, err)
		return
	}

	_, err = s.orch.CreateBackup(context.Background(), schedule.Type)
	s.logger.LogScheduleFire(schedule.ID, schedule.Name, string(schedule.Type), err)

	now := time.Now()
	var next *time.Time
	s.mu.Lock()
	if entryID, ok := s.entries[scheduleID]; ok {
		if n := s.cron.Entry(entryID).Next; !n.IsZero() {
			next = &n
		}
	}
	s.mu.Unlock()

	if err := s.ledger.UpdateScheduleRunTimes(scheduleID, &now, next); err != nil {
		s.logger.Warnf("Failed to record run times for schedule %s: %v", scheduleID, err)
	}
}

// unregisterLocked removes the id's cron job if one exists. Caller holds mu.
func (s *Scheduler) unregisterLocked(id string) {
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
}
