package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a ledger row does not exist.
var ErrNotFound = errors.New("ledger: record not found")

// ErrTerminalState is returned when a status update targets a record that
// has already left the pending/in_progress states.
var ErrTerminalState = errors.New("ledger: record is in a terminal state")

// Store is the durable ledger of backup records, restore logs, and
// schedules. Only the orchestrators write records and logs; only the
// scheduler writes schedule run times.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the ledger database at the given DSN and runs
// schema migration. Use ":memory:" for an in-memory ledger.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an existing gorm connection and runs schema migration.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&BackupRecord{}, &RestoreLog{}, &BackupSchedule{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Backup records

// CreateBackupRecord inserts a new backup record.
func (s *Store) CreateBackupRecord(rec *BackupRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return s.db.Create(rec).Error
}

// GetBackupRecord looks up a backup record by id.
func (s *Store) GetBackupRecord(id string) (*BackupRecord, error) {
	var rec BackupRecord
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// MarkBackupCompleted transitions a record to completed and sets the fields
// that exist only on completed records. Terminal records are not updated.
func (s *Store) MarkBackupCompleted(id string, sizeBytes int64, checksum string, durationMs int64) error {
	now := time.Now()
	return s.transitionBackup(id, map[string]interface{}{
		"status":       StatusCompleted,
		"size_bytes":   sizeBytes,
		"checksum":     checksum,
		"duration_ms":  durationMs,
		"completed_at": &now,
	})
}

// MarkBackupFailed transitions a record to failed with the error message.
func (s *Store) MarkBackupFailed(id string, errorMessage string, durationMs int64) error {
	now := time.Now()
	return s.transitionBackup(id, map[string]interface{}{
		"status":        StatusFailed,
		"error_message": errorMessage,
		"duration_ms":   durationMs,
		"completed_at":  &now,
	})
}

func (s *Store) transitionBackup(id string, updates map[string]interface{}) error {
	res := s.db.Model(&BackupRecord{}).
		Where("id = ? AND status IN ?", id, []Status{StatusPending, StatusInProgress}).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetBackupRecord(id); err != nil {
			return err
		}
		return ErrTerminalState
	}
	return nil
}

// DeleteBackupRecord removes a backup record from the ledger.
func (s *Store) DeleteBackupRecord(id string) error {
	res := s.db.Delete(&BackupRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBackupRecords returns records matching the filter, newest first.
func (s *Store) ListBackupRecords(filter BackupFilter) ([]BackupRecord, error) {
	q := s.db.Model(&BackupRecord{}).Order("created_at DESC")

	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		q = q.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("created_at <= ?", *filter.EndDate)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var records []BackupRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// LatestCompleted returns the most recent completed backup of any type, or
// nil when none exists.
func (s *Store) LatestCompleted() (*BackupRecord, error) {
	return s.latestCompleted("")
}

// LatestCompletedOfType returns the most recent completed backup of the
// given type, or nil when none exists.
func (s *Store) LatestCompletedOfType(t BackupType) (*BackupRecord, error) {
	return s.latestCompleted(t)
}

func (s *Store) latestCompleted(t BackupType) (*BackupRecord, error) {
	q := s.db.Where("status = ?", StatusCompleted).Order("created_at DESC")
	if t != "" {
		q = q.Where("type = ?", t)
	}

	var rec BackupRecord
	if err := q.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Restore logs

// CreateRestoreLog inserts a new restore log row.
func (s *Store) CreateRestoreLog(log *RestoreLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	return s.db.Create(log).Error
}

// GetRestoreLog looks up a restore log by id.
func (s *Store) GetRestoreLog(id string) (*RestoreLog, error) {
	var log RestoreLog
	if err := s.db.First(&log, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// MarkRestoreCompleted transitions a restore log to completed with the
// ordered list of restored object names.
func (s *Store) MarkRestoreCompleted(id string, durationMs int64, restoredObjects []string) error {
	log := &RestoreLog{}
	if err := log.SetRestoredObjects(restoredObjects); err != nil {
		return err
	}
	now := time.Now()
	return s.transitionRestore(id, map[string]interface{}{
		"status":           StatusCompleted,
		"duration_ms":      durationMs,
		"restored_objects": log.RestoredObjects,
		"completed_at":     &now,
	})
}

// MarkRestoreFailed transitions a restore log to failed.
func (s *Store) MarkRestoreFailed(id string, errorMessage string, durationMs int64) error {
	now := time.Now()
	return s.transitionRestore(id, map[string]interface{}{
		"status":        StatusFailed,
		"error_message": errorMessage,
		"duration_ms":   durationMs,
		"completed_at":  &now,
	})
}

func (s *Store) transitionRestore(id string, updates map[string]interface{}) error {
	res := s.db.Model(&RestoreLog{}).
		Where("id = ? AND status IN ?", id, []Status{StatusPending, StatusInProgress}).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetRestoreLog(id); err != nil {
			return err
		}
		return ErrTerminalState
	}
	return nil
}

// ListRestoreLogs returns the restore history for a backup, newest first.
func (s *Store) ListRestoreLogs(backupID string) ([]RestoreLog, error) {
	var logs []RestoreLog
	if err := s.db.Where("backup_id = ?", backupID).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// Schedules

// UpsertSchedule creates or updates a schedule keyed by id. Run times are
// preserved on update; the scheduler owns them.
func (s *Store) UpsertSchedule(schedule *BackupSchedule) error {
	existing, err := s.GetSchedule(schedule.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		schedule.LastRunAt = existing.LastRunAt
		schedule.NextRunAt = existing.NextRunAt
		schedule.CreatedAt = existing.CreatedAt
		return s.db.Save(schedule).Error
	}
	return s.db.Create(schedule).Error
}

// GetSchedule looks up a schedule by id.
func (s *Store) GetSchedule(id string) (*BackupSchedule, error) {
	var schedule BackupSchedule
	if err := s.db.First(&schedule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

// ListSchedules returns all schedules, optionally only active ones.
func (s *Store) ListSchedules(activeOnly bool) ([]BackupSchedule, error) {
	q := s.db.Model(&BackupSchedule{}).Order("created_at ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var schedules []BackupSchedule
	if err := q.Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// DeleteSchedule removes a schedule from the ledger.
func (s *Store) DeleteSchedule(id string) error {
	res := s.db.Delete(&BackupSchedule{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScheduleRunTimes records the last and next fire times of a
// schedule. A nil time leaves the corresponding column untouched. Called
// only by the scheduler.
func (s *Store) UpdateScheduleRunTimes(id string, lastRun, nextRun *time.Time) error {
	updates := make(map[string]interface{}, 2)
	if lastRun != nil {
		updates["last_run_at"] = *lastRun
	}
	if nextRun != nil {
		updates["next_run_at"] = *nextRun
	}
	if len(updates) == 0 {
		return nil
	}
	res := s.db.Model(&BackupSchedule{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
