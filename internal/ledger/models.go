package ledger

import (
	"encoding/json"
	"time"
)

// BackupType identifies the kind of snapshot a backup record represents.
type BackupType string

const (
	BackupTypeFull         BackupType = "full"
	BackupTypeIncremental  BackupType = "incremental"
	BackupTypeDifferential BackupType = "differential"
)

// IsValid reports whether the backup type is one of the known variants.
func (t BackupType) IsValid() bool {
	switch t {
	case BackupTypeFull, BackupTypeIncremental, BackupTypeDifferential:
		return true
	default:
		return false
	}
}

// Status values shared by backup records and restore logs.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	// StatusPartial is reserved in the restore-log model for future use;
	// the engine never produces it.
	StatusPartial Status = "partial"
)

// IsTerminal reports whether a status allows no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// BackupRecord is one row per backup attempt. Checksum and SizeBytes are
// populated only when Status is completed; ErrorMessage only when failed.
type BackupRecord struct {
	ID           string     `gorm:"primaryKey;size:64" json:"id"`
	Type         BackupType `gorm:"size:16;index" json:"type"`
	Status       Status     `gorm:"size:16;index" json:"status"`
	ArtifactPath string     `gorm:"size:512" json:"artifact_path"`
	SizeBytes    int64      `json:"size_bytes"`
	Checksum     string     `gorm:"size:64" json:"checksum"`
	DurationMs   int64      `json:"duration_ms"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// TableName sets the backup record table name.
func (*BackupRecord) TableName() string {
	return "backup_records"
}

// RestoreLog is one row per restore attempt, referencing exactly one
// BackupRecord by id.
type RestoreLog struct {
	ID           string     `gorm:"primaryKey;size:64" json:"id"`
	BackupID     string     `gorm:"size:64;index" json:"backup_id"`
	Status       Status     `gorm:"size:16;index" json:"status"`
	DurationMs   int64      `json:"duration_ms"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	// RestoredObjects holds the ordered object names recovered by a
	// successful restore, serialized as a JSON array.
	RestoredObjects string `json:"-"`
}

// TableName sets the restore log table name.
func (*RestoreLog) TableName() string {
	return "backup_restore_logs"
}

// SetRestoredObjects serializes the ordered object list onto the log row.
func (rl *RestoreLog) SetRestoredObjects(objects []string) error {
	data, err := json.Marshal(objects)
	if err != nil {
		return err
	}
	rl.RestoredObjects = string(data)
	return nil
}

// GetRestoredObjects deserializes the ordered object list from the log row.
func (rl *RestoreLog) GetRestoredObjects() []string {
	if rl.RestoredObjects == "" {
		return nil
	}
	var objects []string
	if err := json.Unmarshal([]byte(rl.RestoredObjects), &objects); err != nil {
		return nil
	}
	return objects
}

// BackupSchedule is a named, cron-driven recurring backup definition.
// The scheduler is the sole writer of LastRunAt and NextRunAt.
type BackupSchedule struct {
	ID             string     `gorm:"primaryKey;size:64" json:"id"`
	Name           string     `gorm:"size:128" json:"name"`
	Type           BackupType `gorm:"size:16" json:"type"`
	CronExpression string     `gorm:"size:64" json:"cron_expression"`
	IsActive       bool       `gorm:"index" json:"is_active"`
	RetentionDays  int        `json:"retention_days"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName sets the schedule table name.
func (*BackupSchedule) TableName() string {
	return "backup_schedules"
}

// BackupFilter narrows backup record listings.
type BackupFilter struct {
	Type      BackupType
	Status    Status
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// TypeStatistics is the per-type rollup derived from the backup ledger.
type TypeStatistics struct {
	Type          BackupType `json:"type"`
	TotalAttempts int64      `json:"total_attempts"`
	Successful    int64      `json:"successful"`
	Failed        int64      `json:"failed"`
	AvgDurationMs float64    `json:"avg_duration_ms"`
	TotalBytes    int64      `json:"total_bytes"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
}
