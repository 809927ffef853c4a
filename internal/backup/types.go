// Package backup implements the backup and restore engine: orchestration of
// dump drivers, artifact verification, restore preconditions, retention and
// statistics over the ledger.
package backup

import (
	"time"

	"dbsnap/internal/ledger"
)

// BackupResult is returned to the caller after a successful backup
type BackupResult struct {
	ID           string            `json:"id"`
	Type         ledger.BackupType `json:"type"`
	Status       string            `json:"status"`
	SizeBytes    int64             `json:"size_bytes"`
	Checksum     string            `json:"checksum"`
	Duration     time.Duration     `json:"duration"`
	ArtifactPath string            `json:"artifact_path"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ValidationResult reports the integrity of a stored backup. Validation is a
// query: failures are reported in the result, never raised.
type ValidationResult struct {
	BackupID     string `json:"backup_id"`
	IsValid      bool   `json:"is_valid"`
	ErrorMessage string `json:"error_message,omitempty"`
	Checksum     string `json:"checksum,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
}

// RestoreResult is returned to the caller after a successful restore
type RestoreResult struct {
	RestoreID       string        `json:"restore_id"`
	BackupID        string        `json:"backup_id"`
	Status          string        `json:"status"`
	Duration        time.Duration `json:"duration"`
	RestoredObjects []string      `json:"restored_objects"`
}

// StatusSuccess is the caller-facing status of a completed operation.
const StatusSuccess = "success"
