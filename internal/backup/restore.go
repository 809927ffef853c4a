package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"dbsnap/internal/driver"
	"dbsnap/internal/ledger"
	"dbsnap/internal/logging"
)

// RestoreOrchestrator coordinates the restore lifecycle: precondition checks,
// artifact validation, driver invocation and restore-log bookkeeping.
type RestoreOrchestrator struct {
	ledger       *ledger.Store
	verifier     *Verifier
	orchestrator *Orchestrator
	restorer     driver.RestoreDriver
	logger       *logging.Logger
}

// NewRestoreOrchestrator creates a restore orchestrator. The backup
// orchestrator is needed to unpack artifacts with the same compression and
// encryption settings they were written with.
func NewRestoreOrchestrator(ledgerStore *ledger.Store, verifier *Verifier, orchestrator *Orchestrator, restorer driver.RestoreDriver, logger *logging.Logger) (*RestoreOrchestrator, error) {
	if ledgerStore == nil {
		return nil, NewConfigurationError("ledger store is required", nil)
	}
	if verifier == nil {
		return nil, NewConfigurationError("verifier is required", nil)
	}
	if orchestrator == nil {
		return nil, NewConfigurationError("backup orchestrator is required", nil)
	}
	if restorer == nil {
		return nil, NewConfigurationError("restore driver is required", nil)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &RestoreOrchestrator{
		ledger:       ledgerStore,
		verifier:     verifier,
		orchestrator: orchestrator,
		restorer:     restorer,
		logger:       logger,
	}, nil
}

// RestoreFromBackup restores the datastore from a completed backup. The
// backup must exist and be completed, and its artifact must pass validation,
// before the restore driver is invoked. Failures after that point are
// recorded in the restore log and propagate to the caller; there is no
// partial-success result.
func (r *RestoreOrchestrator) RestoreFromBackup(ctx context.Context, backupID string) (*RestoreResult, error) {
	rec, err := r.ledger.GetBackupRecord(backupID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, NewPreconditionError("Restore failed: backup not found or not completed", nil)
		}
		return nil, NewLedgerError("failed to look up backup record", err)
	}
	if rec.Status != ledger.StatusCompleted {
		return nil, NewPreconditionError("Restore failed: backup not found or not completed", nil).
			WithContext("backup_id", backupID).
			WithContext("status", string(rec.Status))
	}

	if result := r.verifier.ValidateBackup(ctx, backupID); !result.IsValid {
		r.recordFailedRestore(backupID, fmt.Sprintf("validation failed: %s", result.ErrorMessage), 0)
		return nil, NewValidationError(fmt.Sprintf("Restore failed: %s", result.ErrorMessage), nil).
			WithContext("backup_id", backupID)
	}

	log := &ledger.RestoreLog{
		ID:        uuid.New().String(),
		BackupID:  backupID,
		Status:    ledger.StatusInProgress,
		CreatedAt: time.Now(),
	}
	if err := r.ledger.CreateRestoreLog(log); err != nil {
		return nil, NewLedgerError("failed to create restore log", err)
	}

	start := time.Now()
	objects, err := r.runRestore(ctx, rec)
	duration := time.Since(start)
	if err != nil {
		if lerr := r.ledger.MarkRestoreFailed(log.ID, err.Error(), duration.Milliseconds()); lerr != nil {
			r.logger.Errorf("Failed to record restore failure for %s: %v", log.ID, lerr)
		}
		r.logger.LogRestoreOperation(backupID, 0, duration, err)
		return nil, NewDriverError("Restore failed", err).WithContext("backup_id", backupID)
	}

	if err := r.ledger.MarkRestoreCompleted(log.ID, duration.Milliseconds(), objects); err != nil {
		return nil, NewLedgerError("failed to finalize restore log", err)
	}

	r.logger.LogRestoreOperation(backupID, len(objects), duration, nil)
	return &RestoreResult{
		RestoreID:       log.ID,
		BackupID:        backupID,
		Status:          StatusSuccess,
		Duration:        duration,
		RestoredObjects: objects,
	}, nil
}

// runRestore unpacks the artifact into a staging file and replays it through
// the restore driver, returning the ordered restored-object inventory.
func (r *RestoreOrchestrator) runRestore(ctx context.Context, rec *ledger.BackupRecord) ([]string, error) {
	stagingPath, err := r.orchestrator.unpackArtifact(ctx, rec.ArtifactPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(stagingPath)

	output, err := r.restorer.Restore(ctx, stagingPath)
	if err != nil {
		return nil, err
	}
	return parseRestoredObjects(output), nil
}

// recordFailedRestore writes a failed restore-log row for failures that
// happen before the driver is invoked.
func (r *RestoreOrchestrator) recordFailedRestore(backupID, message string, durationMs int64) {
	log := &ledger.RestoreLog{
		ID:           uuid.New().String(),
		BackupID:     backupID,
		Status:       ledger.StatusFailed,
		DurationMs:   durationMs,
		ErrorMessage: message,
		CreatedAt:    time.Now(),
	}
	if err := r.ledger.CreateRestoreLog(log); err != nil {
		r.logger.Errorf("Failed to record restore failure for backup %s: %v", backupID, err)
	}
}

// parseRestoredObjects splits driver output into an ordered object list, one
// name per non-empty line.
func parseRestoredObjects(output string) []string {
	var objects []string
	for _, line := range strings.Split(output, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			objects = append(objects, name)
		}
	}
	return objects
}
