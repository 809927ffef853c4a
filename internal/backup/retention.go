package backup

import (
	"context"
	"errors"
	"time"

	"dbsnap/internal/artifact"
	"dbsnap/internal/ledger"
	"dbsnap/internal/logging"
)

// DefaultRetentionDays is the horizon for ad-hoc backups not covered by any
// schedule's retention policy.
const DefaultRetentionDays = 30

// Sweeper removes expired completed backups. Artifact deletion is best
// effort: a failed file deletion is a warning, ledger consistency wins.
type Sweeper struct {
	ledger        *ledger.Store
	store         artifact.Store
	logger        *logging.Logger
	retentionDays int
}

// NewSweeper creates a retention sweeper. retentionDays <= 0 falls back to
// the default horizon.
func NewSweeper(ledgerStore *ledger.Store, store artifact.Store, logger *logging.Logger, retentionDays int) *Sweeper {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Sweeper{
		ledger:        ledgerStore,
		store:         store,
		logger:        logger,
		retentionDays: retentionDays,
	}
}

// CleanupOldBackups deletes expired completed backups and returns the number
// of ledger rows reclaimed. A backup's horizon comes from the longest
// retention among active schedules of its type; backups of types no schedule
// covers use the sweeper's default.
func (s *Sweeper) CleanupOldBackups(ctx context.Context) (int, error) {
	start := time.Now()

	horizons, err := s.retentionByType()
	if err != nil {
		return 0, NewLedgerError("failed to load schedule retention policies", err)
	}

	records, err := s.ledger.ListBackupRecords(ledger.BackupFilter{Status: ledger.StatusCompleted})
	if err != nil {
		return 0, NewLedgerError("failed to list backup records", err)
	}

	now := time.Now()
	deleted := 0
	warnings := 0
	for i := range records {
		rec := &records[i]

		days, ok := horizons[rec.Type]
		if !ok {
			days = s.retentionDays
		}
		if now.Sub(rec.CreatedAt) <= time.Duration(days)*24*time.Hour {
			continue
		}

		if err := s.store.Delete(ctx, rec.ArtifactPath); err != nil && !errors.Is(err, artifact.ErrNotExist) {
			s.logger.Warnf("Retention sweep could not delete artifact %s: %v", rec.ArtifactPath, err)
			warnings++
		}
		if err := s.ledger.DeleteBackupRecord(rec.ID); err != nil {
			s.logger.Warnf("Retention sweep could not delete record %s: %v", rec.ID, err)
			warnings++
			continue
		}
		deleted++
	}

	s.logger.LogRetentionSweep(deleted, warnings, time.Since(start))
	return deleted, nil
}

// retentionByType maps each backup type to the longest retention among
// active schedules producing it.
func (s *Sweeper) retentionByType() (map[ledger.BackupType]int, error) {
	schedules, err := s.ledger.ListSchedules(true)
	if err != nil {
		return nil, err
	}

	horizons := make(map[ledger.BackupType]int)
	for _, schedule := range schedules {
		if schedule.RetentionDays <= 0 {
			continue
		}
		if current, ok := horizons[schedule.Type]; !ok || schedule.RetentionDays > current {
			horizons[schedule.Type] = schedule.RetentionDays
		}
	}
	return horizons, nil
}
