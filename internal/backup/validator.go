package backup

import (
	"context"
	"errors"

	"dbsnap/internal/artifact"
	"dbsnap/internal/ledger"
	"dbsnap/internal/logging"
)

// Verifier checks stored backups against their ledger records. Validation
// never raises: every failure mode is a structured result, because callers
// probe speculatively (before every restore, on demand from the API).
type Verifier struct {
	ledger *ledger.Store
	store  artifact.Store
	logger *logging.Logger
}

// NewVerifier creates a backup verifier.
func NewVerifier(ledgerStore *ledger.Store, store artifact.Store, logger *logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Verifier{
		ledger: ledgerStore,
		store:  store,
		logger: logger,
	}
}

// ValidateBackup re-checks a stored artifact against its ledger record. The
// size comparison runs before the hash so the cheap check rejects first.
func (v *Verifier) ValidateBackup(ctx context.Context, id string) *ValidationResult {
	rec, err := v.ledger.GetBackupRecord(id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return &ValidationResult{BackupID: id, IsValid: false, ErrorMessage: "not found"}
		}
		v.logger.Errorf("Validation of backup %s could not read the ledger: %v", id, err)
		return &ValidationResult{BackupID: id, IsValid: false, ErrorMessage: "not found"}
	}

	size, err := v.store.Stat(ctx, rec.ArtifactPath)
	if err != nil {
		return &ValidationResult{BackupID: id, IsValid: false, ErrorMessage: "Backup file not accessible"}
	}
	if size != rec.SizeBytes {
		return &ValidationResult{BackupID: id, IsValid: false, ErrorMessage: "File size mismatch", SizeBytes: size}
	}

	rc, err := v.store.Get(ctx, rec.ArtifactPath)
	if err != nil {
		return &ValidationResult{BackupID: id, IsValid: false, ErrorMessage: "Backup file not accessible"}
	}
	defer rc.Close()

	checksum, _, err := artifact.Checksum(rc)
	if err != nil {
		return &ValidationResult{BackupID: id, IsValid: false, ErrorMessage: "Backup file not accessible"}
	}
	if checksum != rec.Checksum {
		return &ValidationResult{BackupID: id, IsValid: false, ErrorMessage: "Checksum mismatch", Checksum: checksum, SizeBytes: size}
	}

	return &ValidationResult{BackupID: id, IsValid: true, Checksum: checksum, SizeBytes: size}
}
