package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"dbsnap/internal/artifact"
	"dbsnap/internal/driver"
	"dbsnap/internal/ledger"
	"dbsnap/internal/logging"
)

// coldStartHorizon bounds the first incremental or differential backup when
// no completed backup exists yet to anchor it.
const coldStartHorizon = 7 * 24 * time.Hour

// Options configures an Orchestrator.
type Options struct {
	// StagingDir holds dump files while they are being produced and
	// packaged. Defaults to the OS temp directory.
	StagingDir string

	// Compression applied to artifacts before storage.
	Compression artifact.Codec

	// Encryption applied after compression.
	Encryption *artifact.EncryptionConfig
}

// Orchestrator coordinates the backup lifecycle: ledger record creation,
// driver invocation, artifact packaging and verification bookkeeping.
type Orchestrator struct {
	ledger    *ledger.Store
	store     artifact.Store
	dumper    driver.DumpDriver
	logger    *logging.Logger
	codec     artifact.Codec
	encryptor *artifact.Encryptor
	staging   string
}

// NewOrchestrator creates a backup orchestrator.
func NewOrchestrator(ledgerStore *ledger.Store, store artifact.Store, dumper driver.DumpDriver, logger *logging.Logger, opts Options) (*Orchestrator, error) {
	if ledgerStore == nil {
		return nil, NewConfigurationError("ledger store is required", nil)
	}
	if store == nil {
		return nil, NewConfigurationError("artifact store is required", nil)
	}
	if dumper == nil {
		return nil, NewConfigurationError("dump driver is required", nil)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if !opts.Compression.IsValid() {
		return nil, NewConfigurationError(fmt.Sprintf("unsupported compression codec: %s", opts.Compression), nil)
	}
	staging := opts.StagingDir
	if staging == "" {
		staging = os.TempDir()
	}

	return &Orchestrator{
		ledger:    ledgerStore,
		store:     store,
		dumper:    dumper,
		logger:    logger,
		codec:     opts.Compression,
		encryptor: artifact.NewEncryptor(opts.Encryption),
		staging:   staging,
	}, nil
}

// CreateBackup runs a backup of the given type end to end: it inserts an
// in-progress ledger row, invokes the dump driver, packages the dump into the
// artifact store and marks the row completed with size, checksum and
// duration. Any failure is recorded in the ledger before it propagates.
func (o *Orchestrator) CreateBackup(ctx context.Context, backupType ledger.BackupType) (*BackupResult, error) {
	if !backupType.IsValid() {
		return nil, NewValidationError(fmt.Sprintf("invalid backup type: %s", backupType), nil)
	}

	since, err := o.referenceTimestamp(backupType)
	if err != nil {
		return nil, NewLedgerError("failed to determine reference timestamp", err)
	}

	now := time.Now()
	rec := &ledger.BackupRecord{
		ID:           uuid.New().String(),
		Type:         backupType,
		Status:       ledger.StatusInProgress,
		ArtifactPath: artifact.Name(backupType, now, ".sql"+o.codec.Ext()),
		CreatedAt:    now,
	}
	if err := o.ledger.CreateBackupRecord(rec); err != nil {
		return nil, NewLedgerError("failed to create backup record", err)
	}

	o.logger.Infof("Backup %s started (type=%s)", rec.ID, backupType)

	result, err := o.runBackup(ctx, rec, since)
	if err != nil {
		duration := time.Since(now)
		if lerr := o.ledger.MarkBackupFailed(rec.ID, err.Error(), duration.Milliseconds()); lerr != nil {
			o.logger.Errorf("Failed to record backup failure for %s: %v", rec.ID, lerr)
		}
		o.logger.LogBackupOperation(rec.ID, string(backupType), 0, duration, err)
		return nil, NewDriverError("backup failed", err).WithContext("backup_id", rec.ID)
	}

	o.logger.LogBackupOperation(rec.ID, string(backupType), result.SizeBytes, result.Duration, nil)
	return result, nil
}

// runBackup produces the dump, packages it and finalizes the ledger row. On
// error the partially written artifact is removed; the caller records the
// failure.
func (o *Orchestrator) runBackup(ctx context.Context, rec *ledger.BackupRecord, since time.Time) (*BackupResult, error) {
	start := time.Now()

	stagingFile, err := os.CreateTemp(o.staging, "dbsnap-dump-*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	stagingPath := stagingFile.Name()
	stagingFile.Close()
	defer os.Remove(stagingPath)

	if err := o.dumper.Dump(ctx, rec.Type, stagingPath, since); err != nil {
		return nil, err
	}

	payload, err := o.packageDump(stagingPath)
	if err != nil {
		return nil, err
	}

	if _, err := o.store.Put(ctx, rec.ArtifactPath, bytes.NewReader(payload)); err != nil {
		o.removePartialArtifact(ctx, rec.ArtifactPath)
		return nil, fmt.Errorf("failed to store artifact: %w", err)
	}

	// Checksum and size describe the stored bytes so later validation can
	// re-stat and re-hash the artifact exactly as written.
	checksum := artifact.ChecksumData(payload)
	size := int64(len(payload))
	duration := time.Since(start)

	if err := o.ledger.MarkBackupCompleted(rec.ID, size, checksum, duration.Milliseconds()); err != nil {
		o.removePartialArtifact(ctx, rec.ArtifactPath)
		return nil, fmt.Errorf("failed to finalize backup record: %w", err)
	}

	return &BackupResult{
		ID:           rec.ID,
		Type:         rec.Type,
		Status:       StatusSuccess,
		SizeBytes:    size,
		Checksum:     checksum,
		Duration:     duration,
		ArtifactPath: rec.ArtifactPath,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// packageDump reads the staged dump and applies compression and encryption.
func (o *Orchestrator) packageDump(stagingPath string) ([]byte, error) {
	data, err := os.ReadFile(stagingPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged dump: %w", err)
	}

	var buf bytes.Buffer
	w, err := artifact.CompressWriter(&buf, o.codec)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress dump: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress dump: %w", err)
	}

	sealed, err := o.encryptor.Encrypt(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt dump: %w", err)
	}
	return sealed, nil
}

// unpackArtifact reverses packageDump and writes the plain dump to a staging
// file, returning its path. The caller removes the file.
func (o *Orchestrator) unpackArtifact(ctx context.Context, name string) (string, error) {
	rc, err := o.store.Get(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to fetch artifact: %w", err)
	}
	defer rc.Close()

	var sealed bytes.Buffer
	if _, err := sealed.ReadFrom(rc); err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}

	plain, err := o.encryptor.Decrypt(sealed.Bytes())
	if err != nil {
		return "", err
	}

	r, err := artifact.DecompressReader(bytes.NewReader(plain), artifact.CodecForName(name))
	if err != nil {
		return "", err
	}
	defer r.Close()

	stagingFile, err := os.CreateTemp(o.staging, "dbsnap-restore-*.sql")
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}
	stagingPath := stagingFile.Name()

	if _, err := stagingFile.ReadFrom(r); err != nil {
		stagingFile.Close()
		os.Remove(stagingPath)
		return "", fmt.Errorf("failed to unpack artifact: %w", err)
	}
	if err := stagingFile.Close(); err != nil {
		os.Remove(stagingPath)
		return "", fmt.Errorf("failed to unpack artifact: %w", err)
	}
	return stagingPath, nil
}

// referenceTimestamp computes the lower bound of a dump. Full backups have
// none. Incremental backups continue from the most recent completed backup of
// any type; differential backups from the most recent completed full backup.
// With no anchor, the horizon is a fixed number of days back rather than the
// beginning of time.
func (o *Orchestrator) referenceTimestamp(backupType ledger.BackupType) (time.Time, error) {
	var anchor *ledger.BackupRecord
	var err error

	switch backupType {
	case ledger.BackupTypeFull:
		return time.Time{}, nil
	case ledger.BackupTypeIncremental:
		anchor, err = o.ledger.LatestCompleted()
	case ledger.BackupTypeDifferential:
		anchor, err = o.ledger.LatestCompletedOfType(ledger.BackupTypeFull)
	}
	if err != nil {
		return time.Time{}, err
	}
	if anchor == nil {
		return time.Now().Add(-coldStartHorizon), nil
	}
	return anchor.CreatedAt, nil
}

func (o *Orchestrator) removePartialArtifact(ctx context.Context, name string) {
	if err := o.store.Delete(ctx, name); err != nil && !errors.Is(err, artifact.ErrNotExist) {
		o.logger.Warnf("Failed to remove partial artifact %s: %v", name, err)
	}
}

// DeleteBackup removes a backup's artifact and its ledger row. A missing
// artifact is not an error; the ledger row is authoritative.
func (o *Orchestrator) DeleteBackup(ctx context.Context, id string) error {
	rec, err := o.ledger.GetBackupRecord(id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return NewNotFoundError(fmt.Sprintf("backup %s not found", id), err)
		}
		return NewLedgerError("failed to look up backup record", err)
	}

	if err := o.store.Delete(ctx, rec.ArtifactPath); err != nil && !errors.Is(err, artifact.ErrNotExist) {
		return NewStorageError(fmt.Sprintf("failed to delete artifact %s", rec.ArtifactPath), err)
	}
	if err := o.ledger.DeleteBackupRecord(id); err != nil {
		return NewLedgerError("failed to delete backup record", err)
	}
	o.logger.Infof("Backup %s deleted", id)
	return nil
}

// ListBackups returns ledger rows matching the filter, newest first.
func (o *Orchestrator) ListBackups(filter ledger.BackupFilter) ([]ledger.BackupRecord, error) {
	records, err := o.ledger.ListBackupRecords(filter)
	if err != nil {
		return nil, NewLedgerError("failed to list backup records", err)
	}
	return records, nil
}
