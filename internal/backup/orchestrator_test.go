package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbsnap/internal/artifact"
	"dbsnap/internal/ledger"
)

func TestCreateBackup_Full(t *testing.T) {
	env := newTestEnv(t, Options{})

	result, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeFull)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, ledger.BackupTypeFull, result.Type)
	assert.NotEmpty(t, result.ID)
	assert.NotEmpty(t, result.Checksum)
	assert.Greater(t, result.SizeBytes, int64(0))
	assert.Contains(t, result.ArtifactPath, "backup_full_")

	// Full backups never pass a reference timestamp.
	require.Equal(t, 1, env.driver.dumpCalls)
	assert.True(t, env.driver.dumpSince[0].IsZero())

	// Ledger row is completed with size and checksum recorded.
	rec, err := env.ledger.GetBackupRecord(result.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, rec.Status)
	assert.Equal(t, result.Checksum, rec.Checksum)
	assert.Equal(t, result.SizeBytes, rec.SizeBytes)
	assert.NotNil(t, rec.CompletedAt)

	// Artifact exists with the recorded size.
	size, err := env.store.Stat(context.Background(), rec.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, rec.SizeBytes, size)
}

func TestCreateBackup_InvalidType(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.orch.CreateBackup(context.Background(), ledger.BackupType("hourly"))
	require.Error(t, err)

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, EngineErrorTypeValidation, engineErr.Type)
	assert.Equal(t, 0, env.driver.dumpCalls)
}

func TestCreateBackup_Incremental_AnchorsOnLatestCompleted(t *testing.T) {
	env := newTestEnv(t, Options{})

	anchor := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	env.seedCompletedBackup(t, ledger.BackupTypeFull, anchor, []byte("full dump"))

	_, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeIncremental)
	require.NoError(t, err)

	require.Equal(t, 1, env.driver.dumpCalls)
	assert.WithinDuration(t, anchor, env.driver.dumpSince[0], time.Second)
}

func TestCreateBackup_Differential_AnchorsOnLatestFull(t *testing.T) {
	env := newTestEnv(t, Options{})

	fullAt := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	incrAt := time.Now().Add(-1 * time.Hour).Truncate(time.Second)
	env.seedCompletedBackup(t, ledger.BackupTypeFull, fullAt, []byte("full dump"))
	env.seedCompletedBackup(t, ledger.BackupTypeIncremental, incrAt, []byte("incr dump"))

	_, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeDifferential)
	require.NoError(t, err)

	// Differential ignores the newer incremental and anchors on the full.
	require.Equal(t, 1, env.driver.dumpCalls)
	assert.WithinDuration(t, fullAt, env.driver.dumpSince[0], time.Second)
}

func TestCreateBackup_Incremental_ColdStart(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeIncremental)
	require.NoError(t, err)

	require.Equal(t, 1, env.driver.dumpCalls)
	since := env.driver.dumpSince[0]
	require.False(t, since.IsZero())
	assert.WithinDuration(t, time.Now().Add(-coldStartHorizon), since, time.Minute)
}

func TestCreateBackup_DriverFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.driver.dumpErr = errors.New("dump exploded")

	_, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeFull)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup failed")

	// The failure is durably recorded before it propagates.
	records, err := env.ledger.ListBackupRecords(ledger.BackupFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ledger.StatusFailed, records[0].Status)
	assert.Contains(t, records[0].ErrorMessage, "dump exploded")

	// No artifact is left behind.
	names, err := env.store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCreateBackup_CompressedAndEncrypted(t *testing.T) {
	env := newTestEnv(t, Options{
		Compression: artifact.CodecGzip,
		Encryption: &artifact.EncryptionConfig{
			Enabled:    true,
			KeySource:  "passphrase",
			Passphrase: "test passphrase",
		},
	})

	result, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeFull)
	require.NoError(t, err)
	assert.Contains(t, result.ArtifactPath, ".sql.gz")

	// Validation still holds because checksum and size refer to the stored
	// bytes, not the plain dump.
	validation := env.verifier.ValidateBackup(context.Background(), result.ID)
	assert.True(t, validation.IsValid)

	// Restore round-trips through decrypt and decompress.
	restored, err := env.restore.RestoreFromBackup(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, restored.RestoredObjects)
}

func TestDeleteBackup(t *testing.T) {
	env := newTestEnv(t, Options{})

	result, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeFull)
	require.NoError(t, err)

	require.NoError(t, env.orch.DeleteBackup(context.Background(), result.ID))

	_, err = env.ledger.GetBackupRecord(result.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = env.store.Stat(context.Background(), result.ArtifactPath)
	assert.ErrorIs(t, err, artifact.ErrNotExist)
}

func TestDeleteBackup_NotFound(t *testing.T) {
	env := newTestEnv(t, Options{})

	err := env.orch.DeleteBackup(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestListBackups_Filters(t *testing.T) {
	env := newTestEnv(t, Options{})

	old := time.Now().Add(-72 * time.Hour)
	env.seedCompletedBackup(t, ledger.BackupTypeFull, old, []byte("old full"))
	env.seedCompletedBackup(t, ledger.BackupTypeIncremental, time.Now().Add(-time.Hour), []byte("recent incr"))

	full, err := env.orch.ListBackups(ledger.BackupFilter{Type: ledger.BackupTypeFull})
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.Equal(t, ledger.BackupTypeFull, full[0].Type)

	cutoff := time.Now().Add(-24 * time.Hour)
	recent, err := env.orch.ListBackups(ledger.BackupFilter{StartDate: &cutoff})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, ledger.BackupTypeIncremental, recent[0].Type)
}
