package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbsnap/internal/ledger"
)

func TestValidateBackup_RoundTrip(t *testing.T) {
	env := newTestEnv(t, Options{})

	result, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeFull)
	require.NoError(t, err)

	validation := env.verifier.ValidateBackup(context.Background(), result.ID)
	assert.True(t, validation.IsValid)
	assert.Empty(t, validation.ErrorMessage)
	assert.Equal(t, result.Checksum, validation.Checksum)
	assert.Equal(t, result.SizeBytes, validation.SizeBytes)
}

func TestValidateBackup_NotFound(t *testing.T) {
	env := newTestEnv(t, Options{})

	validation := env.verifier.ValidateBackup(context.Background(), "no-such-id")
	assert.False(t, validation.IsValid)
	assert.Equal(t, "not found", validation.ErrorMessage)
}

func TestValidateBackup_MissingArtifact(t *testing.T) {
	env := newTestEnv(t, Options{})

	result, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeFull)
	require.NoError(t, err)
	require.NoError(t, env.store.Delete(context.Background(), result.ArtifactPath))

	validation := env.verifier.ValidateBackup(context.Background(), result.ID)
	assert.False(t, validation.IsValid)
	assert.Equal(t, "Backup file not accessible", validation.ErrorMessage)
}

func TestValidateBackup_SizeMismatch(t *testing.T) {
	env := newTestEnv(t, Options{})

	result, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeFull)
	require.NoError(t, err)

	// Truncate the stored artifact so the size check trips before hashing.
	path := filepath.Join(env.baseDir, result.ArtifactPath)
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o644))

	validation := env.verifier.ValidateBackup(context.Background(), result.ID)
	assert.False(t, validation.IsValid)
	assert.Equal(t, "File size mismatch", validation.ErrorMessage)
}

func TestValidateBackup_CorruptionDetection(t *testing.T) {
	env := newTestEnv(t, Options{})

	result, err := env.orch.CreateBackup(context.Background(), ledger.BackupTypeFull)
	require.NoError(t, err)

	// Flip one byte without changing the size.
	path := filepath.Join(env.baseDir, result.ArtifactPath)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	validation := env.verifier.ValidateBackup(context.Background(), result.ID)
	assert.False(t, validation.IsValid)
	assert.Equal(t, "Checksum mismatch", validation.ErrorMessage)
}
