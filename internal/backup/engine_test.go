package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"dbsnap/internal/artifact"
	"dbsnap/internal/driver"
	"dbsnap/internal/ledger"
)

// fakeDriver is an in-memory dump/restore driver. It writes a deterministic
// dump and records every invocation so tests can assert call counts.
type fakeDriver struct {
	dumpCalls    int
	restoreCalls int
	dumpSince    []time.Time
	dumpTypes    []ledger.BackupType
	dumpErr      error
	restoreErr   error
	dumpPayload  string
}

var _ driver.Driver = (*fakeDriver)(nil)

func (f *fakeDriver) Dump(ctx context.Context, backupType ledger.BackupType, path string, since time.Time) error {
	f.dumpCalls++
	f.dumpTypes = append(f.dumpTypes, backupType)
	f.dumpSince = append(f.dumpSince, since)
	if f.dumpErr != nil {
		return f.dumpErr
	}
	payload := f.dumpPayload
	if payload == "" {
		payload = "CREATE TABLE `users` (`id` int);\nINSERT INTO `users` VALUES (1);\n"
	}
	return os.WriteFile(path, []byte(payload), 0o644)
}

func (f *fakeDriver) Restore(ctx context.Context, path string) (string, error) {
	f.restoreCalls++
	if f.restoreErr != nil {
		return "", f.restoreErr
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("staging file missing: %w", err)
	}
	return "users\norders\n", nil
}

// testEnv wires a complete engine against an in-memory ledger and a local
// artifact store.
type testEnv struct {
	ledger   *ledger.Store
	store    *artifact.LocalStore
	driver   *fakeDriver
	orch     *Orchestrator
	verifier *Verifier
	restore  *RestoreOrchestrator
	baseDir  string
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	ledgerStore, err := ledger.Open(":memory:")
	require.NoError(t, err)

	baseDir := t.TempDir()
	store, err := artifact.NewLocalStore(baseDir, 0)
	require.NoError(t, err)

	fake := &fakeDriver{}
	if opts.StagingDir == "" {
		opts.StagingDir = t.TempDir()
	}

	orch, err := NewOrchestrator(ledgerStore, store, fake, nil, opts)
	require.NoError(t, err)

	verifier := NewVerifier(ledgerStore, store, nil)

	restoreOrch, err := NewRestoreOrchestrator(ledgerStore, verifier, orch, fake, nil)
	require.NoError(t, err)

	return &testEnv{
		ledger:   ledgerStore,
		store:    store,
		driver:   fake,
		orch:     orch,
		verifier: verifier,
		restore:  restoreOrch,
		baseDir:  baseDir,
	}
}

// seedCompletedBackup inserts a completed ledger row with a matching stored
// artifact, bypassing the orchestrator.
func (env *testEnv) seedCompletedBackup(t *testing.T, backupType ledger.BackupType, createdAt time.Time, payload []byte) *ledger.BackupRecord {
	t.Helper()

	name := artifact.Name(backupType, createdAt, ".sql")
	_, err := env.store.Put(context.Background(), name, bytes.NewReader(payload))
	require.NoError(t, err)

	completedAt := createdAt.Add(time.Second)
	rec := &ledger.BackupRecord{
		ID:           uuid.New().String(),
		Type:         backupType,
		Status:       ledger.StatusCompleted,
		ArtifactPath: name,
		SizeBytes:    int64(len(payload)),
		Checksum:     artifact.ChecksumData(payload),
		DurationMs:   1000,
		CreatedAt:    createdAt,
		CompletedAt:  &completedAt,
	}
	require.NoError(t, env.ledger.CreateBackupRecord(rec))
	return rec
}
