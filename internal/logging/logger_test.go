package logging

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(t *testing.T, level LogLevel) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:  level,
		Output: &buf,
		Format: "json",
	})
	require.NoError(t, err)
	return logger, &buf
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelQuiet)

	logger.Info("operational message")
	assert.Empty(t, buf.String())

	logger.Error("something broke")
	assert.Contains(t, buf.String(), "something broke")
}

func TestNewLogger_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbsnap.log")
	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:   LogLevelNormal,
		Output:  &buf,
		LogFile: path,
	})
	require.NoError(t, err)

	logger.Info("written to both sinks")
	assert.Contains(t, buf.String(), "written to both sinks")
	assert.FileExists(t, path)
}

func TestLogBackupOperation(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelNormal)

	logger.LogBackupOperation("b1", "full", 2048, 3*time.Second, nil)
	out := buf.String()
	assert.Contains(t, out, "Backup completed")
	assert.Contains(t, out, "b1")
	assert.Contains(t, out, "full")

	buf.Reset()
	logger.LogBackupOperation("b2", "incremental", 0, time.Second, errors.New("dump exploded"))
	out = buf.String()
	assert.Contains(t, out, "Backup failed")
	assert.Contains(t, out, "dump exploded")
}

func TestLogRestoreOperation(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelNormal)

	logger.LogRestoreOperation("b1", 4, 2*time.Second, nil)
	assert.Contains(t, buf.String(), "Restore completed")

	buf.Reset()
	logger.LogRestoreOperation("b1", 0, time.Second, errors.New("replay exploded"))
	assert.Contains(t, buf.String(), "Restore failed")
}

func TestLogScheduleFire(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelNormal)

	logger.LogScheduleFire("nightly", "nightly full", "full", nil)
	assert.Contains(t, buf.String(), "nightly")

	buf.Reset()
	logger.LogScheduleFire("nightly", "nightly full", "full", errors.New("backup failed"))
	assert.Contains(t, buf.String(), "backup failed")
}

func TestLogOperationStart(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelVerbose)

	done := logger.LogOperationStart("retention_sweep", map[string]interface{}{"horizon_days": 30})
	done(nil)
	assert.Contains(t, buf.String(), "retention_sweep")
}

func TestSanitizeDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{
			name: "masks password",
			dsn:  "backup:hunter2@tcp(db.internal:3306)/app",
			want: "backup:***@tcp(db.internal:3306)/app",
		},
		{
			name: "no credentials",
			dsn:  "tcp(db.internal:3306)/app",
			want: "tcp(db.internal:3306)/app",
		},
		{
			name: "empty",
			dsn:  "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeDSN(tt.dsn))
		})
	}
}
