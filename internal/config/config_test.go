package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbsnap/internal/artifact"
	"dbsnap/internal/ledger"
)

const validYAML = `
database:
  host: db.internal
  port: 3307
  username: backup
  password: secret
  database: app
driver: sql
ledger:
  dsn: /var/lib/dbsnap/ledger.db
storage:
  provider: local
  local:
    base_path: /var/backups/dbsnap
backup:
  compression: zstd
  retention_days: 14
schedules:
  - id: nightly
    name: nightly full
    type: full
    cron: "0 3 * * *"
    active: true
    retention_days: 14
`

func TestLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbsnap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	config, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", config.Database.Host)
	assert.Equal(t, 3307, config.Database.Port)
	assert.Equal(t, DriverKindSQL, config.Driver)
	assert.Equal(t, artifact.CodecZstd, config.Backup.Compression)
	assert.Equal(t, 14, config.Backup.RetentionDays)
	require.Len(t, config.Schedules, 1)
	assert.Equal(t, ledger.BackupTypeFull, config.Schedules[0].Type)

	// Defaults fill what the file omits.
	assert.Equal(t, ":8080", config.Server.ListenAddr)
	assert.Equal(t, 30*time.Minute, config.Database.Timeout)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DBSNAP_DB_HOST", "localhost")
	t.Setenv("DBSNAP_DB_USER", "root")
	t.Setenv("DBSNAP_DB_NAME", "app")

	config, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)

	assert.Equal(t, DriverKindExec, config.Driver)
	assert.Equal(t, 3306, config.Database.Port)
	assert.Equal(t, artifact.CodecGzip, config.Backup.Compression)
	assert.Equal(t, 30, config.Backup.RetentionDays)
}

func TestLoader_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbsnap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	t.Setenv("DBSNAP_DB_PASSWORD", "from-env")
	t.Setenv("DBSNAP_LISTEN_ADDR", ":9090")

	config, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", config.Database.Password)
	assert.Equal(t, ":9090", config.Server.ListenAddr)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		config, err := LoadFromBytes([]byte(validYAML))
		require.NoError(t, err)
		return config
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing database host", func(c *Config) { c.Database.Host = "" }, "database"},
		{"bad driver kind", func(c *Config) { c.Driver = "carrier-pigeon" }, "driver"},
		{"bad codec", func(c *Config) { c.Backup.Compression = "brotli" }, "compression"},
		{"negative retention", func(c *Config) { c.Backup.RetentionDays = -1 }, "retention_days"},
		{"schedule without cron", func(c *Config) { c.Schedules[0].CronExpression = "" }, "cron"},
		{"schedule with bad type", func(c *Config) { c.Schedules[0].Type = "hourly" }, "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := base()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromBytes_InvalidYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("database: ["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dbsnap.yaml")
	loader := NewLoader(path)

	config, err := LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)
	require.NoError(t, loader.Save(config))

	reloaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, config.Database.Host, reloaded.Database.Host)
	assert.Equal(t, config.Backup.Compression, reloaded.Backup.Compression)
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())
	assert.False(t, errs.HasErrors())

	errs.Add("database.host", "host is required", nil)
	assert.Equal(t, "validation error for field 'database.host': host is required", errs.Error())

	errs.Add("ledger.dsn", "ledger DSN is required", nil)
	assert.Contains(t, errs.Error(), "2 validation errors")
}
