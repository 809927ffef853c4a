// Package config holds the engine's file- and environment-driven
// configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"dbsnap/internal/artifact"
	"dbsnap/internal/driver"
	"dbsnap/internal/ledger"
	"dbsnap/internal/logging"
)

// DriverKind selects how dumps are produced.
type DriverKind string

const (
	// DriverKindExec shells out to the mysqldump and mysql client tools.
	DriverKindExec DriverKind = "exec"
	// DriverKindSQL dumps through a live database/sql connection.
	DriverKindSQL DriverKind = "sql"
)

// Config is the root configuration of the engine.
type Config struct {
	Database   driver.ConnectionConfig    `yaml:"database"`
	Driver     DriverKind                 `yaml:"driver"`
	Ledger     LedgerConfig               `yaml:"ledger"`
	Storage    artifact.StorageConfig     `yaml:"storage"`
	Backup     BackupConfig               `yaml:"backup"`
	Server     ServerConfig               `yaml:"server"`
	Logging    LoggingConfig              `yaml:"logging"`
	Schedules  []ScheduleConfig           `yaml:"schedules"`
	Encryption *artifact.EncryptionConfig `yaml:"encryption,omitempty"`
}

// LedgerConfig locates the backup ledger database.
type LedgerConfig struct {
	DSN string `yaml:"dsn"`
}

// BackupConfig tunes the backup pipeline.
type BackupConfig struct {
	StagingDir    string         `yaml:"staging_dir"`
	Compression   artifact.Codec `yaml:"compression"`
	RetentionDays int            `yaml:"retention_days"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level   logging.LogLevel `yaml:"level"`
	Format  string           `yaml:"format"`
	LogFile string           `yaml:"log_file"`
}

// ScheduleConfig declares a recurring backup in the config file. Declared
// schedules are upserted into the ledger at startup.
type ScheduleConfig struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name"`
	Type           ledger.BackupType `yaml:"type"`
	CronExpression string            `yaml:"cron"`
	IsActive       bool              `yaml:"active"`
	RetentionDays  int               `yaml:"retention_days"`
}

// SetDefaults fills in defaults for everything the file may omit.
func (c *Config) SetDefaults() {
	if c.Driver == "" {
		c.Driver = DriverKindExec
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Timeout == 0 {
		c.Database.Timeout = 30 * time.Minute
	}
	if c.Ledger.DSN == "" {
		c.Ledger.DSN = "dbsnap.db"
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = artifact.ProviderLocal
	}
	if c.Storage.Provider == artifact.ProviderLocal && c.Storage.Local == nil {
		c.Storage.Local = &artifact.LocalConfig{BasePath: "./backups"}
	}
	if c.Backup.Compression == "" {
		c.Backup.Compression = artifact.CodecGzip
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 30
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = logging.LogLevelNormal
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// LoadFromEnvironment overrides configuration from DBSNAP_* environment
// variables. Only settings that make sense per deployment are exposed.
func (c *Config) LoadFromEnvironment() {
	if val := os.Getenv("DBSNAP_DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DBSNAP_DB_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			c.Database.Port = parsed
		}
	}
	if val := os.Getenv("DBSNAP_DB_USER"); val != "" {
		c.Database.Username = val
	}
	if val := os.Getenv("DBSNAP_DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DBSNAP_DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DBSNAP_LEDGER_DSN"); val != "" {
		c.Ledger.DSN = val
	}
	if val := os.Getenv("DBSNAP_STORAGE_PATH"); val != "" {
		if c.Storage.Local == nil {
			c.Storage.Local = &artifact.LocalConfig{}
		}
		c.Storage.Local.BasePath = val
	}
	if val := os.Getenv("DBSNAP_LISTEN_ADDR"); val != "" {
		c.Server.ListenAddr = val
	}
	if val := os.Getenv("DBSNAP_LOG_LEVEL"); val != "" {
		c.Logging.Level = logging.LogLevel(val)
	}
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Driver != DriverKindExec && c.Driver != DriverKindSQL {
		errs.Add("driver", fmt.Sprintf("unsupported driver kind: %s", c.Driver), c.Driver)
	}
	if err := c.Database.Validate(); err != nil {
		errs.Add("database", err.Error(), nil)
	}
	if !c.Backup.Compression.IsValid() {
		errs.Add("backup.compression", fmt.Sprintf("unsupported codec: %s", c.Backup.Compression), c.Backup.Compression)
	}
	if c.Backup.RetentionDays < 0 {
		errs.Add("backup.retention_days", "retention days cannot be negative", c.Backup.RetentionDays)
	}
	if c.Ledger.DSN == "" {
		errs.Add("ledger.dsn", "ledger DSN is required", nil)
	}
	for i, schedule := range c.Schedules {
		field := fmt.Sprintf("schedules[%d]", i)
		if schedule.ID == "" {
			errs.Add(field+".id", "schedule id is required", nil)
		}
		if !schedule.Type.IsValid() {
			errs.Add(field+".type", fmt.Sprintf("invalid backup type: %s", schedule.Type), schedule.Type)
		}
		if schedule.CronExpression == "" {
			errs.Add(field+".cron", "cron expression is required", nil)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ValidationError describes one invalid configuration field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors is a collection of configuration validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add appends a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors reports whether the collection is non-empty
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
