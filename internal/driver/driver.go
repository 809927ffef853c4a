// Package driver abstracts the datastore-specific dump and restore commands
// behind narrow interfaces so orchestration logic never shells out directly.
package driver

import (
	"context"
	"fmt"
	"time"

	"dbsnap/internal/ledger"
)

// DumpDriver produces a logical dump of the target datastore at path. For
// incremental and differential backups, since bounds the changes included in
// the dump; a zero since means a full row scan regardless of type.
type DumpDriver interface {
	Dump(ctx context.Context, backupType ledger.BackupType, path string, since time.Time) error
}

// RestoreDriver replays a dump file into the target datastore. The returned
// output is the driver's object-creation log, one restored object per line.
type RestoreDriver interface {
	Restore(ctx context.Context, path string) (string, error)
}

// Driver is the combined dump and restore surface most engines implement.
type Driver interface {
	DumpDriver
	RestoreDriver
}

// ConnectionConfig holds the credentials and endpoint of the target datastore.
type ConnectionConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DSN renders the config as a go-sql-driver/mysql connection string.
func (c *ConnectionConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// Validate checks that the connection config is usable.
func (c *ConnectionConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535")
	}
	if c.Username == "" {
		return fmt.Errorf("database username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}
