package driver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"dbsnap/internal/ledger"
	"dbsnap/internal/logging"
)

const defaultCommandTimeout = 30 * time.Minute

// MySQLExecDriver shells out to mysqldump and mysql. It is the production
// driver: the client tools handle locking, charset and binary data correctly,
// which a hand-rolled dump never quite does.
type MySQLExecDriver struct {
	config *ConnectionConfig
	logger *logging.Logger

	// SinceColumn is the audit column used to bound incremental and
	// differential dumps. Tables without the column are skipped by
	// mysqldump's --where, which is the accepted trade-off for logical
	// incremental dumps.
	SinceColumn string
}

// NewMySQLExecDriver creates a driver that invokes the mysqldump and mysql
// client binaries.
func NewMySQLExecDriver(config *ConnectionConfig, logger *logging.Logger) (*MySQLExecDriver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &MySQLExecDriver{
		config:      config,
		logger:      logger,
		SinceColumn: "updated_at",
	}, nil
}

// Dump runs mysqldump into path. Incremental and differential dumps restrict
// rows with a WHERE clause on the audit column when since is non-zero.
func (d *MySQLExecDriver) Dump(ctx context.Context, backupType ledger.BackupType, path string, since time.Time) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	args := []string{
		"-h", d.config.Host,
		"-P", strconv.Itoa(d.config.Port),
		"-u", d.config.Username,
		"--single-transaction",
		"--routines",
		"--triggers",
		"--result-file=" + path,
	}
	if backupType != ledger.BackupTypeFull && !since.IsZero() {
		args = append(args,
			"--no-create-info",
			fmt.Sprintf("--where=%s >= '%s'", d.SinceColumn, since.UTC().Format("2006-01-02 15:04:05")),
		)
	}
	args = append(args, d.config.Database)

	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	// MYSQL_PWD keeps the password out of the process list.
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+d.config.Password)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		err = fmt.Errorf("mysqldump failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	d.logger.LogDriverExecution("mysqldump", args, time.Since(start), err)
	return err
}

// Restore pipes the dump file through the mysql client. The returned output
// lists each restored table on its own line; mysqldump files do not announce
// created objects, so the inventory is parsed out of the dump itself.
func (d *MySQLExecDriver) Restore(ctx context.Context, path string) (string, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open dump file: %w", err)
	}
	defer file.Close()

	args := []string{
		"-h", d.config.Host,
		"-P", strconv.Itoa(d.config.Port),
		"-u", d.config.Username,
		d.config.Database,
	}
	cmd := exec.CommandContext(ctx, "mysql", args...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+d.config.Password)
	cmd.Stdin = file

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	if err != nil {
		err = fmt.Errorf("mysql restore failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	d.logger.LogDriverExecution("mysql", args, time.Since(start), err)
	if err != nil {
		return "", err
	}

	objects, err := restoredObjectsFromDump(path)
	if err != nil {
		return "", err
	}
	return strings.Join(objects, "\n"), nil
}

func (d *MySQLExecDriver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := d.config.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// restoredObjectsFromDump scans a SQL dump for the tables it creates or
// populates, in file order.
func restoredObjectsFromDump(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump file: %w", err)
	}

	seen := make(map[string]bool)
	var objects []string
	for _, line := range strings.Split(string(data), "\n") {
		name := tableNameFromStatement(line)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		objects = append(objects, name)
	}
	return objects, nil
}

// tableNameFromStatement extracts the table name from a CREATE TABLE or
// INSERT INTO statement, or returns "".
func tableNameFromStatement(line string) string {
	trimmed := strings.TrimSpace(line)
	var rest string
	switch {
	case strings.HasPrefix(trimmed, "CREATE TABLE "):
		rest = strings.TrimPrefix(trimmed, "CREATE TABLE ")
		rest = strings.TrimPrefix(rest, "IF NOT EXISTS ")
	case strings.HasPrefix(trimmed, "INSERT INTO "):
		rest = strings.TrimPrefix(trimmed, "INSERT INTO ")
	default:
		return ""
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return ""
	}
	if rest[0] == '`' {
		if end := strings.IndexByte(rest[1:], '`'); end >= 0 {
			return rest[1 : end+1]
		}
		return ""
	}
	end := strings.IndexAny(rest, " (")
	if end < 0 {
		return rest
	}
	return rest[:end]
}
