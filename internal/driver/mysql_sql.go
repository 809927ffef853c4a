package driver

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"dbsnap/internal/ledger"
	"dbsnap/internal/logging"
)

// MySQLSQLDriver dumps and restores through a live database/sql connection
// instead of the client binaries. It is slower than mysqldump on large
// datasets but needs no external tools, which makes it the right driver for
// containers and tests.
type MySQLSQLDriver struct {
	db     *sql.DB
	logger *logging.Logger

	// SinceColumn bounds incremental and differential dumps. Tables without
	// the column fall back to a full dump of their rows.
	SinceColumn string
}

// NewMySQLSQLDriver opens a connection pool to the target datastore.
func NewMySQLSQLDriver(config *ConnectionConfig, logger *logging.Logger) (*MySQLSQLDriver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)
	return NewMySQLSQLDriverFromDB(db, logger), nil
}

// NewMySQLSQLDriverFromDB wraps an existing connection pool. The caller keeps
// ownership of db.
func NewMySQLSQLDriverFromDB(db *sql.DB, logger *logging.Logger) *MySQLSQLDriver {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &MySQLSQLDriver{
		db:          db,
		logger:      logger,
		SinceColumn: "updated_at",
	}
}

// Close releases the connection pool.
func (d *MySQLSQLDriver) Close() error {
	return d.db.Close()
}

// Ping verifies the datastore is reachable.
func (d *MySQLSQLDriver) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Dump writes a SQL dump of every base table to path. Full dumps include
// CREATE TABLE statements; incremental and differential dumps carry data only.
func (d *MySQLSQLDriver) Dump(ctx context.Context, backupType ledger.BackupType, path string, since time.Time) error {
	start := time.Now()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "-- dbsnap dump\n-- Type: %s\n-- Generated: %s\n\n",
		backupType, time.Now().UTC().Format(time.RFC3339))

	tables, err := d.listTables(ctx)
	if err != nil {
		return err
	}

	withSchema := backupType == ledger.BackupTypeFull || since.IsZero()
	for _, table := range tables {
		if withSchema {
			if err := d.writeCreateTable(ctx, w, table); err != nil {
				return err
			}
		}
		if err := d.writeTableData(ctx, w, table, since); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush dump file: %w", err)
	}
	d.logger.LogDriverExecution("sql-dump", []string{string(backupType), path}, time.Since(start), nil)
	return nil
}

// Restore executes every statement in the dump file and returns the restored
// table inventory, one name per line in first-seen order.
func (d *MySQLSQLDriver) Restore(ctx context.Context, path string) (string, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read dump file: %w", err)
	}

	seen := make(map[string]bool)
	var objects []string
	for _, stmt := range splitStatements(string(data)) {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			d.logger.LogDriverExecution("sql-restore", []string{path}, time.Since(start), err)
			return "", fmt.Errorf("failed to execute restore statement: %w", err)
		}
		if name := tableNameFromStatement(stmt); name != "" && !seen[name] {
			seen[name] = true
			objects = append(objects, name)
		}
	}

	d.logger.LogDriverExecution("sql-restore", []string{path}, time.Since(start), nil)
	return strings.Join(objects, "\n"), nil
}

func (d *MySQLSQLDriver) listTables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SHOW FULL TABLES WHERE Table_type = 'BASE TABLE'")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (d *MySQLSQLDriver) writeCreateTable(ctx context.Context, w *bufio.Writer, table string) error {
	var name, ddl string
	row := d.db.QueryRowContext(ctx, fmt.Sprintf("SHOW CREATE TABLE `%s`", table))
	if err := row.Scan(&name, &ddl); err != nil {
		return fmt.Errorf("failed to fetch schema for table %s: %w", table, err)
	}
	fmt.Fprintf(w, "DROP TABLE IF EXISTS `%s`;\n%s;\n\n", table, ddl)
	return nil
}

func (d *MySQLSQLDriver) writeTableData(ctx context.Context, w *bufio.Writer, table string, since time.Time) error {
	query := fmt.Sprintf("SELECT * FROM `%s`", table)
	var args []interface{}
	if !since.IsZero() && d.tableHasColumn(ctx, table, d.SinceColumn) {
		query += fmt.Sprintf(" WHERE `%s` >= ?", d.SinceColumn)
		args = append(args, since.UTC())
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read columns of table %s: %w", table, err)
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = "`" + col + "`"
	}
	prefix := fmt.Sprintf("INSERT INTO `%s` (%s) VALUES ", table, strings.Join(quoted, ", "))

	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	wrote := false
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row of table %s: %w", table, err)
		}
		parts := make([]string, len(values))
		for i, val := range values {
			parts[i] = sqlLiteral(val)
		}
		fmt.Fprintf(w, "%s(%s);\n", prefix, strings.Join(parts, ", "))
		wrote = true
	}
	if wrote {
		fmt.Fprintln(w)
	}
	return rows.Err()
}

// tableHasColumn probes for the audit column. Failures count as absent so a
// dump never breaks on an information_schema quirk.
func (d *MySQLSQLDriver) tableHasColumn(ctx context.Context, table, column string) bool {
	var count int
	row := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?",
		table, column)
	if err := row.Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// sqlLiteral renders a scanned value as a SQL literal.
func sqlLiteral(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "'" + strings.ReplaceAll(string(v), "'", "''") + "'"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case time.Time:
		return "'" + v.UTC().Format("2006-01-02 15:04:05") + "'"
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// splitStatements breaks a dump into executable statements, dropping comments
// and blank lines. Dumps produced by this driver keep one statement per line
// group terminated by a semicolon.
func splitStatements(dump string) []string {
	var stmts []string
	var current strings.Builder
	for _, line := range strings.Split(dump, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmts = append(stmts, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}
