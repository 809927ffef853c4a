package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbsnap/internal/ledger"
)

func newMockDriver(t *testing.T) (*MySQLSQLDriver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLSQLDriverFromDB(db, nil), mock
}

func TestMySQLSQLDriver_Dump_Full(t *testing.T) {
	d, mock := newMockDriver(t)

	mock.ExpectQuery("SHOW FULL TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_db", "Table_type"}).
			AddRow("users", "BASE TABLE"))

	mock.ExpectQuery("SHOW CREATE TABLE `users`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).
			AddRow("users", "CREATE TABLE `users` (`id` int, `name` text)"))

	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "alice").
			AddRow(int64(2), "bo'b"))

	path := filepath.Join(t.TempDir(), "dump.sql")
	err := d.Dump(context.Background(), ledger.BackupTypeFull, path, time.Time{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	dump := string(data)
	assert.Contains(t, dump, "DROP TABLE IF EXISTS `users`;")
	assert.Contains(t, dump, "CREATE TABLE `users`")
	assert.Contains(t, dump, "INSERT INTO `users` (`id`, `name`) VALUES (1, 'alice');")
	assert.Contains(t, dump, "'bo''b'")
}

func TestMySQLSQLDriver_Dump_IncrementalFiltersBySince(t *testing.T) {
	d, mock := newMockDriver(t)
	since := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SHOW FULL TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_db", "Table_type"}).
			AddRow("orders", "BASE TABLE"))

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM information_schema.columns").
		WithArgs("orders", "updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery("SELECT \\* FROM `orders` WHERE `updated_at` >= \\?").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	path := filepath.Join(t.TempDir(), "dump.sql")
	err := d.Dump(context.Background(), ledger.BackupTypeIncremental, path, since)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Incremental dumps carry data only.
	assert.NotContains(t, string(data), "CREATE TABLE")
	assert.Contains(t, string(data), "INSERT INTO `orders`")
}

func TestMySQLSQLDriver_Dump_SinceColumnAbsent(t *testing.T) {
	d, mock := newMockDriver(t)
	since := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SHOW FULL TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_db", "Table_type"}).
			AddRow("settings", "BASE TABLE"))

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM information_schema.columns").
		WithArgs("settings", "updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// Falls back to a full row scan.
	mock.ExpectQuery("SELECT \\* FROM `settings`$").
		WillReturnRows(sqlmock.NewRows([]string{"k"}).AddRow("v"))

	path := filepath.Join(t.TempDir(), "dump.sql")
	err := d.Dump(context.Background(), ledger.BackupTypeDifferential, path, since)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSQLDriver_Restore(t *testing.T) {
	d, mock := newMockDriver(t)

	dump := "-- header comment\n" +
		"DROP TABLE IF EXISTS `users`;\n" +
		"CREATE TABLE `users` (`id` int);\n" +
		"INSERT INTO `users` (`id`) VALUES (1);\n" +
		"INSERT INTO `orders` (`id`) VALUES (2);\n"
	path := filepath.Join(t.TempDir(), "dump.sql")
	require.NoError(t, os.WriteFile(path, []byte(dump), 0o644))

	mock.ExpectExec("DROP TABLE IF EXISTS `users`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE `users`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `orders`").WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := d.Restore(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "users\norders", output)
}

func TestMySQLSQLDriver_Restore_StatementFails(t *testing.T) {
	d, mock := newMockDriver(t)

	path := filepath.Join(t.TempDir(), "dump.sql")
	require.NoError(t, os.WriteFile(path, []byte("INSERT INTO `t` (`id`) VALUES (1);\n"), 0o644))

	mock.ExpectExec("INSERT INTO `t`").WillReturnError(assert.AnError)

	_, err := d.Restore(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute restore statement")
}

func TestSplitStatements(t *testing.T) {
	dump := "-- comment\n\nCREATE TABLE `a` (\n  `id` int\n);\nINSERT INTO `a` VALUES (1);\n"
	stmts := splitStatements(dump)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE `a`")
	assert.Contains(t, stmts[1], "INSERT INTO `a`")
}

func TestTableNameFromStatement(t *testing.T) {
	tests := []struct {
		stmt string
		want string
	}{
		{"CREATE TABLE `users` (`id` int)", "users"},
		{"CREATE TABLE IF NOT EXISTS `logs` (`id` int)", "logs"},
		{"CREATE TABLE plain (id int)", "plain"},
		{"INSERT INTO `orders` (`id`) VALUES (1)", "orders"},
		{"INSERT INTO orders VALUES (1)", "orders"},
		{"DROP TABLE IF EXISTS `users`;", ""},
		{"-- CREATE TABLE `commented`", ""},
		{"SELECT 1", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tableNameFromStatement(tt.stmt), tt.stmt)
	}
}
