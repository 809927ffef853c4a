package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionConfig_Validate(t *testing.T) {
	valid := ConnectionConfig{
		Host:     "localhost",
		Port:     3306,
		Username: "backup",
		Password: "secret",
		Database: "app",
	}

	tests := []struct {
		name    string
		mutate  func(*ConnectionConfig)
		wantErr string
	}{
		{"valid", func(c *ConnectionConfig) {}, ""},
		{"missing host", func(c *ConnectionConfig) { c.Host = "" }, "host is required"},
		{"zero port", func(c *ConnectionConfig) { c.Port = 0 }, "port must be between"},
		{"port too large", func(c *ConnectionConfig) { c.Port = 70000 }, "port must be between"},
		{"missing username", func(c *ConnectionConfig) { c.Username = "" }, "username is required"},
		{"missing database", func(c *ConnectionConfig) { c.Database = "" }, "database name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConnectionConfig_DSN(t *testing.T) {
	config := ConnectionConfig{
		Host:     "db.internal",
		Port:     3307,
		Username: "backup",
		Password: "secret",
		Database: "app",
	}
	dsn := config.DSN()
	assert.Equal(t, "backup:secret@tcp(db.internal:3307)/app?parseTime=true&multiStatements=true", dsn)
}

func TestNewMySQLExecDriver_InvalidConfig(t *testing.T) {
	_, err := NewMySQLExecDriver(&ConnectionConfig{}, nil)
	require.Error(t, err)
}

func TestRestoredObjectsFromDump(t *testing.T) {
	dump := `-- dump header
DROP TABLE IF EXISTS ` + "`users`" + `;
CREATE TABLE ` + "`users`" + ` (
  ` + "`id`" + ` int
);
INSERT INTO ` + "`users`" + ` VALUES (1);
CREATE TABLE ` + "`orders`" + ` (
  ` + "`id`" + ` int
);
INSERT INTO ` + "`orders`" + ` VALUES (2);
`
	path := filepath.Join(t.TempDir(), "dump.sql")
	require.NoError(t, os.WriteFile(path, []byte(dump), 0o644))

	objects, err := restoredObjectsFromDump(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, objects)
}

func TestRestoredObjectsFromDump_MissingFile(t *testing.T) {
	_, err := restoredObjectsFromDump(filepath.Join(t.TempDir(), "absent.sql"))
	require.Error(t, err)
}
