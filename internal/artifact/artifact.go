package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"dbsnap/internal/ledger"
)

// ErrNotExist is returned when a named artifact is not present in the store.
var ErrNotExist = errors.New("artifact does not exist")

// Store abstracts the location and lifecycle of backup artifacts. Names are
// flat; the naming convention encodes type and creation time.
type Store interface {
	// Put streams src into the named artifact and returns the stored size.
	Put(ctx context.Context, name string, src io.Reader) (int64, error)

	// Get opens the named artifact for reading.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Stat returns the current size of the named artifact.
	Stat(ctx context.Context, name string) (int64, error)

	// Delete removes the named artifact.
	Delete(ctx context.Context, name string) error

	// List returns artifact names with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// HealthCheck verifies the store is accessible and writable.
	HealthCheck(ctx context.Context) error
}

// Name builds the artifact filename for a backup:
// backup_{type}_{ISO8601 with colons replaced by dashes}{ext}. The name is
// unique per invocation and human-inspectable.
func Name(backupType ledger.BackupType, createdAt time.Time, ext string) string {
	timestamp := strings.ReplaceAll(createdAt.UTC().Format(time.RFC3339), ":", "-")
	return fmt.Sprintf("backup_%s_%s%s", backupType, timestamp, ext)
}

// sanitizeName strips path separators so a stored name can never escape the
// store's base location.
func sanitizeName(name string) string {
	sanitized := strings.ReplaceAll(name, "/", "_")
	sanitized = strings.ReplaceAll(sanitized, "\\", "_")
	sanitized = strings.ReplaceAll(sanitized, "..", "_")
	return sanitized
}
