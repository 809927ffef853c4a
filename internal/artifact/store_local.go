package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements Store on the local file system.
type LocalStore struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalStore creates a local artifact store rooted at basePath. The base
// directory is created if it does not exist.
func NewLocalStore(basePath string, permissions os.FileMode) (*LocalStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("artifact base path is required")
	}
	if permissions == 0 {
		permissions = 0755
	}

	if err := os.MkdirAll(basePath, permissions); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", basePath, err)
	}

	return &LocalStore{
		basePath:    basePath,
		permissions: permissions,
	}, nil
}

// Put streams src into the named artifact file. The write goes through a
// temporary file so a crashed upload never leaves a plausible-looking
// artifact behind.
func (ls *LocalStore) Put(ctx context.Context, name string, src io.Reader) (int64, error) {
	path := ls.path(name)

	tmp, err := os.CreateTemp(ls.basePath, ".put-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary artifact file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to write artifact %s: %w", name, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to finalize artifact %s: %w", name, err)
	}
	return n, nil
}

// Get opens the named artifact for reading.
func (ls *LocalStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	file, err := os.Open(ls.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to open artifact %s: %w", name, err)
	}
	return file, nil
}

// Stat returns the current size of the named artifact.
func (ls *LocalStore) Stat(ctx context.Context, name string) (int64, error) {
	info, err := os.Stat(ls.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotExist
		}
		return 0, fmt.Errorf("failed to stat artifact %s: %w", name, err)
	}
	return info.Size(), nil
}

// Delete removes the named artifact.
func (ls *LocalStore) Delete(ctx context.Context, name string) error {
	if err := os.Remove(ls.path(name)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return fmt.Errorf("failed to delete artifact %s: %w", name, err)
	}
	return nil
}

// List returns artifact names under the base directory with the prefix.
func (ls *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// HealthCheck verifies the base directory is writable and readable.
func (ls *LocalStore) HealthCheck(ctx context.Context) error {
	testFile := filepath.Join(ls.basePath, ".health_check")

	if err := os.WriteFile(testFile, []byte("health_check"), 0644); err != nil {
		return fmt.Errorf("artifact store health check failed: cannot write to %s: %w", ls.basePath, err)
	}
	if _, err := os.ReadFile(testFile); err != nil {
		return fmt.Errorf("artifact store health check failed: cannot read from %s: %w", ls.basePath, err)
	}
	os.Remove(testFile)

	return nil
}

// BasePath returns the root directory of the store.
func (ls *LocalStore) BasePath() string {
	return ls.basePath
}

func (ls *LocalStore) path(name string) string {
	return filepath.Join(ls.basePath, sanitizeName(name))
}
