package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore implements Store on Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSConfig configures the GCS artifact backend.
type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsPath string `yaml:"credentials_path"`
	Prefix          string `yaml:"prefix"`
}

// NewGCSStore creates a new GCS-backed artifact store. When no credentials
// path is configured, default credentials are used.
func NewGCSStore(ctx context.Context, config *GCSConfig) (*GCSStore, error) {
	if config == nil {
		return nil, fmt.Errorf("GCS storage configuration is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("GCS bucket name is required")
	}

	var client *storage.Client
	var err error
	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: config.Bucket,
		prefix: strings.TrimSuffix(config.Prefix, "/"),
	}, nil
}

// Put streams src into the named GCS object.
func (g *GCSStore) Put(ctx context.Context, name string, src io.Reader) (int64, error) {
	w := g.client.Bucket(g.bucket).Object(g.key(name)).NewWriter(ctx)
	n, err := io.Copy(w, src)
	if err != nil {
		w.Close()
		return 0, fmt.Errorf("failed to upload artifact %s to GCS: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize artifact %s in GCS: %w", name, err)
	}
	return n, nil
}

// Get opens the named GCS object for reading.
func (g *GCSStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(g.bucket).Object(g.key(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to get artifact %s from GCS: %w", name, err)
	}
	return r, nil
}

// Stat returns the size of the named GCS object.
func (g *GCSStore) Stat(ctx context.Context, name string) (int64, error) {
	attrs, err := g.client.Bucket(g.bucket).Object(g.key(name)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, ErrNotExist
		}
		return 0, fmt.Errorf("failed to stat artifact %s in GCS: %w", name, err)
	}
	return attrs.Size, nil
}

// Delete removes the named GCS object.
func (g *GCSStore) Delete(ctx context.Context, name string) error {
	if err := g.client.Bucket(g.bucket).Object(g.key(name)).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ErrNotExist
		}
		return fmt.Errorf("failed to delete artifact %s from GCS: %w", name, err)
	}
	return nil
}

// List returns artifact names with the given prefix.
func (g *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{
		Prefix: g.key(prefix),
	})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list artifacts in GCS: %w", err)
		}
		name := attrs.Name
		if g.prefix != "" {
			name = strings.TrimPrefix(name, g.prefix+"/")
		}
		names = append(names, name)
	}
	return names, nil
}

// HealthCheck verifies the bucket is reachable.
func (g *GCSStore) HealthCheck(ctx context.Context) error {
	if _, err := g.client.Bucket(g.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("GCS artifact store health check failed: %w", err)
	}
	return nil
}

func (g *GCSStore) key(name string) string {
	name = sanitizeName(name)
	if g.prefix == "" {
		return name
	}
	return g.prefix + "/" + name
}
