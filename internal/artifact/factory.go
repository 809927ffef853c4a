package artifact

import (
	"context"
	"fmt"
	"os"
)

// Provider identifies an artifact store backend.
type Provider string

const (
	ProviderLocal Provider = "local"
	ProviderS3    Provider = "s3"
	ProviderGCS   Provider = "gcs"
	ProviderAzure Provider = "azure"
)

// LocalConfig configures the local filesystem backend.
type LocalConfig struct {
	BasePath    string      `yaml:"base_path"`
	Permissions os.FileMode `yaml:"permissions"`
}

// StorageConfig selects and configures an artifact store backend.
type StorageConfig struct {
	Provider Provider     `yaml:"provider"`
	Local    *LocalConfig `yaml:"local,omitempty"`
	S3       *S3Config    `yaml:"s3,omitempty"`
	GCS      *GCSConfig   `yaml:"gcs,omitempty"`
	Azure    *AzureConfig `yaml:"azure,omitempty"`
}

// NewStore creates an artifact store for the configured provider.
func NewStore(ctx context.Context, config StorageConfig) (Store, error) {
	switch config.Provider {
	case ProviderLocal, "":
		if config.Local == nil {
			return nil, fmt.Errorf("local storage configuration is required")
		}
		return NewLocalStore(config.Local.BasePath, config.Local.Permissions)

	case ProviderS3:
		return NewS3Store(config.S3)

	case ProviderGCS:
		return NewGCSStore(ctx, config.GCS)

	case ProviderAzure:
		return NewAzureStore(config.Azure)

	default:
		return nil, fmt.Errorf("unsupported artifact store provider: %s", config.Provider)
	}
}

// SupportedProviders returns the backend types this build knows about.
func SupportedProviders() []Provider {
	return []Provider{ProviderLocal, ProviderS3, ProviderGCS, ProviderAzure}
}
