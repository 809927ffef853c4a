package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_Local(t *testing.T) {
	store, err := NewStore(context.Background(), StorageConfig{
		Provider: ProviderLocal,
		Local:    &LocalConfig{BasePath: t.TempDir()},
	})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)
}

func TestNewStore_DefaultsToLocal(t *testing.T) {
	store, err := NewStore(context.Background(), StorageConfig{
		Local: &LocalConfig{BasePath: t.TempDir()},
	})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)
}

func TestNewStore_LocalConfigRequired(t *testing.T) {
	_, err := NewStore(context.Background(), StorageConfig{Provider: ProviderLocal})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local storage configuration is required")
}

func TestNewStore_UnsupportedProvider(t *testing.T) {
	_, err := NewStore(context.Background(), StorageConfig{Provider: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported artifact store provider")
}

func TestSupportedProviders(t *testing.T) {
	assert.ElementsMatch(t,
		[]Provider{ProviderLocal, ProviderS3, ProviderGCS, ProviderAzure},
		SupportedProviders())
}
