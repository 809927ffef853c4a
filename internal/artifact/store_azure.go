package artifact

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureStore implements Store on Azure Blob Storage.
type AzureStore struct {
	serviceURL    azblob.ServiceURL
	containerName string
	prefix        string
}

// AzureConfig configures the Azure Blob artifact backend.
type AzureConfig struct {
	AccountName   string `yaml:"account_name"`
	AccountKey    string `yaml:"account_key"`
	ContainerName string `yaml:"container_name"`
	Prefix        string `yaml:"prefix"`
}

// NewAzureStore creates a new Azure-Blob-backed artifact store.
func NewAzureStore(config *AzureConfig) (*AzureStore, error) {
	if config == nil {
		return nil, fmt.Errorf("Azure storage configuration is required")
	}
	if config.AccountName == "" || config.AccountKey == "" {
		return nil, fmt.Errorf("Azure account name and key are required")
	}
	if config.ContainerName == "" {
		return nil, fmt.Errorf("Azure container name is required")
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credentials: %w", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Azure service URL: %w", err)
	}

	return &AzureStore{
		serviceURL:    azblob.NewServiceURL(*serviceURL, pipeline),
		containerName: config.ContainerName,
		prefix:        strings.TrimSuffix(config.Prefix, "/"),
	}, nil
}

// Put streams src into the named blob.
func (az *AzureStore) Put(ctx context.Context, name string, src io.Reader) (int64, error) {
	blobURL := az.blobURL(name)
	counted := &countingReader{r: src}

	_, err := azblob.UploadStreamToBlockBlob(ctx, counted, blobURL, azblob.UploadStreamToBlockBlobOptions{
		BufferSize: 4 * 1024 * 1024,
		MaxBuffers: 16,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload artifact %s to Azure: %w", name, err)
	}
	return counted.n, nil
}

// Get opens the named blob for reading.
func (az *AzureStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := az.blobURL(name).Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		if isAzureNotFound(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to get artifact %s from Azure: %w", name, err)
	}
	return resp.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3}), nil
}

// Stat returns the size of the named blob.
func (az *AzureStore) Stat(ctx context.Context, name string) (int64, error) {
	props, err := az.blobURL(name).GetProperties(ctx, azblob.BlobAccessConditions{}, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		if isAzureNotFound(err) {
			return 0, ErrNotExist
		}
		return 0, fmt.Errorf("failed to stat artifact %s in Azure: %w", name, err)
	}
	return props.ContentLength(), nil
}

// Delete removes the named blob.
func (az *AzureStore) Delete(ctx context.Context, name string) error {
	_, err := az.blobURL(name).Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	if err != nil {
		if isAzureNotFound(err) {
			return ErrNotExist
		}
		return fmt.Errorf("failed to delete artifact %s from Azure: %w", name, err)
	}
	return nil
}

// List returns artifact names with the given prefix.
func (az *AzureStore) List(ctx context.Context, prefix string) ([]string, error) {
	containerURL := az.serviceURL.NewContainerURL(az.containerName)

	var names []string
	for marker := (azblob.Marker{}); marker.NotDone(); {
		resp, err := containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: az.key(prefix),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list artifacts in Azure: %w", err)
		}
		marker = resp.NextMarker

		for _, blob := range resp.Segment.BlobItems {
			name := blob.Name
			if az.prefix != "" {
				name = strings.TrimPrefix(name, az.prefix+"/")
			}
			names = append(names, name)
		}
	}
	return names, nil
}

// HealthCheck verifies the container is reachable.
func (az *AzureStore) HealthCheck(ctx context.Context) error {
	containerURL := az.serviceURL.NewContainerURL(az.containerName)
	if _, err := containerURL.GetProperties(ctx, azblob.LeaseAccessConditions{}); err != nil {
		return fmt.Errorf("Azure artifact store health check failed: %w", err)
	}
	return nil
}

func (az *AzureStore) blobURL(name string) azblob.BlockBlobURL {
	return az.serviceURL.NewContainerURL(az.containerName).NewBlockBlobURL(az.key(name))
}

func (az *AzureStore) key(name string) string {
	name = sanitizeName(name)
	if az.prefix == "" {
		return name
	}
	return az.prefix + "/" + name
}

func isAzureNotFound(err error) bool {
	if stgErr, ok := err.(azblob.StorageError); ok {
		return stgErr.ServiceCode() == azblob.ServiceCodeBlobNotFound ||
			stgErr.Response() != nil && stgErr.Response().StatusCode == 404
	}
	return false
}
