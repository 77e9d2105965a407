package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"tenant-backup/internal/errors"
)

// AzureProvider stores archives in an Azure Blob container
type AzureProvider struct {
	containerURL azblob.ContainerURL
	prefix       string
}

// NewAzureProvider creates an Azure Blob provider
func NewAzureProvider(config *AzureConfig) (*AzureProvider, error) {
	if config == nil || config.AccountName == "" || config.Container == "" {
		return nil, errors.NewStorageError("Azure storage requires an account name and container", nil)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, errors.NewStorageError("failed to create Azure credential", err)
	}

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, errors.NewStorageError("failed to build Azure service URL", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	container := azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.Container)

	return &AzureProvider{containerURL: container, prefix: config.Prefix}, nil
}

func (p *AzureProvider) blobURL(key string) azblob.BlockBlobURL {
	return p.containerURL.NewBlockBlobURL(p.prefix + key)
}

// Store uploads one archive
func (p *AzureProvider) Store(ctx context.Context, key string, data []byte) error {
	_, err := azblob.UploadBufferToBlockBlob(ctx, data, p.blobURL(key), azblob.UploadToBlockBlobOptions{
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{ContentType: "application/octet-stream"},
	})
	if err != nil {
		return errors.NewStorageError("failed to upload archive to Azure", err)
	}
	return nil
}

// Retrieve downloads one archive
func (p *AzureProvider) Retrieve(ctx context.Context, key string) ([]byte, error) {
	response, err := p.blobURL(key).Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		if storageErr, ok := err.(azblob.StorageError); ok && storageErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
			return nil, errors.NewNotFoundError("archive "+key+" does not exist", err)
		}
		return nil, errors.NewStorageError("failed to download archive from Azure", err)
	}

	body := response.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3})
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.NewStorageError("failed to read archive body", err)
	}
	return data, nil
}

// Delete removes one archive
func (p *AzureProvider) Delete(ctx context.Context, key string) error {
	_, err := p.blobURL(key).Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	if err != nil {
		return errors.NewStorageError("failed to delete archive from Azure", err)
	}
	return nil
}

// List returns archives under the prefix
func (p *AzureProvider) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects := make([]ObjectInfo, 0)

	for marker := (azblob.Marker{}); marker.NotDone(); {
		response, err := p.containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: p.prefix + prefix,
		})
		if err != nil {
			return nil, errors.NewStorageError("failed to list archives in Azure", err)
		}
		marker = response.NextMarker

		for _, blob := range response.Segment.BlobItems {
			size := int64(0)
			if blob.Properties.ContentLength != nil {
				size = *blob.Properties.ContentLength
			}
			objects = append(objects, ObjectInfo{
				Key:        strings.TrimPrefix(blob.Name, p.prefix),
				Size:       size,
				ModifiedAt: blob.Properties.LastModified,
			})
		}
	}
	return objects, nil
}
