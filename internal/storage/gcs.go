package storage

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"tenant-backup/internal/errors"
)

// GCSProvider stores archives in a Google Cloud Storage bucket
type GCSProvider struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSProvider creates a GCS provider, using the credentials file when
// configured and ambient credentials otherwise
func NewGCSProvider(ctx context.Context, config *GCSConfig) (*GCSProvider, error) {
	if config == nil || config.Bucket == "" {
		return nil, errors.NewStorageError("GCS storage requires a bucket", nil)
	}

	var client *storage.Client
	var err error
	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to create GCS client", err)
	}

	return &GCSProvider{client: client, bucket: config.Bucket, prefix: config.Prefix}, nil
}

func (p *GCSProvider) object(key string) *storage.ObjectHandle {
	return p.client.Bucket(p.bucket).Object(p.prefix + key)
}

// Store uploads one archive
func (p *GCSProvider) Store(ctx context.Context, key string, data []byte) error {
	writer := p.object(key).NewWriter(ctx)
	writer.ContentType = "application/octet-stream"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return errors.NewStorageError("failed to upload archive to GCS", err)
	}
	if err := writer.Close(); err != nil {
		return errors.NewStorageError("failed to finalize archive upload to GCS", err)
	}
	return nil
}

// Retrieve downloads one archive
func (p *GCSProvider) Retrieve(ctx context.Context, key string) ([]byte, error) {
	reader, err := p.object(key).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return nil, errors.NewNotFoundError("archive "+key+" does not exist", err)
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to download archive from GCS", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewStorageError("failed to read archive body", err)
	}
	return data, nil
}

// Delete removes one archive
func (p *GCSProvider) Delete(ctx context.Context, key string) error {
	if err := p.object(key).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return errors.NewNotFoundError("archive "+key+" does not exist", err)
		}
		return errors.NewStorageError("failed to delete archive from GCS", err)
	}
	return nil
}

// List returns archives under the prefix
func (p *GCSProvider) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects := make([]ObjectInfo, 0)

	it := p.client.Bucket(p.bucket).Objects(ctx, &storage.Query{Prefix: p.prefix + prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.NewStorageError("failed to list archives in GCS", err)
		}
		objects = append(objects, ObjectInfo{
			Key:        strings.TrimPrefix(attrs.Name, p.prefix),
			Size:       attrs.Size,
			ModifiedAt: attrs.Updated,
		})
	}
	return objects, nil
}
