package storage

import (
	"context"
	"time"

	"tenant-backup/internal/errors"
)

// ObjectInfo describes one stored archive
type ObjectInfo struct {
	Key        string
	Size       int64
	ModifiedAt time.Time
}

// Provider abstracts blob operations over the supported backends. Keys are
// forward-slash separated paths relative to the provider's root.
type Provider interface {
	Store(ctx context.Context, key string, data []byte) error
	Retrieve(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// NewProvider creates the provider selected by the configuration
func NewProvider(ctx context.Context, config *Config) (Provider, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Provider {
	case TypeLocal:
		return NewLocalProvider(config.Local)
	case TypeS3:
		return NewS3Provider(config.S3)
	case TypeAzure:
		return NewAzureProvider(config.Azure)
	case TypeGCS:
		return NewGCSProvider(ctx, config.GCS)
	default:
		return nil, errors.NewStorageError("unsupported storage provider: "+string(config.Provider), nil)
	}
}
