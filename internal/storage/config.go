package storage

import (
	"os"

	"tenant-backup/internal/errors"
)

// Type identifies a storage backend
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
	TypeAzure Type = "azure"
	TypeGCS   Type = "gcs"
)

// CompressionType identifies an archive compression algorithm
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionLZ4  CompressionType = "lz4"
	CompressionZstd CompressionType = "zstd"
)

// Config selects and configures the snapshot archive backend
type Config struct {
	Provider         Type             `mapstructure:"provider" yaml:"provider"`
	Local            *LocalConfig     `mapstructure:"local" yaml:"local,omitempty"`
	S3               *S3Config        `mapstructure:"s3" yaml:"s3,omitempty"`
	Azure            *AzureConfig     `mapstructure:"azure" yaml:"azure,omitempty"`
	GCS              *GCSConfig       `mapstructure:"gcs" yaml:"gcs,omitempty"`
	Compression      CompressionType  `mapstructure:"compression" yaml:"compression"`
	CompressionLevel int              `mapstructure:"compression_level" yaml:"compression_level"`
	Encryption       EncryptionConfig `mapstructure:"encryption" yaml:"encryption"`
	Retention        RetentionPolicy  `mapstructure:"retention" yaml:"retention,omitempty"`
}

// LocalConfig configures filesystem archive storage
type LocalConfig struct {
	BasePath    string      `mapstructure:"base_path" yaml:"base_path"`
	Permissions os.FileMode `mapstructure:"permissions" yaml:"permissions"`
}

// S3Config configures S3 archive storage
type S3Config struct {
	Region    string `mapstructure:"region" yaml:"region"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// AzureConfig configures Azure Blob archive storage
type AzureConfig struct {
	AccountName string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey  string `mapstructure:"account_key" yaml:"account_key"`
	Container   string `mapstructure:"container" yaml:"container"`
	Prefix      string `mapstructure:"prefix" yaml:"prefix"`
}

// GCSConfig configures Google Cloud Storage archive storage
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
}

// EncryptionConfig configures archive encryption. When enabled, archives are
// sealed with AES-256-GCM under a key derived from the passphrase.
type EncryptionConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase"`
	KeyFile    string `mapstructure:"key_file" yaml:"key_file"`
}

// SetDefaults fills in defaults for the selected provider
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = TypeLocal
	}
	if c.Compression == "" {
		c.Compression = CompressionGzip
	}

	switch c.Provider {
	case TypeLocal:
		if c.Local == nil {
			c.Local = &LocalConfig{}
		}
		if c.Local.BasePath == "" {
			c.Local.BasePath = "./snapshots"
		}
		if c.Local.Permissions == 0 {
			c.Local.Permissions = 0o750
		}
	case TypeS3:
		if c.S3 == nil {
			c.S3 = &S3Config{}
		}
		if c.S3.Region == "" {
			c.S3.Region = "us-east-1"
		}
		if c.S3.Prefix == "" {
			c.S3.Prefix = "snapshots/"
		}
	case TypeAzure:
		if c.Azure == nil {
			c.Azure = &AzureConfig{}
		}
		if c.Azure.Prefix == "" {
			c.Azure.Prefix = "snapshots/"
		}
	case TypeGCS:
		if c.GCS == nil {
			c.GCS = &GCSConfig{}
		}
		if c.GCS.Prefix == "" {
			c.GCS.Prefix = "snapshots/"
		}
	}
}

// Validate checks the configuration for the selected provider
func (c *Config) Validate() error {
	switch c.Provider {
	case TypeLocal:
		if c.Local == nil || c.Local.BasePath == "" {
			return errors.NewStorageError("local storage requires a base path", nil)
		}
	case TypeS3:
		if c.S3 == nil || c.S3.Bucket == "" {
			return errors.NewStorageError("S3 storage requires a bucket", nil)
		}
	case TypeAzure:
		if c.Azure == nil || c.Azure.AccountName == "" || c.Azure.Container == "" {
			return errors.NewStorageError("Azure storage requires an account name and container", nil)
		}
	case TypeGCS:
		if c.GCS == nil || c.GCS.Bucket == "" {
			return errors.NewStorageError("GCS storage requires a bucket", nil)
		}
	default:
		return errors.NewStorageError("unsupported storage provider: "+string(c.Provider), nil)
	}

	switch c.Compression {
	case CompressionNone, CompressionGzip, CompressionLZ4, CompressionZstd:
	default:
		return errors.NewStorageError("unsupported compression algorithm: "+string(c.Compression), nil)
	}

	if c.Encryption.Enabled && c.Encryption.Passphrase == "" && c.Encryption.KeyFile == "" {
		return errors.NewStorageError("encryption requires a passphrase or key file", nil)
	}
	return nil
}
