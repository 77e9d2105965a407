package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tenant-backup/internal/errors"
	"tenant-backup/internal/snapshot"
	"tenant-backup/internal/version"
)

// envelope is the self-describing on-disk form of an archived snapshot. The
// payload is the snapshot JSON after compression and, when enabled,
// encryption.
type envelope struct {
	FormatVersion string          `json:"format_version"`
	Compression   CompressionType `json:"compression"`
	Encrypted     bool            `json:"encrypted"`
	TenantID      int64           `json:"tenant_id"`
	SnapshotID    string          `json:"snapshot_id"`
	ArchivedAt    time.Time       `json:"archived_at"`
	Payload       []byte          `json:"payload"`
}

// Archive writes and reads snapshots through a provider, applying the
// configured compression and encryption
type Archive struct {
	provider  Provider
	encryptor *Encryptor
	algorithm CompressionType
	level     int
}

// NewArchive creates an archive over the provider selected by the
// configuration
func NewArchive(ctx context.Context, config *Config) (*Archive, error) {
	provider, err := NewProvider(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewArchiveWithProvider(provider, config)
}

// NewArchiveWithProvider creates an archive over an explicit provider
func NewArchiveWithProvider(provider Provider, config *Config) (*Archive, error) {
	encryptor, err := NewEncryptor(config.Encryption)
	if err != nil {
		return nil, err
	}

	algorithm := config.Compression
	if algorithm == "" {
		algorithm = CompressionGzip
	}

	return &Archive{
		provider:  provider,
		encryptor: encryptor,
		algorithm: algorithm,
		level:     config.CompressionLevel,
	}, nil
}

// Key returns the storage key for one snapshot
func Key(tenantID int64, snapshotID string) string {
	return fmt.Sprintf("%d/%s.backup", tenantID, snapshotID)
}

// Write archives one snapshot and returns its storage key
func (a *Archive) Write(ctx context.Context, backup *snapshot.BackupData) (string, error) {
	if err := backup.Validate(); err != nil {
		return "", err
	}

	serialized, err := backup.ToJSON()
	if err != nil {
		return "", err
	}

	compressed, err := Compress(serialized, a.algorithm, a.level)
	if err != nil {
		return "", err
	}

	payload, err := a.encryptor.Encrypt(compressed)
	if err != nil {
		return "", err
	}

	wrapped, err := json.Marshal(envelope{
		FormatVersion: version.FormatVersion,
		Compression:   a.algorithm,
		Encrypted:     a.encryptor.Enabled(),
		TenantID:      backup.Metadata.TenantID,
		SnapshotID:    backup.Metadata.ID,
		ArchivedAt:    time.Now().UTC(),
		Payload:       payload,
	})
	if err != nil {
		return "", errors.NewStorageError("failed to serialize archive envelope", err)
	}

	key := Key(backup.Metadata.TenantID, backup.Metadata.ID)
	if err := a.provider.Store(ctx, key, wrapped); err != nil {
		return "", err
	}
	return key, nil
}

// Read loads, decrypts, and decompresses one archived snapshot
func (a *Archive) Read(ctx context.Context, key string) (*snapshot.BackupData, error) {
	wrapped, err := a.provider.Retrieve(ctx, key)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(wrapped, &env); err != nil {
		return nil, errors.NewStorageError("failed to parse archive envelope", err)
	}

	if env.Encrypted && !a.encryptor.Enabled() {
		return nil, errors.NewEncryptionError("archive is encrypted but no passphrase is configured", nil)
	}

	payload := env.Payload
	if env.Encrypted {
		payload, err = a.encryptor.Decrypt(payload)
		if err != nil {
			return nil, err
		}
	}

	serialized, err := Decompress(payload, env.Compression)
	if err != nil {
		return nil, err
	}

	return snapshot.FromJSON(serialized)
}

// List returns the archived snapshots for one tenant, or all tenants when
// tenantID is zero
func (a *Archive) List(ctx context.Context, tenantID int64) ([]ObjectInfo, error) {
	prefix := ""
	if tenantID != 0 {
		prefix = fmt.Sprintf("%d/", tenantID)
	}
	return a.provider.List(ctx, prefix)
}

// Delete removes one archived snapshot
func (a *Archive) Delete(ctx context.Context, key string) error {
	return a.provider.Delete(ctx, key)
}
