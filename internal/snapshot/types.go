package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"tenant-backup/internal/errors"
)

// BackupKind distinguishes full tenant snapshots from partial ones
type BackupKind string

const (
	BackupKindFull    BackupKind = "full"
	BackupKindPartial BackupKind = "partial"
)

// InlineThreshold is the record count above which a snapshot is too large to
// travel inline with its queue entry and is persisted as batches instead
const InlineThreshold = 1000

// Row is one exported table row, keyed by column name
type Row map[string]interface{}

// Metadata describes one snapshot. It is immutable once computed; the
// validator recomputes the checksum and requires an exact match.
type Metadata struct {
	ID            string     `json:"id"`
	FormatVersion string     `json:"format_version"`
	SystemVersion string     `json:"system_version"`
	SchemaVersion string     `json:"schema_version"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     int64      `json:"created_by"`
	TenantID      int64      `json:"tenant_id"`
	TenantName    string     `json:"tenant_name"`
	Kind          BackupKind `json:"kind"`
	TotalRecords  int        `json:"total_records"`
	Checksum      string     `json:"checksum"`
}

// SchemaInfo records which tables a snapshot contains and their per-table
// schema version tags, used to detect structural drift on restore
type SchemaInfo struct {
	Tables   []string          `json:"tables"`
	Versions map[string]string `json:"versions"`
}

// ExcludedData names the tables deliberately left out of the snapshot
type ExcludedData struct {
	Reason string   `json:"reason"`
	Tables []string `json:"table_names"`
}

// BackupData is the full snapshot of one tenant's dataset
type BackupData struct {
	Metadata   *Metadata      `json:"metadata"`
	SchemaInfo *SchemaInfo    `json:"schema_info"`
	Data       map[string][]Row `json:"data"`
	Excluded   ExcludedData   `json:"excluded_data"`
}

// ComputeChecksum returns the lower-case hex SHA-256 over the canonical JSON
// encoding of the data payload. Only the data key is covered; metadata and
// schema_info are outside the checksum.
func ComputeChecksum(data map[string][]Row) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", errors.NewAppError(errors.ErrorTypeStructural, "failed to encode snapshot data for checksum", err)
	}
	hash := sha256.Sum256(encoded)
	return hex.EncodeToString(hash[:]), nil
}

// TotalRecords returns the row count sum across all tables in the snapshot
func (b *BackupData) TotalRecords() int {
	total := 0
	for _, rows := range b.Data {
		total += len(rows)
	}
	return total
}

// VerifyChecksum recomputes the data checksum and compares it to the metadata
func (b *BackupData) VerifyChecksum() (bool, error) {
	if b.Metadata == nil {
		return false, errors.NewAppError(errors.ErrorTypeStructural, "snapshot has no metadata", nil)
	}
	checksum, err := ComputeChecksum(b.Data)
	if err != nil {
		return false, err
	}
	return checksum == b.Metadata.Checksum, nil
}

// Validate performs the structural checks every consumer must apply: the
// metadata and data keys must both be present
func (b *BackupData) Validate() error {
	if b.Metadata == nil {
		return errors.NewAppError(errors.ErrorTypeStructural, "snapshot is missing the metadata section", nil)
	}
	if b.Data == nil {
		return errors.NewAppError(errors.ErrorTypeStructural, "snapshot is missing the data section", nil)
	}
	return nil
}

// ToJSON serializes the snapshot to its wire format
func (b *BackupData) ToJSON() ([]byte, error) {
	encoded, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, errors.NewAppError(errors.ErrorTypeStructural, "failed to serialize snapshot", err)
	}
	return encoded, nil
}

// FromJSON deserializes a snapshot from its wire format and applies the
// structural checks
func FromJSON(data []byte) (*BackupData, error) {
	var b BackupData
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errors.NewAppError(errors.ErrorTypeStructural, "failed to parse snapshot JSON", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
