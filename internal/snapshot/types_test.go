package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-backup/internal/errors"
)

func sampleSnapshot(t *testing.T) *BackupData {
	t.Helper()

	data := map[string][]Row{
		"companies": {{"id": int64(1), "name": "Acme Ltd"}},
		"invoices": {
			{"id": int64(10), "company_id": int64(1), "customer_id": int64(5), "total": 150.0},
			{"id": int64(11), "company_id": int64(1), "customer_id": int64(5), "total": 80.5},
		},
	}

	checksum, err := ComputeChecksum(data)
	require.NoError(t, err)

	return &BackupData{
		Metadata: &Metadata{
			ID:            "snap-1",
			FormatVersion: "1.0",
			SystemVersion: "2.4.1",
			CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			CreatedBy:     42,
			TenantID:      1,
			TenantName:    "Acme Ltd",
			Kind:          BackupKindFull,
			TotalRecords:  3,
			Checksum:      checksum,
		},
		SchemaInfo: &SchemaInfo{
			Tables:   []string{"companies", "invoices"},
			Versions: map[string]string{"companies": "3", "invoices": "4"},
		},
		Data: data,
		Excluded: ExcludedData{
			Reason: "authentication data is never exported",
			Tables: []string{"users", "sessions"},
		},
	}
}

func TestComputeChecksum_Deterministic(t *testing.T) {
	data := map[string][]Row{
		"customers": {{"id": int64(1), "name": "First"}},
	}

	first, err := ComputeChecksum(data)
	require.NoError(t, err)
	second, err := ComputeChecksum(data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "checksum must be lower-case hex SHA-256")
}

func TestVerifyChecksum(t *testing.T) {
	snap := sampleSnapshot(t)

	ok, err := snap.VerifyChecksum()
	require.NoError(t, err)
	assert.True(t, ok)

	// A single changed byte in the data must break verification
	snap.Data["invoices"][0]["total"] = 150.01
	ok, err = snap.VerifyChecksum()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTotalRecords(t *testing.T) {
	snap := sampleSnapshot(t)
	assert.Equal(t, 3, snap.TotalRecords())
}

func TestValidate_MissingSections(t *testing.T) {
	snap := &BackupData{Data: map[string][]Row{}}
	err := snap.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeStructural, errors.GetErrorType(err))

	snap = &BackupData{Metadata: &Metadata{}}
	err = snap.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeStructural, errors.GetErrorType(err))
}

func TestJSONRoundTrip(t *testing.T) {
	snap := sampleSnapshot(t)

	encoded, err := snap.ToJSON()
	require.NoError(t, err)

	decoded, err := FromJSON(encoded)
	require.NoError(t, err)

	assert.Equal(t, snap.Metadata.ID, decoded.Metadata.ID)
	assert.Equal(t, snap.Metadata.Checksum, decoded.Metadata.Checksum)
	assert.Equal(t, snap.TotalRecords(), decoded.TotalRecords())
	assert.Equal(t, snap.Excluded.Tables, decoded.Excluded.Tables)
}

func TestFromJSON_RejectsMissingMetadata(t *testing.T) {
	_, err := FromJSON([]byte(`{"data": {}}`))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeStructural, errors.GetErrorType(err))
}

func TestFromJSON_RejectsMissingData(t *testing.T) {
	_, err := FromJSON([]byte(`{"metadata": {"id": "snap-1"}}`))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeStructural, errors.GetErrorType(err))
}

func TestFromJSON_RejectsMalformedJSON(t *testing.T) {
	_, err := FromJSON([]byte(`{not json`))
	require.Error(t, err)
}
