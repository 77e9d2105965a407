package validate

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tenant-backup/internal/schema"
	"tenant-backup/internal/snapshot"
	"tenant-backup/internal/version"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	registry, err := schema.NewRegistry([]schema.Table{
		{Name: "companies", Version: "3", TenantColumn: "id"},
		{Name: "customers", Version: "3", TenantColumn: "company_id", Parents: []string{"companies"}},
		{Name: "invoices", Version: "4", TenantColumn: "company_id", Parents: []string{"companies", "customers"}},
		{Name: "journal_entries", Version: "2", TenantColumn: "company_id", Parents: []string{"companies"}},
		{Name: "journal_lines", Version: "2", TenantColumn: "company_id", Parents: []string{"journal_entries"}},
	}, schema.DefaultExcludedTables)
	if err != nil {
		t.Fatalf("Failed to build test registry: %v", err)
	}
	return registry
}

func testReferenceChecks() []schema.ReferenceCheck {
	return []schema.ReferenceCheck{
		{ChildTable: "invoices", ChildColumn: "customer_id", ParentTable: "customers", ParentColumn: "id"},
		{ChildTable: "journal_lines", ChildColumn: "journal_entry_id", ParentTable: "journal_entries", ParentColumn: "id"},
	}
}

func newTestValidator(t *testing.T) (*Validator, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewValidatorWithRegistry(db, testRegistry(t), testReferenceChecks(), nil), mock
}

// buildSnapshot assembles a snapshot whose checksum and metadata match the
// running system, so individual tests only break the part they target.
func buildSnapshot(t *testing.T, data map[string][]snapshot.Row) *snapshot.BackupData {
	t.Helper()

	checksum, err := snapshot.ComputeChecksum(data)
	if err != nil {
		t.Fatalf("Failed to compute checksum: %v", err)
	}

	backup := &snapshot.BackupData{
		Metadata: &snapshot.Metadata{
			ID:            "11111111-2222-3333-4444-555555555555",
			FormatVersion: version.FormatVersion,
			SystemVersion: version.Version,
			SchemaVersion: schema.PlatformSchemaVersion,
			CreatedAt:     time.Now().UTC(),
			CreatedBy:     42,
			TenantID:      1,
			TenantName:    "Acme Ltd",
			Kind:          snapshot.BackupKindFull,
			Checksum:      checksum,
		},
		SchemaInfo: &snapshot.SchemaInfo{Tables: []string{"companies", "customers", "invoices", "journal_entries", "journal_lines"}},
		Data:       data,
	}
	backup.Metadata.TotalRecords = backup.TotalRecords()
	return backup
}

func balancedData() map[string][]snapshot.Row {
	return map[string][]snapshot.Row{
		"companies": {{"id": int64(1), "name": "Acme Ltd"}},
		"customers": {{"id": int64(5), "company_id": int64(1), "name": "First Customer"}},
		"invoices":  {{"id": int64(100), "company_id": int64(1), "customer_id": int64(5), "total": 150.25}},
		"journal_entries": {
			{"id": int64(7), "company_id": int64(1)},
		},
		"journal_lines": {
			{"id": int64(70), "company_id": int64(1), "journal_entry_id": int64(7), "debit": 150.25, "credit": 0.0},
			{"id": int64(71), "company_id": int64(1), "journal_entry_id": int64(7), "debit": 0.0, "credit": 150.25},
		},
	}
}

func expectEmptyTarget(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM invoices WHERE company_id`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM journal_entries WHERE company_id`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
}

func TestValidate_CleanSnapshotAgainstEmptyTarget(t *testing.T) {
	validator, mock := newTestValidator(t)
	expectEmptyTarget(mock)

	result, err := validator.Validate(context.Background(), buildSnapshot(t, balancedData()), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !result.Valid {
		t.Fatalf("Expected valid result, got errors: %v", result.ErrorMessages())
	}
	if len(result.Errors) != 0 {
		t.Errorf("Expected zero errors, got %d", len(result.Errors))
	}
	if result.Report == nil {
		t.Fatal("Expected a report")
	}
	if result.Report.TotalInserts != 6 {
		t.Errorf("Expected 6 planned inserts, got %d", result.Report.TotalInserts)
	}
	for _, entry := range result.Report.Breakdown {
		if entry.Action != "insert" {
			t.Errorf("Expected insert action for %s, got %s", entry.Table, entry.Action)
		}
	}
	if result.Report.Risk == RiskHigh {
		t.Errorf("Expected non-high risk for a clean snapshot, got %s", result.Report.Risk)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestValidate_SnapshotWithoutSchemaInfo(t *testing.T) {
	validator, mock := newTestValidator(t)
	expectEmptyTarget(mock)

	backup := buildSnapshot(t, balancedData())
	backup.SchemaInfo = nil

	result, err := validator.Validate(context.Background(), backup, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !result.Valid {
		t.Fatalf("Expected valid result, got errors: %v", result.ErrorMessages())
	}
	if result.Report == nil {
		t.Fatal("Expected a report")
	}
	if len(result.Report.Breakdown) != len(backup.Data) {
		t.Errorf("Expected breakdown for %d tables, got %d", len(backup.Data), len(result.Report.Breakdown))
	}
	for _, entry := range result.Report.Breakdown {
		if _, ok := backup.Data[entry.Table]; !ok {
			t.Errorf("Breakdown names unknown table %s", entry.Table)
		}
	}
	if result.Report.TotalInserts != 6 {
		t.Errorf("Expected 6 planned inserts, got %d", result.Report.TotalInserts)
	}
}

func TestValidate_MissingMetadataSkipsRemainingChecks(t *testing.T) {
	validator, _ := newTestValidator(t)

	backup := &snapshot.BackupData{Data: balancedData()}
	result, err := validator.Validate(context.Background(), backup, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Valid {
		t.Error("Expected invalid result")
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != ErrorKindSchemaMismatch {
		t.Errorf("Expected a single schema_mismatch error, got %v", result.Errors)
	}
	if result.Report != nil {
		t.Error("Expected no report when the snapshot is structurally broken")
	}
}

func TestValidate_SystemVersionMismatch(t *testing.T) {
	validator, mock := newTestValidator(t)
	expectEmptyTarget(mock)

	backup := buildSnapshot(t, balancedData())
	backup.Metadata.SystemVersion = "9.9.9"

	result, err := validator.Validate(context.Background(), backup, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Valid {
		t.Error("Expected invalid result")
	}
	if !hasErrorKind(result, ErrorKindSystemVersion) {
		t.Errorf("Expected a system_version error, got %v", result.ErrorMessages())
	}
}

func TestValidate_TamperedDataBreaksChecksum(t *testing.T) {
	validator, mock := newTestValidator(t)
	expectEmptyTarget(mock)

	backup := buildSnapshot(t, balancedData())
	backup.Data["invoices"][0]["total"] = 999.99

	result, err := validator.Validate(context.Background(), backup, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Valid {
		t.Error("Expected invalid result")
	}
	if !hasErrorKind(result, ErrorKindSchemaMismatch) {
		t.Errorf("Expected a checksum error, got %v", result.ErrorMessages())
	}
	// Later checks still ran: the report is present and complete
	if result.Report == nil {
		t.Error("Expected a report even for an invalid snapshot")
	}
}

func TestValidate_TamperedTotalRecords(t *testing.T) {
	validator, mock := newTestValidator(t)
	expectEmptyTarget(mock)

	backup := buildSnapshot(t, balancedData())
	backup.Metadata.TotalRecords = 500

	result, err := validator.Validate(context.Background(), backup, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Valid {
		t.Error("Expected invalid result for a tampered record total")
	}
	if !hasErrorKind(result, ErrorKindSchemaMismatch) {
		t.Errorf("Expected a schema_mismatch error, got %v", result.ErrorMessages())
	}
}

func TestValidate_NonEmptyTargetRejected(t *testing.T) {
	validator, mock := newTestValidator(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM invoices WHERE company_id`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM journal_entries WHERE company_id`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	result, err := validator.Validate(context.Background(), buildSnapshot(t, balancedData()), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Valid {
		t.Error("Expected invalid result for a non-empty target")
	}
	if !hasErrorKind(result, ErrorKindAccountingIntegrity) {
		t.Errorf("Expected an accounting_integrity error, got %v", result.ErrorMessages())
	}
}

func TestValidate_DanglingReference(t *testing.T) {
	validator, mock := newTestValidator(t)
	expectEmptyTarget(mock)

	data := balancedData()
	data["invoices"] = append(data["invoices"], snapshot.Row{
		"id": int64(101), "company_id": int64(1), "customer_id": int64(999), "total": 10.0,
	})
	result, err := validator.Validate(context.Background(), buildSnapshot(t, data), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Valid {
		t.Error("Expected invalid result for a dangling reference")
	}
	found := false
	for _, e := range result.Errors {
		if e.Kind == ErrorKindForeignKey {
			found = true
			if e.Message != "invoices.customer_id=999 does not resolve to any customers.id in the snapshot" {
				t.Errorf("Unexpected reference message: %s", e.Message)
			}
		}
	}
	if !found {
		t.Errorf("Expected a foreign_key error, got %v", result.ErrorMessages())
	}
}

func TestValidate_ReferenceResolvesAcrossNumericTypes(t *testing.T) {
	validator, mock := newTestValidator(t)
	expectEmptyTarget(mock)

	// Parsed JSON carries ids as float64, fresh exports as int64
	data := balancedData()
	data["invoices"][0]["customer_id"] = float64(5)

	result, err := validator.Validate(context.Background(), buildSnapshot(t, data), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if hasErrorKind(result, ErrorKindForeignKey) {
		t.Errorf("Expected numeric forms of the same id to resolve, got %v", result.ErrorMessages())
	}
}

func TestValidate_UnbalancedJournalEntryIsWarning(t *testing.T) {
	validator, mock := newTestValidator(t)
	expectEmptyTarget(mock)

	data := balancedData()
	data["journal_lines"] = []snapshot.Row{
		{"id": int64(70), "company_id": int64(1), "journal_entry_id": int64(7), "debit": 100.00, "credit": 0.0},
		{"id": int64(71), "company_id": int64(1), "journal_entry_id": int64(7), "debit": 0.0, "credit": 99.98},
	}

	result, err := validator.Validate(context.Background(), buildSnapshot(t, data), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !result.Valid {
		t.Errorf("Unbalanced history must stay a warning, got errors: %v", result.ErrorMessages())
	}
	if !hasWarningKind(result, WarningKindAccountingIntegrity) {
		t.Errorf("Expected an accounting_integrity warning, got %v", result.Warnings)
	}
}

func TestValidate_BalanceWithinTolerance(t *testing.T) {
	validator, mock := newTestValidator(t)
	expectEmptyTarget(mock)

	data := balancedData()
	data["journal_lines"] = []snapshot.Row{
		{"id": int64(70), "company_id": int64(1), "journal_entry_id": int64(7), "debit": 100.00, "credit": 0.0},
		{"id": int64(71), "company_id": int64(1), "journal_entry_id": int64(7), "debit": 0.0, "credit": 100.005},
	}

	result, err := validator.Validate(context.Background(), buildSnapshot(t, data), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if hasWarningKind(result, WarningKindAccountingIntegrity) {
		t.Error("Expected a 0.005 difference to count as balanced")
	}
}

func TestValidate_Idempotent(t *testing.T) {
	validator, mock := newTestValidator(t)
	expectEmptyTarget(mock)
	expectEmptyTarget(mock)

	backup := buildSnapshot(t, balancedData())

	first, err := validator.Validate(context.Background(), backup, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := validator.Validate(context.Background(), backup, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical results for repeated validation of the same snapshot")
	}
}

func hasErrorKind(result *ValidationResult, kind ErrorKind) bool {
	for _, e := range result.Errors {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func hasWarningKind(result *ValidationResult, kind WarningKind) bool {
	for _, w := range result.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
