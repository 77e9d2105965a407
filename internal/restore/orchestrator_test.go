package restore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tenant-backup/internal/errors"
	"tenant-backup/internal/tenancy"
)

// stubExecutor simulates the transactional write path, including dry runs
// that always roll back
type stubExecutor struct {
	report     *ExecutorReport
	err        error
	calls      int
	lastDryRun bool
}

func (s *stubExecutor) Restore(ctx context.Context, queueID int64, dryRun bool) (*ExecutorReport, error) {
	s.calls++
	s.lastDryRun = dryRun
	return s.report, s.err
}

func newTestOrchestrator(t *testing.T, executor Executor) (*Orchestrator, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	orchestrator := NewOrchestratorWithStore(NewStore(db, nil), executor, tenancy.NewService(db, nil), nil)
	return orchestrator, mock
}

func expectPendingEntry(mock sqlmock.Sqlmock, queueID int64, totalRecords int) {
	mock.ExpectQuery("SELECT id, company_id, user_id, status, total_records, payload").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "user_id", "status", "total_records", "payload", "report", "origin_ip", "created_at", "processed_at",
		}).AddRow(queueID, int64(1), int64(42), string(StatusPending), totalRecords, "", nil, "203.0.113.9", time.Now().UTC(), nil))
	mock.ExpectQuery("SELECT table_name, batch_index, row_count FROM restore_batches").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "batch_index", "row_count"}))
}

func expectOwner(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT role FROM company_users").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("owner"))
}

func expectStatusWrite(mock sqlmock.Sqlmock, queueID int64, status Status) {
	mock.ExpectExec("UPDATE restore_queue SET status").
		WithArgs(string(status), sqlmock.AnyArg(), sqlmock.AnyArg(), queueID, string(StatusPending), string(StatusDryRunSuccess)).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestRestore_DryRunNeverCompletes(t *testing.T) {
	executor := &stubExecutor{report: &ExecutorReport{Success: true}}
	orchestrator, mock := newTestOrchestrator(t, executor)

	expectPendingEntry(mock, 7, 120)
	expectOwner(mock)
	expectStatusWrite(mock, 7, StatusDryRunSuccess)

	result, err := orchestrator.Restore(context.Background(), 7, 42, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !result.Success || result.Mode != ModeDryRun {
		t.Errorf("Unexpected result: %+v", result)
	}
	if !executor.lastDryRun {
		t.Error("Expected the executor to receive the dry-run flag")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Dry run must set DRY_RUN_SUCCESS, never COMPLETED: %v", err)
	}
}

func TestRestore_RealExecutionCompletes(t *testing.T) {
	executor := &stubExecutor{report: &ExecutorReport{
		Success:        true,
		CountsExpected: map[string]int{"invoices": 100, "customers": 20},
	}}
	orchestrator, mock := newTestOrchestrator(t, executor)

	expectPendingEntry(mock, 7, 120)
	expectOwner(mock)
	expectStatusWrite(mock, 7, StatusCompleted)

	result, err := orchestrator.Restore(context.Background(), 7, 42, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Mode != ModeExecute {
		t.Errorf("Expected execute mode, got %s", result.Mode)
	}
	if result.RecordsRestored != 120 {
		t.Errorf("Expected 120 records from the executor report, got %d", result.RecordsRestored)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestRestore_RecordsFallBackToDeclaredTotal(t *testing.T) {
	// Executor succeeded but reported no counts
	executor := &stubExecutor{report: &ExecutorReport{Success: true}}
	orchestrator, mock := newTestOrchestrator(t, executor)

	expectPendingEntry(mock, 7, 350)
	expectOwner(mock)
	expectStatusWrite(mock, 7, StatusCompleted)

	result, err := orchestrator.Restore(context.Background(), 7, 42, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.RecordsRestored != 350 {
		t.Errorf("Expected fallback to the declared total of 350, got %d", result.RecordsRestored)
	}
}

func TestRestore_ZeroCountsAreNotDeclaredTotal(t *testing.T) {
	// Counts are present and add up to zero; the declared total must not
	// replace them
	executor := &stubExecutor{report: &ExecutorReport{
		Success:        true,
		CountsExpected: map[string]int{"invoices": 0, "customers": 0},
	}}
	orchestrator, mock := newTestOrchestrator(t, executor)

	expectPendingEntry(mock, 7, 350)
	expectOwner(mock)
	expectStatusWrite(mock, 7, StatusCompleted)

	result, err := orchestrator.Restore(context.Background(), 7, 42, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.RecordsRestored != 0 {
		t.Errorf("Expected 0 records from an all-zero report, got %d", result.RecordsRestored)
	}
}

func TestRestore_ExecutorErrorMarksFailed(t *testing.T) {
	executor := &stubExecutor{err: fmt.Errorf("duplicate entry for key invoices.PRIMARY")}
	orchestrator, mock := newTestOrchestrator(t, executor)

	expectPendingEntry(mock, 7, 120)
	expectOwner(mock)
	expectStatusWrite(mock, 7, StatusFailed)

	result, err := orchestrator.Restore(context.Background(), 7, 42, false)
	if err == nil {
		t.Fatal("Expected the executor error to propagate")
	}
	if result == nil || result.Success {
		t.Errorf("Expected a failed result, got %+v", result)
	}
	if result.Error != "duplicate entry for key invoices.PRIMARY" {
		t.Errorf("Expected the executor message verbatim, got %q", result.Error)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestRestore_DryRunErrorMarksDryRunFailed(t *testing.T) {
	executor := &stubExecutor{report: &ExecutorReport{Success: false, Error: "constraint violation in simulation"}}
	orchestrator, mock := newTestOrchestrator(t, executor)

	expectPendingEntry(mock, 7, 120)
	expectOwner(mock)
	expectStatusWrite(mock, 7, StatusDryRunFailed)

	_, err := orchestrator.Restore(context.Background(), 7, 42, true)
	if err == nil {
		t.Fatal("Expected a dry run that errors to be a failure, not a neutral outcome")
	}
	if errors.GetErrorType(err) != errors.ErrorTypeExecution {
		t.Errorf("Expected execution error, got %v", errors.GetErrorType(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestRestore_NonOwnerBlockedBeforeExecutorCall(t *testing.T) {
	executor := &stubExecutor{report: &ExecutorReport{Success: true}}
	orchestrator, mock := newTestOrchestrator(t, executor)

	expectPendingEntry(mock, 7, 120)
	mock.ExpectQuery("SELECT role FROM company_users").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))

	_, err := orchestrator.Restore(context.Background(), 7, 42, false)
	if err == nil {
		t.Fatal("Expected authorization error for a non-owner")
	}
	if errors.GetErrorType(err) != errors.ErrorTypeAuthorization {
		t.Errorf("Expected authorization error, got %v", errors.GetErrorType(err))
	}
	if executor.calls != 0 {
		t.Error("Executor must not be invoked for an unauthorized caller")
	}
}

func TestRestore_TerminalEntryRejected(t *testing.T) {
	executor := &stubExecutor{report: &ExecutorReport{Success: true}}
	orchestrator, mock := newTestOrchestrator(t, executor)

	mock.ExpectQuery("SELECT id, company_id, user_id, status, total_records, payload").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "user_id", "status", "total_records", "payload", "report", "origin_ip", "created_at", "processed_at",
		}).AddRow(int64(7), int64(1), int64(42), string(StatusCompleted), 120, "", nil, "203.0.113.9", time.Now().UTC(), nil))
	mock.ExpectQuery("SELECT table_name, batch_index, row_count FROM restore_batches").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "batch_index", "row_count"}))

	_, err := orchestrator.Restore(context.Background(), 7, 42, false)
	if err == nil {
		t.Fatal("Expected conflict for a terminal queue entry")
	}
	if errors.GetErrorType(err) != errors.ErrorTypeConflict {
		t.Errorf("Expected conflict error, got %v", errors.GetErrorType(err))
	}
	if executor.calls != 0 {
		t.Error("Executor must not be invoked for a terminal entry")
	}
}
