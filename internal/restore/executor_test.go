package restore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"tenant-backup/internal/errors"
)

func TestProcedureExecutorDecodesOutcome(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock database: %v", err)
	}
	defer db.Close()

	outcome := `{"success":true,"counts_expected":{"invoices":80,"customers":20},"summary":{"tables":2}}`
	mock.ExpectQuery(`CALL restore_company_backup\(\?, \?\)`).
		WithArgs(int64(12), true).
		WillReturnRows(sqlmock.NewRows([]string{"outcome"}).AddRow(outcome))

	executor := NewProcedureExecutor(db)
	report, err := executor.Restore(context.Background(), 12, true)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if !report.Success {
		t.Error("expected success outcome")
	}
	if report.RestoredRecords() != 100 {
		t.Errorf("expected 100 expected records, got %d", report.RestoredRecords())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProcedureExecutorFailedOutcomePassesThrough(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock database: %v", err)
	}
	defer db.Close()

	outcome := `{"success":false,"error":"duplicate entry for key invoices.PRIMARY"}`
	mock.ExpectQuery(`CALL restore_company_backup\(\?, \?\)`).
		WithArgs(int64(12), false).
		WillReturnRows(sqlmock.NewRows([]string{"outcome"}).AddRow(outcome))

	executor := NewProcedureExecutor(db)
	report, err := executor.Restore(context.Background(), 12, false)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if report.Success {
		t.Error("expected failed outcome")
	}
	if report.Error != "duplicate entry for key invoices.PRIMARY" {
		t.Errorf("expected verbatim executor error, got %q", report.Error)
	}
}

func TestProcedureExecutorUnreadableOutcome(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`CALL restore_company_backup\(\?, \?\)`).
		WithArgs(int64(12), true).
		WillReturnRows(sqlmock.NewRows([]string{"outcome"}).AddRow("not json"))

	executor := NewProcedureExecutor(db)
	_, err = executor.Restore(context.Background(), 12, true)
	if err == nil {
		t.Fatal("expected error for unreadable outcome")
	}
	if errors.GetErrorType(err) != errors.ErrorTypeExecution {
		t.Errorf("expected execution error, got %v", err)
	}
}
