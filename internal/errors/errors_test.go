package errors

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestAppError(t *testing.T) {
	cause := errors.New("underlying error")
	appErr := NewAppError(ErrorTypeConnection, "connection failed", cause)

	if appErr.Type != ErrorTypeConnection {
		t.Errorf("Expected type %v, got %v", ErrorTypeConnection, appErr.Type)
	}

	if appErr.Message != "connection failed" {
		t.Errorf("Expected message 'connection failed', got %v", appErr.Message)
	}

	if appErr.Cause != cause {
		t.Errorf("Expected cause %v, got %v", cause, appErr.Cause)
	}

	if appErr.IsRecoverable() {
		t.Error("Expected non-recoverable error")
	}

	expectedError := "connection: connection failed (caused by: underlying error)"
	if appErr.Error() != expectedError {
		t.Errorf("Expected error string %v, got %v", expectedError, appErr.Error())
	}
}

func TestAppErrorWithContext(t *testing.T) {
	appErr := NewAppError(ErrorTypeSQL, "query failed", nil)
	appErr.WithContext("table", "invoices").WithContext("tenant_id", 123)

	if appErr.Context["table"] != "invoices" {
		t.Errorf("Expected context table=invoices, got %v", appErr.Context["table"])
	}

	if appErr.Context["tenant_id"] != 123 {
		t.Errorf("Expected context tenant_id=123, got %v", appErr.Context["tenant_id"])
	}
}

func TestNewRecoverableError(t *testing.T) {
	appErr := NewRecoverableError(ErrorTypeConnection, "temporary failure", nil)

	if !appErr.IsRecoverable() {
		t.Error("Expected recoverable error")
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		err          *AppError
		expectedType ErrorType
	}{
		{"not found", NewNotFoundError("tenant missing", nil), ErrorTypeNotFound},
		{"authorization", NewAuthorizationError("owner role required"), ErrorTypeAuthorization},
		{"conflict", NewConflictError("restore already pending"), ErrorTypeConflict},
		{"execution", NewExecutionError("executor failed", nil), ErrorTypeExecution},
		{"batch persistence", NewBatchPersistenceError("partial batch write", nil), ErrorTypeBatchPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.expectedType {
				t.Errorf("Expected type %v, got %v", tt.expectedType, tt.err.Type)
			}
			if tt.err.IsRecoverable() {
				t.Error("Expected non-recoverable error")
			}
		})
	}
}

func TestErrorClassifier_ClassifyMySQLError(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		name         string
		mysqlErr     *mysql.MySQLError
		expectedType ErrorType
		recoverable  bool
	}{
		{
			name:         "access denied",
			mysqlErr:     &mysql.MySQLError{Number: 1045, Message: "Access denied"},
			expectedType: ErrorTypeAuthorization,
			recoverable:  false,
		},
		{
			name:         "unknown database",
			mysqlErr:     &mysql.MySQLError{Number: 1049, Message: "Unknown database"},
			expectedType: ErrorTypeNotFound,
			recoverable:  false,
		},
		{
			name:         "duplicate entry",
			mysqlErr:     &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"},
			expectedType: ErrorTypeConflict,
			recoverable:  false,
		},
		{
			name:         "fk constraint",
			mysqlErr:     &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"},
			expectedType: ErrorTypeIntegrity,
			recoverable:  false,
		},
		{
			name:         "connection refused",
			mysqlErr:     &mysql.MySQLError{Number: 2003, Message: "Can't connect"},
			expectedType: ErrorTypeConnection,
			recoverable:  true,
		},
		{
			name:         "server gone away",
			mysqlErr:     &mysql.MySQLError{Number: 2006, Message: "MySQL server has gone away"},
			expectedType: ErrorTypeConnection,
			recoverable:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := classifier.ClassifyError(tt.mysqlErr)
			if appErr.Type != tt.expectedType {
				t.Errorf("Expected type %v, got %v", tt.expectedType, appErr.Type)
			}
			if appErr.IsRecoverable() != tt.recoverable {
				t.Errorf("Expected recoverable=%v, got %v", tt.recoverable, appErr.IsRecoverable())
			}
		})
	}
}

func TestErrorClassifier_SQLDriverErrors(t *testing.T) {
	classifier := NewErrorClassifier()

	appErr := classifier.ClassifyError(sql.ErrNoRows)
	if appErr.Type != ErrorTypeNotFound {
		t.Errorf("Expected type %v, got %v", ErrorTypeNotFound, appErr.Type)
	}

	appErr = classifier.ClassifyError(sql.ErrConnDone)
	if appErr.Type != ErrorTypeConnection {
		t.Errorf("Expected type %v, got %v", ErrorTypeConnection, appErr.Type)
	}
	if !appErr.IsRecoverable() {
		t.Error("Expected closed connection to be recoverable")
	}
}

func TestErrorClassifier_ContextErrors(t *testing.T) {
	classifier := NewErrorClassifier()

	appErr := classifier.ClassifyError(context.DeadlineExceeded)
	if appErr.Type != ErrorTypeTimeout {
		t.Errorf("Expected type %v, got %v", ErrorTypeTimeout, appErr.Type)
	}

	appErr = classifier.ClassifyError(context.Canceled)
	if appErr.Type != ErrorTypeInterruption {
		t.Errorf("Expected type %v, got %v", ErrorTypeInterruption, appErr.Type)
	}
}

func TestErrorClassifier_PassesThroughAppError(t *testing.T) {
	classifier := NewErrorClassifier()
	original := NewExecutionError("executor failed", nil)

	classified := classifier.ClassifyError(original)
	if classified != original {
		t.Error("Expected classifier to return the original AppError unchanged")
	}
}

func TestRetryHandler_SuccessAfterRetry(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
		Multiplier:  2.0,
	})

	attempts := 0
	err := handler.Retry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return &mysql.MySQLError{Number: 2003, Message: "Can't connect"}
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestRetryHandler_NonRecoverableNotRetried(t *testing.T) {
	handler := NewDefaultRetryHandler()

	attempts := 0
	err := handler.Retry(context.Background(), func() error {
		attempts++
		return NewExecutionError("executor failed", nil)
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Expected exactly 1 attempt for non-recoverable error, got %d", attempts)
	}
	if GetErrorType(err) != ErrorTypeExecution {
		t.Errorf("Expected execution error type, got %v", GetErrorType(err))
	}
}

func TestRetryHandler_ExhaustsAttempts(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Multiplier:  1.0,
	})

	attempts := 0
	err := handler.Retry(context.Background(), func() error {
		attempts++
		return &mysql.MySQLError{Number: 2003, Message: "Can't connect"}
	})

	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "context") != nil {
		t.Error("Expected nil for nil error")
	}

	original := NewNotFoundError("tenant missing", nil)
	wrapped := WrapError(original, "export failed")

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("Expected wrapped error to be an AppError")
	}
	if appErr.Type != ErrorTypeNotFound {
		t.Errorf("Expected wrapped error to keep type %v, got %v", ErrorTypeNotFound, appErr.Type)
	}
	if appErr.Message != "export failed" {
		t.Errorf("Expected wrapped message, got %v", appErr.Message)
	}
}

func TestGetErrorType_NonAppError(t *testing.T) {
	if GetErrorType(errors.New("plain")) != ErrorTypeUnknown {
		t.Error("Expected unknown type for plain error")
	}
}

func TestFormatUserError(t *testing.T) {
	if FormatUserError(nil) != "" {
		t.Error("Expected empty string for nil error")
	}

	appErr := NewAuthorizationError("only the tenant owner may restore")
	if FormatUserError(appErr) != "only the tenant owner may restore" {
		t.Errorf("Unexpected user message: %v", FormatUserError(appErr))
	}
}
