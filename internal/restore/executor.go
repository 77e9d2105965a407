package restore

import (
	"context"
	"database/sql"
	"encoding/json"

	"tenant-backup/internal/errors"
)

// ExecutorReport is the structured outcome one executor invocation returns
type ExecutorReport struct {
	Success        bool                   `json:"success"`
	CountsExpected map[string]int         `json:"counts_expected,omitempty"`
	Summary        map[string]interface{} `json:"summary,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

// RestoredRecords sums the per-table counts the executor expects to write.
// Callers check CountsExpected for nil to tell absent counts from zero rows.
func (r *ExecutorReport) RestoredRecords() int {
	total := 0
	for _, count := range r.CountsExpected {
		total += count
	}
	return total
}

// Executor performs the actual writes for one queue entry. It resolves the
// entry's payload itself, so callers pass only the queue id and the dry-run
// flag. All writes of one invocation either fully commit or fully roll back;
// a dry run always rolls back.
type Executor interface {
	Restore(ctx context.Context, queueID int64, dryRun bool) (*ExecutorReport, error)
}

// ProcedureExecutor invokes the database-side restore procedure, which owns
// the transactional write path
type ProcedureExecutor struct {
	db *sql.DB
}

// NewProcedureExecutor creates an executor over the stored procedure
func NewProcedureExecutor(db *sql.DB) *ProcedureExecutor {
	return &ProcedureExecutor{db: db}
}

// Restore calls restore_company_backup and decodes its JSON outcome
func (e *ProcedureExecutor) Restore(ctx context.Context, queueID int64, dryRun bool) (*ExecutorReport, error) {
	var outcome string
	err := e.db.QueryRowContext(ctx, "CALL restore_company_backup(?, ?)", queueID, dryRun).Scan(&outcome)
	if err != nil {
		return nil, errors.NewExecutionError("restore procedure call failed", err)
	}

	var report ExecutorReport
	if err := json.Unmarshal([]byte(outcome), &report); err != nil {
		return nil, errors.NewExecutionError("restore procedure returned an unreadable outcome", err)
	}
	return &report, nil
}
