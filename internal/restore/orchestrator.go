package restore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"tenant-backup/internal/errors"
	"tenant-backup/internal/logging"
	"tenant-backup/internal/tenancy"
)

// Orchestrator drives the restore state machine. It re-verifies authorization
// at execution time, invokes the executor by queue id only, and writes the
// entry's post-invocation status exactly once, after the call returns. A
// successful dry run never chains into real execution; the caller must
// re-invoke explicitly.
type Orchestrator struct {
	store    *Store
	executor Executor
	tenants  *tenancy.Service
	logger   *logging.Logger
}

// NewOrchestrator creates an orchestrator over the queue store and executor
func NewOrchestrator(db *sql.DB, executor Executor, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Orchestrator{
		store:    NewStore(db, logger),
		executor: executor,
		tenants:  tenancy.NewService(db, logger),
		logger:   logger,
	}
}

// NewOrchestratorWithStore creates an orchestrator with an explicit store,
// executor, and tenancy service
func NewOrchestratorWithStore(store *Store, executor Executor, tenants *tenancy.Service, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Orchestrator{store: store, executor: executor, tenants: tenants, logger: logger}
}

// Store exposes the queue store for enqueueing
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Restore runs one invocation of the state machine for a queue entry. Dry
// run and real execution are independent invocations; an executor-side error
// always moves the entry to its failed status, even in dry-run mode.
func (o *Orchestrator) Restore(ctx context.Context, queueID int64, userID int64, dryRun bool) (*Result, error) {
	startTime := time.Now()

	mode := ModeExecute
	if dryRun {
		mode = ModeDryRun
	}

	entry, err := o.store.GetEntry(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if entry.Status.IsTerminal() {
		return nil, errors.NewConflictError(
			"queue entry " + strconv.FormatInt(queueID, 10) + " is already in a terminal status")
	}

	// Session state may have changed since the request was queued, so
	// ownership is checked again here, not only at enqueue time.
	if err := o.tenants.AuthorizeRestore(ctx, entry.TenantID, userID); err != nil {
		return nil, err
	}

	// The executor resolves inline versus batched on its own; it is the
	// single source of truth for what the entry contains.
	report, execErr := o.executor.Restore(ctx, queueID, dryRun)
	if execErr == nil && report == nil {
		report = &ExecutorReport{Success: true}
	}
	if execErr == nil && !report.Success {
		execErr = errors.NewExecutionError(report.Error, nil)
	}

	duration := time.Since(startTime)

	if execErr != nil {
		failed := StatusFailed
		if dryRun {
			failed = StatusDryRunFailed
		}
		if err := o.store.UpdateStatus(ctx, queueID, failed, execErr.Error()); err != nil {
			o.logger.WithField("queue_id", queueID).Errorf("Failed to record restore failure: %v", err)
		}
		o.logger.LogRestore(strconv.FormatInt(queueID, 10), dryRun, 0, duration, execErr)

		return &Result{
			Success:  false,
			Mode:     mode,
			Duration: duration,
			Report:   report,
			Error:    execErr.Error(),
		}, execErr
	}

	succeeded := StatusCompleted
	if dryRun {
		succeeded = StatusDryRunSuccess
	}

	reportJSON := ""
	if serialized, err := marshalReport(report); err == nil {
		reportJSON = serialized
	}
	if err := o.store.UpdateStatus(ctx, queueID, succeeded, reportJSON); err != nil {
		return nil, err
	}

	// Fall back to the entry's declared total only when the executor
	// reported no counts at all. A present all-zero map means zero rows.
	restored := report.RestoredRecords()
	if report.CountsExpected == nil {
		restored = entry.TotalRecords
	}

	o.logger.LogRestore(strconv.FormatInt(queueID, 10), dryRun, restored, duration, nil)

	return &Result{
		Success:         true,
		Mode:            mode,
		RecordsRestored: restored,
		Duration:        duration,
		Report:          report,
	}, nil
}

func marshalReport(report *ExecutorReport) (string, error) {
	if report == nil {
		return "", nil
	}
	serialized, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	return string(serialized), nil
}
