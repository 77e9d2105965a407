package restore

import (
	"time"

	"tenant-backup/internal/snapshot"
)

// Status is the lifecycle state of one queue entry
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusDryRunSuccess Status = "DRY_RUN_SUCCESS"
	StatusDryRunFailed  Status = "DRY_RUN_FAILED"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
)

// IsTerminal reports whether no further invocation may act on an entry in
// this status. A successful dry run is not terminal: the real execution is
// still expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDryRunFailed, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Mode distinguishes the two invocations of the restore state machine
type Mode string

const (
	ModeDryRun  Mode = "dry_run"
	ModeExecute Mode = "execute"
)

// Payload is the stored form of a queued snapshot. Small snapshots travel
// inline with the queue entry; large ones are persisted as batch rows.
type Payload interface {
	isPayload()
}

// InlinePayload carries the full snapshot inside the queue entry
type InlinePayload struct {
	Snapshot *snapshot.BackupData
}

func (InlinePayload) isPayload() {}

// BatchedPayload points at the batch rows holding the snapshot's data
type BatchedPayload struct {
	Refs []BatchRef
}

func (BatchedPayload) isPayload() {}

// BatchRef identifies one persisted batch without its rows
type BatchRef struct {
	Table string
	Index int
	Rows  int
}

// Batch is one bounded chunk of a single table's rows. Index is zero-based
// and preserves the source row order within the table.
type Batch struct {
	QueueID int64
	Table   string
	Index   int
	Rows    []snapshot.Row
}

// QueueEntry is the durable record of one restore attempt. Its status is
// written only by the orchestrator, exactly once per invocation.
type QueueEntry struct {
	ID           int64
	TenantID     int64
	UserID       int64
	Status       Status
	TotalRecords int
	Payload      Payload
	Report       string
	OriginIP     string
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

// Result is returned to the caller after one orchestrator invocation
type Result struct {
	Success         bool            `json:"success"`
	Mode            Mode            `json:"mode"`
	RecordsRestored int             `json:"records_restored"`
	Duration        time.Duration   `json:"duration"`
	Report          *ExecutorReport `json:"report,omitempty"`
	Error           string          `json:"error,omitempty"`
}
