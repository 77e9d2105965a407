package restore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tenant-backup/internal/errors"
	"tenant-backup/internal/logging"
	"tenant-backup/internal/snapshot"
)

// Store persists queue entries and their batches. Enqueue always creates a
// PENDING entry; large snapshots are split into batch rows instead of being
// stored inline.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewStore creates a queue store
func NewStore(db *sql.DB, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Store{db: db, logger: logger}
}

// Enqueue creates the queue entry for one restore attempt. At most one
// non-terminal entry may exist per tenant; a second concurrent request is
// rejected with a conflict.
func (s *Store) Enqueue(ctx context.Context, backup *snapshot.BackupData, tenantID, userID int64, originIP string) (int64, error) {
	if err := backup.Validate(); err != nil {
		return 0, err
	}

	var pending int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM restore_queue WHERE company_id = ? AND status IN (?, ?)",
		tenantID, StatusPending, StatusDryRunSuccess).Scan(&pending)
	if err != nil {
		return 0, errors.WrapError(err, "failed to check for in-flight restores")
	}
	if pending > 0 {
		return 0, errors.NewConflictError(
			fmt.Sprintf("tenant %d already has a restore in flight", tenantID))
	}

	total := backup.TotalRecords()

	inline := ""
	if total <= snapshot.InlineThreshold {
		serialized, err := json.Marshal(backup)
		if err != nil {
			return 0, errors.NewAppError(errors.ErrorTypeStructural, "failed to serialize snapshot for queueing", err)
		}
		inline = string(serialized)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO restore_queue (company_id, user_id, status, total_records, payload, origin_ip, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		tenantID, userID, StatusPending, total, inline, originIP, time.Now().UTC())
	if err != nil {
		return 0, errors.WrapError(err, "failed to create queue entry")
	}
	queueID, err := result.LastInsertId()
	if err != nil {
		return 0, errors.WrapError(err, "failed to read queue entry id")
	}

	if inline == "" {
		if err := s.persistBatches(ctx, queueID, backup); err != nil {
			return 0, err
		}
	}

	return queueID, nil
}

// persistBatches chunks the snapshot into batches and writes them in bounded
// groups. A failure partway through marks the entry FAILED so no partial
// batch set is ever left behind a runnable queue entry.
func (s *Store) persistBatches(ctx context.Context, queueID int64, backup *snapshot.BackupData) error {
	startTime := time.Now()

	batches := SplitBatches(backup.Data, BatchSize)
	rowCount := 0

	for _, group := range GroupBatches(batches, InsertGroupSize) {
		if err := s.insertBatchGroup(ctx, queueID, group); err != nil {
			s.markFailed(ctx, queueID, err.Error())
			s.logger.LogBatchPersistence(strconv.FormatInt(queueID, 10), len(batches), rowCount, time.Since(startTime), err)
			return errors.NewBatchPersistenceError(
				fmt.Sprintf("failed to persist batches for queue entry %d", queueID), err)
		}
		for _, batch := range group {
			rowCount += len(batch.Rows)
		}
	}

	s.logger.LogBatchPersistence(strconv.FormatInt(queueID, 10), len(batches), rowCount, time.Since(startTime), nil)
	return nil
}

func (s *Store) insertBatchGroup(ctx context.Context, queueID int64, group []Batch) error {
	placeholders := make([]string, 0, len(group))
	args := make([]interface{}, 0, len(group)*5)

	for _, batch := range group {
		rows, err := json.Marshal(batch.Rows)
		if err != nil {
			return err
		}
		placeholders = append(placeholders, "(?, ?, ?, ?, ?)")
		args = append(args, queueID, batch.Table, batch.Index, len(batch.Rows), string(rows))
	}

	query := "INSERT INTO restore_batches (queue_id, table_name, batch_index, row_count, row_data) VALUES " +
		strings.Join(placeholders, ", ")
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// GetEntry loads one queue entry with its payload resolved to the inline or
// batched form
func (s *Store) GetEntry(ctx context.Context, queueID int64) (*QueueEntry, error) {
	var (
		entry       QueueEntry
		inline      sql.NullString
		report      sql.NullString
		processedAt sql.NullTime
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT id, company_id, user_id, status, total_records, payload, report, origin_ip, created_at, processed_at FROM restore_queue WHERE id = ?",
		queueID).Scan(&entry.ID, &entry.TenantID, &entry.UserID, &entry.Status, &entry.TotalRecords,
		&inline, &report, &entry.OriginIP, &entry.CreatedAt, &processedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("queue entry %d does not exist", queueID), err)
	}
	if err != nil {
		return nil, errors.WrapError(err, "failed to load queue entry")
	}

	entry.Report = report.String
	if processedAt.Valid {
		entry.ProcessedAt = &processedAt.Time
	}

	if inline.Valid && inline.String != "" {
		backup, err := snapshot.FromJSON([]byte(inline.String))
		if err != nil {
			return nil, err
		}
		entry.Payload = InlinePayload{Snapshot: backup}
		return &entry, nil
	}

	refs, err := s.loadBatchRefs(ctx, queueID)
	if err != nil {
		return nil, err
	}
	entry.Payload = BatchedPayload{Refs: refs}
	return &entry, nil
}

func (s *Store) loadBatchRefs(ctx context.Context, queueID int64) ([]BatchRef, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT table_name, batch_index, row_count FROM restore_batches WHERE queue_id = ? ORDER BY table_name, batch_index",
		queueID)
	if err != nil {
		return nil, errors.WrapError(err, "failed to load batch references")
	}
	defer rows.Close()

	refs := make([]BatchRef, 0)
	for rows.Next() {
		var ref BatchRef
		if err := rows.Scan(&ref.Table, &ref.Index, &ref.Rows); err != nil {
			return nil, errors.WrapError(err, "failed to scan batch reference")
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// UpdateStatus moves a queue entry to its post-invocation status. Only
// non-terminal entries accept the write, so a status is never set twice.
func (s *Store) UpdateStatus(ctx context.Context, queueID int64, status Status, report string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE restore_queue SET status = ?, report = ?, processed_at = ? WHERE id = ? AND status IN (?, ?)",
		status, report, time.Now().UTC(), queueID, StatusPending, StatusDryRunSuccess)
	if err != nil {
		return errors.WrapError(err, "failed to update queue entry status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.WrapError(err, "failed to confirm queue entry status update")
	}
	if affected == 0 {
		return errors.NewConflictError(
			fmt.Sprintf("queue entry %d is already in a terminal status", queueID))
	}
	return nil
}

func (s *Store) markFailed(ctx context.Context, queueID int64, message string) {
	if err := s.UpdateStatus(ctx, queueID, StatusFailed, message); err != nil {
		s.logger.WithField("queue_id", queueID).Errorf("Failed to mark queue entry as failed: %v", err)
	}
}
