package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"tenant-backup/internal/restore"
	"tenant-backup/internal/snapshot"
	"tenant-backup/internal/storage"
	"tenant-backup/internal/validate"
)

// Format selects the output rendering
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Renderer writes operation results for the operator
type Renderer struct {
	writer io.Writer
	format Format
	colors *ColorSystem
}

// NewRenderer creates a renderer over stdout
func NewRenderer(format Format) *Renderer {
	return NewRendererWithWriter(os.Stdout, format)
}

// NewRendererWithWriter creates a renderer with an explicit writer
func NewRendererWithWriter(writer io.Writer, format Format) *Renderer {
	if format == "" {
		format = FormatText
	}
	return &Renderer{
		writer: writer,
		format: format,
		colors: NewColorSystem(),
	}
}

// RenderExport summarizes a completed export
func (r *Renderer) RenderExport(backup *snapshot.BackupData, archiveKey string) error {
	if r.format == FormatJSON {
		return r.renderJSON(map[string]interface{}{
			"snapshot_id":   backup.Metadata.ID,
			"tenant_id":     backup.Metadata.TenantID,
			"tenant_name":   backup.Metadata.TenantName,
			"kind":          backup.Metadata.Kind,
			"total_records": backup.Metadata.TotalRecords,
			"checksum":      backup.Metadata.Checksum,
			"archive_key":   archiveKey,
		})
	}

	fmt.Fprintln(r.writer, r.colors.Success("Export complete"))
	fmt.Fprintf(r.writer, "Snapshot:      %s\n", backup.Metadata.ID)
	fmt.Fprintf(r.writer, "Tenant:        %s (%d)\n", backup.Metadata.TenantName, backup.Metadata.TenantID)
	fmt.Fprintf(r.writer, "Kind:          %s\n", backup.Metadata.Kind)
	fmt.Fprintf(r.writer, "Records:       %d\n", backup.Metadata.TotalRecords)
	fmt.Fprintf(r.writer, "Checksum:      %s\n", backup.Metadata.Checksum)
	if archiveKey != "" {
		fmt.Fprintf(r.writer, "Archive:       %s\n", archiveKey)
	}
	return nil
}

// RenderValidation writes the full validation result, errors first so a
// single review covers everything
func (r *Renderer) RenderValidation(result *validate.ValidationResult) error {
	if r.format == FormatJSON {
		return r.renderJSON(result)
	}

	if result.Valid {
		fmt.Fprintln(r.writer, r.colors.Success("Snapshot is valid"))
	} else {
		fmt.Fprintln(r.writer, r.colors.Failure("Snapshot failed validation"))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(r.writer)
		fmt.Fprintln(r.writer, r.colors.Failure("Errors"))
		fmt.Fprintln(r.writer, strings.Repeat("=", 50))
		for i, e := range result.Errors {
			fmt.Fprintf(r.writer, "%d. %s\n", i+1, e.String())
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintln(r.writer)
		fmt.Fprintln(r.writer, r.colors.Warning("Warnings"))
		fmt.Fprintln(r.writer, strings.Repeat("=", 50))
		for i, w := range result.Warnings {
			fmt.Fprintf(r.writer, "%d. [%s/%s] %s\n", i+1, w.Kind, w.Severity, w.Message)
		}
	}

	if result.Report != nil {
		r.renderReport(result.Report)
	}
	return nil
}

func (r *Renderer) renderReport(report *validate.ValidationReport) {
	fmt.Fprintln(r.writer)
	fmt.Fprintln(r.writer, r.colors.Emphasis("Restore plan"))
	fmt.Fprintln(r.writer, strings.Repeat("-", 50))
	for _, entry := range report.Breakdown {
		if entry.Rows == 0 {
			continue
		}
		fmt.Fprintf(r.writer, "%-30s %8d %s\n", entry.Table, entry.Rows, entry.Action)
	}
	fmt.Fprintln(r.writer, strings.Repeat("-", 50))
	fmt.Fprintf(r.writer, "Total inserts:      %d\n", report.TotalInserts)
	fmt.Fprintf(r.writer, "Estimated duration: %s\n", report.EstimatedDuration)

	risk := fmt.Sprintf("Risk:               %s", report.Risk)
	switch report.Risk {
	case validate.RiskHigh:
		fmt.Fprintln(r.writer, r.colors.Failure("%s", risk))
	case validate.RiskMedium:
		fmt.Fprintln(r.writer, r.colors.Warning("%s", risk))
	default:
		fmt.Fprintln(r.writer, risk)
	}
	fmt.Fprintf(r.writer, "Recommendation:     %s\n", report.Recommendation)
}

// RenderRestore writes the outcome of one restore invocation
func (r *Renderer) RenderRestore(result *restore.Result) error {
	if r.format == FormatJSON {
		return r.renderJSON(result)
	}

	if result.Success {
		if result.Mode == restore.ModeDryRun {
			fmt.Fprintln(r.writer, r.colors.Success("Dry run succeeded"))
		} else {
			fmt.Fprintln(r.writer, r.colors.Success("Restore complete"))
		}
	} else {
		fmt.Fprintln(r.writer, r.colors.Failure("Restore failed"))
	}

	fmt.Fprintf(r.writer, "Mode:          %s\n", result.Mode)
	fmt.Fprintf(r.writer, "Records:       %d\n", result.RecordsRestored)
	fmt.Fprintf(r.writer, "Duration:      %s\n", result.Duration)
	if result.Error != "" {
		fmt.Fprintf(r.writer, "Error:         %s\n", r.colors.Failure("%s", result.Error))
	}
	return nil
}

// RenderQueueEntry writes one restore queue entry
func (r *Renderer) RenderQueueEntry(entry *restore.QueueEntry) error {
	if r.format == FormatJSON {
		return r.renderJSON(entry)
	}

	fmt.Fprintf(r.writer, "Queue entry:   %d\n", entry.ID)
	fmt.Fprintf(r.writer, "Tenant:        %d\n", entry.TenantID)
	fmt.Fprintf(r.writer, "Requested by:  %d\n", entry.UserID)

	status := string(entry.Status)
	switch entry.Status {
	case restore.StatusCompleted, restore.StatusDryRunSuccess:
		status = r.colors.Success("%s", status)
	case restore.StatusFailed, restore.StatusDryRunFailed:
		status = r.colors.Failure("%s", status)
	}
	fmt.Fprintf(r.writer, "Status:        %s\n", status)
	fmt.Fprintf(r.writer, "Records:       %d\n", entry.TotalRecords)
	fmt.Fprintf(r.writer, "Created:       %s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"))
	if entry.ProcessedAt != nil {
		fmt.Fprintf(r.writer, "Processed:     %s\n", entry.ProcessedAt.Format("2006-01-02 15:04:05"))
	}
	if batched, ok := entry.Payload.(restore.BatchedPayload); ok {
		fmt.Fprintf(r.writer, "Batches:       %d\n", len(batched.Refs))
	}
	if entry.Report != "" {
		fmt.Fprintf(r.writer, "Report:        %s\n", entry.Report)
	}
	return nil
}

// RenderArchives lists stored snapshot archives
func (r *Renderer) RenderArchives(objects []storage.ObjectInfo) error {
	if r.format == FormatJSON {
		return r.renderJSON(objects)
	}

	if len(objects) == 0 {
		fmt.Fprintln(r.writer, "No archives found")
		return nil
	}

	fmt.Fprintf(r.writer, "%-55s %12s %s\n", "KEY", "SIZE", "MODIFIED")
	for _, object := range objects {
		fmt.Fprintf(r.writer, "%-55s %12d %s\n", object.Key, object.Size, object.ModifiedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (r *Renderer) renderJSON(value interface{}) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
