package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tenant-backup/internal/errors"
	"tenant-backup/internal/logging"
	"tenant-backup/internal/schema"
	"tenant-backup/internal/snapshot"
	"tenant-backup/internal/tenancy"
	"tenant-backup/internal/version"
)

// Request describes one export invocation
type Request struct {
	TenantID int64
	UserID   int64
	// Tables optionally restricts the export to a subset. Empty means the
	// full platform table set. Requesting a denylisted table is an error,
	// never a silent skip.
	Tables []string
}

// Exporter walks the dependency-ordered table list, pulls all rows scoped to
// one tenant, strips secrets, and assembles a checksummed snapshot. It is a
// pure projection: no writes beyond reads.
type Exporter struct {
	db       *sql.DB
	registry *schema.Registry
	redactor *schema.Redactor
	tenants  *tenancy.Service
	logger   *logging.Logger
}

// NewExporter creates an exporter over the platform registry and default
// redaction rules
func NewExporter(db *sql.DB, logger *logging.Logger) *Exporter {
	return NewExporterWithRegistry(db, schema.DefaultRegistry(), schema.NewDefaultRedactor(), logger)
}

// NewExporterWithRegistry creates an exporter with explicit registry and
// redaction configuration
func NewExporterWithRegistry(db *sql.DB, registry *schema.Registry, redactor *schema.Redactor, logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Exporter{
		db:       db,
		registry: registry,
		redactor: redactor,
		tenants:  tenancy.NewService(db, logger),
		logger:   logger,
	}
}

// Export produces the snapshot for one tenant. A missing tenant record is
// fatal; a failed fetch of any other table degrades to an empty row list for
// that table.
func (e *Exporter) Export(ctx context.Context, req Request) (*snapshot.BackupData, error) {
	startTime := time.Now()

	// Load the tenant before the membership check so an unknown tenant
	// surfaces as not-found rather than as an authorization failure.
	tenant, err := e.tenants.GetTenant(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	if err := e.tenants.AuthorizeExport(ctx, req.TenantID, req.UserID); err != nil {
		return nil, err
	}

	tables, kind, err := e.resolveTables(req.Tables)
	if err != nil {
		return nil, err
	}

	data := make(map[string][]snapshot.Row, len(tables))
	for _, name := range tables {
		table, _ := e.registry.Table(name)

		tableStart := time.Now()
		rows, fetchErr := e.fetchTable(ctx, table, req.TenantID)
		e.logger.LogTableExport(name, req.TenantID, len(rows), time.Since(tableStart), fetchErr)

		if fetchErr != nil {
			// Partial-degradation policy: a backup missing one optional
			// table is still useful; record an empty row list and move on.
			data[name] = []snapshot.Row{}
			continue
		}
		data[name] = rows
	}

	checksum, err := snapshot.ComputeChecksum(data)
	if err != nil {
		return nil, err
	}

	backup := &snapshot.BackupData{
		Metadata: &snapshot.Metadata{
			ID:            uuid.New().String(),
			FormatVersion: version.FormatVersion,
			SystemVersion: version.Version,
			SchemaVersion: schema.PlatformSchemaVersion,
			CreatedAt:     time.Now().UTC(),
			CreatedBy:     req.UserID,
			TenantID:      tenant.ID,
			TenantName:    tenant.Name,
			Kind:          kind,
			Checksum:      checksum,
		},
		SchemaInfo: &snapshot.SchemaInfo{
			Tables:   tables,
			Versions: e.schemaVersions(tables),
		},
		Data: data,
		Excluded: snapshot.ExcludedData{
			Reason: "authentication, audit, and restore bookkeeping tables never leave the source system",
			Tables: e.registry.ExcludedTables(),
		},
	}
	backup.Metadata.TotalRecords = backup.TotalRecords()

	e.logger.LogExport(req.TenantID, backup.Metadata.TotalRecords, len(tables), time.Since(startTime), nil)
	return backup, nil
}

// resolveTables validates the requested table set against the registry and
// denylist, returning the tables in dependency order
func (e *Exporter) resolveTables(requested []string) ([]string, snapshot.BackupKind, error) {
	order := e.registry.ExportOrder()

	if len(requested) == 0 {
		return order, snapshot.BackupKindFull, nil
	}

	wanted := make(map[string]bool, len(requested))
	for _, name := range requested {
		if reason, denied := e.registry.ExcludedReason(name); denied {
			return nil, "", errors.NewAppError(errors.ErrorTypeStructural,
				fmt.Sprintf("table %q is excluded from export: %s", name, reason), nil)
		}
		if _, ok := e.registry.Table(name); !ok {
			return nil, "", errors.NewAppError(errors.ErrorTypeStructural,
				fmt.Sprintf("unknown table %q requested for export", name), nil)
		}
		wanted[name] = true
	}

	subset := make([]string, 0, len(wanted))
	for _, name := range order {
		if wanted[name] {
			subset = append(subset, name)
		}
	}
	return subset, snapshot.BackupKindPartial, nil
}

// fetchTable pulls all rows of one table scoped to the tenant and redacts
// them
func (e *Exporter) fetchTable(ctx context.Context, table schema.Table, tenantID int64) ([]snapshot.Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", table.Name, table.TenantColumn)

	rows, err := e.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to fetch table %s", table.Name))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to read columns of table %s", table.Name))
	}

	result := make([]snapshot.Row, 0)
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.WrapError(err, fmt.Sprintf("failed to scan row of table %s", table.Name))
		}

		row := make(snapshot.Row, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result = append(result, e.redactor.Redact(table.Name, row))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to iterate table %s", table.Name))
	}

	return result, nil
}

// schemaVersions returns the per-table version tags for the exported subset
func (e *Exporter) schemaVersions(tables []string) map[string]string {
	all := e.registry.SchemaVersions()
	versions := make(map[string]string, len(tables))
	for _, name := range tables {
		versions[name] = all[name]
	}
	return versions
}

// normalizeValue converts driver values into JSON-stable types so the
// checksum survives a serialize/parse round trip
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
