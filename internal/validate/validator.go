package validate

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"tenant-backup/internal/errors"
	"tenant-backup/internal/logging"
	"tenant-backup/internal/schema"
	"tenant-backup/internal/snapshot"
	"tenant-backup/internal/version"
)

// BalanceTolerance is the maximum absolute debit/credit difference a journal
// entry may carry before it is reported as unbalanced
const BalanceTolerance = 0.01

// perRecordCost feeds the advisory duration estimate
const perRecordCost = 5 * time.Millisecond

// Validator runs every restore precondition check against a snapshot and a
// target tenant. It never mutates state and is safe to call repeatedly and
// concurrently. All checks run independently so the report is complete; only
// a structurally broken snapshot skips the remaining checks.
type Validator struct {
	db              *sql.DB
	registry        *schema.Registry
	referenceChecks []schema.ReferenceCheck
	logger          *logging.Logger
}

// NewValidator creates a validator over the platform registry and default
// reference checks
func NewValidator(db *sql.DB, logger *logging.Logger) *Validator {
	return NewValidatorWithRegistry(db, schema.DefaultRegistry(), schema.DefaultReferenceChecks(), logger)
}

// NewValidatorWithRegistry creates a validator with explicit registry and
// reference check configuration
func NewValidatorWithRegistry(db *sql.DB, registry *schema.Registry, checks []schema.ReferenceCheck, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Validator{
		db:              db,
		registry:        registry,
		referenceChecks: checks,
		logger:          logger,
	}
}

// Validate runs all checks against the snapshot and the target tenant and
// returns the accumulated result. The returned error covers infrastructure
// failures only (the target database being unreachable); validation findings
// live in the result.
func (v *Validator) Validate(ctx context.Context, backup *snapshot.BackupData, targetTenantID int64) (*ValidationResult, error) {
	startTime := time.Now()

	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	if !v.checkStructure(backup, result) {
		result.Valid = false
		v.logger.LogValidation(targetTenantID, false, len(result.Errors), 0, time.Since(startTime))
		return result, nil
	}

	v.checkVersions(backup, result)
	v.checkChecksum(backup, result)
	if err := v.checkTargetEmptiness(ctx, targetTenantID, result); err != nil {
		return nil, err
	}
	v.checkReferences(backup, result)
	v.checkAccountingBalance(backup, result)
	v.addAdvisoryWarnings(backup, result)

	result.Report = v.buildReport(backup, result)
	result.Valid = len(result.Errors) == 0

	v.logger.LogValidation(targetTenantID, result.Valid, len(result.Errors), len(result.Warnings), time.Since(startTime))
	return result, nil
}

// checkStructure verifies the snapshot carries its mandatory sections. A
// failure here leaves nothing further to validate, so it reports false to
// skip the remaining checks.
func (v *Validator) checkStructure(backup *snapshot.BackupData, result *ValidationResult) bool {
	if backup == nil {
		result.addError(ErrorKindSchemaMismatch, "", "snapshot is empty")
		return false
	}
	if err := backup.Validate(); err != nil {
		result.addError(ErrorKindSchemaMismatch, "", "%s", err.Error())
		return false
	}
	return true
}

// checkVersions compares the snapshot's version stamps against the running
// system. Cross-version migration is never attempted; any mismatch is a hard
// error.
func (v *Validator) checkVersions(backup *snapshot.BackupData, result *ValidationResult) {
	meta := backup.Metadata

	if meta.SystemVersion != version.Version {
		result.addError(ErrorKindSystemVersion, "",
			"snapshot was produced by system version %s, running version is %s",
			meta.SystemVersion, version.Version)
	}
	if meta.FormatVersion != version.FormatVersion {
		result.addError(ErrorKindSchemaMismatch, "",
			"unsupported snapshot format version %s, expected %s",
			meta.FormatVersion, version.FormatVersion)
	}
	if meta.SchemaVersion != schema.PlatformSchemaVersion {
		result.addError(ErrorKindSchemaMismatch, "",
			"snapshot schema version %s does not match platform schema %s",
			meta.SchemaVersion, schema.PlatformSchemaVersion)
	}

	names := make([]string, 0, len(backup.Data))
	for name := range backup.Data {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := v.registry.Table(name); !ok {
			result.addError(ErrorKindSchemaMismatch, name, "snapshot contains unknown table")
		}
	}

	// The checksum covers only the data payload, so a tampered declared
	// total would otherwise go unnoticed.
	if actual := backup.TotalRecords(); meta.TotalRecords != actual {
		result.addError(ErrorKindSchemaMismatch, "",
			"declared total of %d records does not match actual row count %d",
			meta.TotalRecords, actual)
	}
}

// checkChecksum recomputes the SHA-256 over the data payload and compares it
// to the declared checksum
func (v *Validator) checkChecksum(backup *snapshot.BackupData, result *ValidationResult) {
	ok, err := backup.VerifyChecksum()
	if err != nil {
		result.addError(ErrorKindSchemaMismatch, "", "checksum could not be recomputed: %s", err.Error())
		return
	}
	if !ok {
		result.addError(ErrorKindSchemaMismatch, "",
			"checksum mismatch: the snapshot was modified or truncated after export")
	}
}

// checkTargetEmptiness verifies the destination tenant has no transactional
// rows. Restore only paints onto a blank canvas, never merges.
func (v *Validator) checkTargetEmptiness(ctx context.Context, tenantID int64, result *ValidationResult) error {
	for _, name := range schema.TransactionTables {
		table, ok := v.registry.Table(name)
		if !ok {
			continue
		}

		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", table.Name, table.TenantColumn)
		var count int64
		if err := v.db.QueryRowContext(ctx, query, tenantID).Scan(&count); err != nil {
			return errors.WrapError(err, fmt.Sprintf("failed to count rows in %s for target tenant", name))
		}
		if count > 0 {
			result.addError(ErrorKindAccountingIntegrity, name,
				"target tenant already has %d rows, restore requires an empty tenant", count)
		}
	}
	return nil
}

// checkReferences resolves a representative set of parent/child references
// inside the snapshot and reports every dangling one
func (v *Validator) checkReferences(backup *snapshot.BackupData, result *ValidationResult) {
	for _, check := range v.referenceChecks {
		children, ok := backup.Data[check.ChildTable]
		if !ok || len(children) == 0 {
			continue
		}

		parents := make(map[string]bool)
		for _, row := range backup.Data[check.ParentTable] {
			if key := referenceKey(row[check.ParentColumn]); key != "" {
				parents[key] = true
			}
		}

		for _, row := range children {
			value := row[check.ChildColumn]
			key := referenceKey(value)
			if key == "" {
				continue
			}
			if !parents[key] {
				result.addError(ErrorKindForeignKey, check.ChildTable,
					"%s.%s=%s does not resolve to any %s.%s in the snapshot",
					check.ChildTable, check.ChildColumn, key, check.ParentTable, check.ParentColumn)
			}
		}
	}
}

// checkAccountingBalance sums debit and credit per journal entry and reports
// any entry off by more than the tolerance. Unbalanced history is surfaced
// but does not block restore on its own; it may be a known issue in the
// source tenant.
func (v *Validator) checkAccountingBalance(backup *snapshot.BackupData, result *ValidationResult) {
	lines := backup.Data["journal_lines"]
	if len(lines) == 0 {
		return
	}

	type balance struct {
		debit  float64
		credit float64
	}
	perEntry := make(map[string]*balance)
	entryOrder := make([]string, 0)

	for _, line := range lines {
		key := referenceKey(line["journal_entry_id"])
		if key == "" {
			continue
		}
		b, ok := perEntry[key]
		if !ok {
			b = &balance{}
			perEntry[key] = b
			entryOrder = append(entryOrder, key)
		}
		b.debit += toAmount(line["debit"])
		b.credit += toAmount(line["credit"])
	}

	for _, key := range entryOrder {
		b := perEntry[key]
		if diff := math.Abs(b.debit - b.credit); diff > BalanceTolerance {
			result.addWarning(WarningKindAccountingIntegrity, SeverityHigh,
				"journal entry %s is unbalanced: debit %.2f, credit %.2f", key, b.debit, b.credit)
		}
	}
}

// addAdvisoryWarnings attaches findings that inform the operator without
// affecting validity
func (v *Validator) addAdvisoryWarnings(backup *snapshot.BackupData, result *ValidationResult) {
	if backup.Metadata.Kind == snapshot.BackupKindPartial {
		result.addWarning(WarningKindDataLoss, SeverityMedium,
			"partial snapshot: tables outside the exported selection stay empty after restore")
	}

	total := backup.TotalRecords()
	if total > 0 {
		result.addWarning(WarningKindDataReplacement, SeverityMedium,
			"restore will insert %d records into the target tenant", total)
	}
	if total > snapshot.InlineThreshold {
		result.addWarning(WarningKindPerformance, SeverityLow,
			"large snapshot: %d records will be persisted and restored in batches", total)
	}
}

// buildReport derives the advisory per-table breakdown, duration estimate,
// and risk rating
func (v *Validator) buildReport(backup *snapshot.BackupData, result *ValidationResult) *ValidationReport {
	// schema_info is optional on the wire; fall back to the data keys.
	var tables []string
	if backup.SchemaInfo != nil {
		tables = backup.SchemaInfo.Tables
	} else {
		tables = make([]string, 0, len(backup.Data))
		for name := range backup.Data {
			tables = append(tables, name)
		}
		sort.Strings(tables)
	}

	breakdown := make([]TableBreakdown, 0, len(tables))
	total := 0
	for _, name := range tables {
		rows := len(backup.Data[name])
		total += rows
		breakdown = append(breakdown, TableBreakdown{Table: name, Rows: rows, Action: "insert"})
	}

	report := &ValidationReport{
		Breakdown:         breakdown,
		TotalInserts:      total,
		EstimatedDuration: 2*time.Second + time.Duration(total)*perRecordCost,
	}
	report.Risk, report.Recommendation = assessRisk(result, total)
	return report
}

func assessRisk(result *ValidationResult, totalRecords int) (RiskLevel, string) {
	if len(result.Errors) > 0 {
		return RiskHigh, "Resolve every validation error before requesting a restore."
	}
	for _, w := range result.Warnings {
		if w.Severity == SeverityHigh {
			return RiskMedium, "Review the warnings with the tenant owner, then run a dry run first."
		}
	}
	if len(result.Warnings) > 0 || totalRecords > 10*snapshot.InlineThreshold {
		return RiskLow, "Run a dry run and review its report before the real restore."
	}
	return RiskNone, "Snapshot is safe to restore. A dry run is still recommended."
}

// referenceKey normalizes a reference value so ids compare equal regardless
// of whether they arrive as database integers or JSON numbers
func referenceKey(value interface{}) string {
	switch n := value.(type) {
	case nil:
		return ""
	case float64:
		if n == math.Trunc(n) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(n, 10)
	case int:
		return strconv.Itoa(n)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", n)
	}
}

// toAmount coerces a monetary column value into a float64, tolerating the
// string form decimal columns take after a JSON round trip
func toAmount(value interface{}) float64 {
	switch n := value.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
