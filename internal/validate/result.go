package validate

import (
	"fmt"
	"time"
)

// ErrorKind classifies a validation failure
type ErrorKind string

const (
	ErrorKindSystemVersion       ErrorKind = "system_version"
	ErrorKindSchemaMismatch      ErrorKind = "schema_mismatch"
	ErrorKindForeignKey          ErrorKind = "foreign_key"
	ErrorKindAccountingIntegrity ErrorKind = "accounting_integrity"
)

// WarningKind classifies an advisory finding that never blocks a restore
type WarningKind string

const (
	WarningKindDataLoss            WarningKind = "data_loss"
	WarningKindDataReplacement     WarningKind = "data_replacement"
	WarningKindPerformance         WarningKind = "performance"
	WarningKindAccountingIntegrity WarningKind = "accounting_integrity"
)

// Severity grades a warning
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RiskLevel is the advisory overall rating of a restore
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ValidationError is one hard failure. Errors are accumulated, not
// short-circuited, so a single report review surfaces everything.
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Table   string    `json:"table,omitempty"`
	Message string    `json:"message"`
}

func (e ValidationError) String() string {
	if e.Table != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Table, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// ValidationWarning is one advisory finding
type ValidationWarning struct {
	Kind     WarningKind `json:"kind"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
}

// TableBreakdown summarizes the action taken for one table. Restore never
// merges, so the action is always an insert of every snapshot row.
type TableBreakdown struct {
	Table  string `json:"table"`
	Rows   int    `json:"rows"`
	Action string `json:"action"`
}

// ValidationReport is the derived, advisory summary. It never gates
// execution.
type ValidationReport struct {
	Breakdown         []TableBreakdown `json:"breakdown"`
	TotalInserts      int              `json:"total_inserts"`
	EstimatedDuration time.Duration    `json:"estimated_duration"`
	Risk              RiskLevel        `json:"risk"`
	Recommendation    string           `json:"recommendation"`
}

// ValidationResult is the complete outcome of one validation pass. Valid is
// true iff the error list is empty; warnings never affect validity.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors"`
	Warnings []ValidationWarning `json:"warnings"`
	Report   *ValidationReport   `json:"report,omitempty"`
}

// ErrorMessages returns every error rendered as a display string
func (r *ValidationResult) ErrorMessages() []string {
	messages := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		messages = append(messages, e.String())
	}
	return messages
}

func (r *ValidationResult) addError(kind ErrorKind, table, format string, args ...interface{}) {
	r.Errors = append(r.Errors, ValidationError{
		Kind:    kind,
		Table:   table,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *ValidationResult) addWarning(kind WarningKind, severity Severity, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, ValidationWarning{
		Kind:     kind,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	})
}
