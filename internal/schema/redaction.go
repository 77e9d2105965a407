package schema

// Redactor strips credential-like fields from rows before they enter a
// snapshot. The field lists are process-wide constants injected at
// construction so they can be tested independently of the exporter.
type Redactor struct {
	secretFields  map[string]bool
	droppedFields map[string]map[string]bool // table -> field set
}

// DefaultSecretFields are removed from every exported row regardless of table
var DefaultSecretFields = []string{
	"password",
	"password_hash",
	"api_token",
	"session_token",
	"refresh_token",
	"secret_key",
}

// DefaultDroppedFields are removed from specific tables. Membership rows keep
// only the relational user id; the personally identifying email never leaves
// the source system.
var DefaultDroppedFields = map[string][]string{
	"company_users": {"email"},
}

// NewRedactor creates a redactor from explicit field lists
func NewRedactor(secretFields []string, droppedFields map[string][]string) *Redactor {
	r := &Redactor{
		secretFields:  make(map[string]bool, len(secretFields)),
		droppedFields: make(map[string]map[string]bool, len(droppedFields)),
	}
	for _, field := range secretFields {
		r.secretFields[field] = true
	}
	for table, fields := range droppedFields {
		set := make(map[string]bool, len(fields))
		for _, field := range fields {
			set[field] = true
		}
		r.droppedFields[table] = set
	}
	return r
}

// NewDefaultRedactor creates a redactor with the platform defaults
func NewDefaultRedactor() *Redactor {
	return NewRedactor(DefaultSecretFields, DefaultDroppedFields)
}

// Redact returns a copy of the row with secret and table-specific dropped
// fields removed. The input row is not modified.
func (r *Redactor) Redact(table string, row map[string]interface{}) map[string]interface{} {
	dropped := r.droppedFields[table]

	redacted := make(map[string]interface{}, len(row))
	for field, value := range row {
		if r.secretFields[field] {
			continue
		}
		if dropped != nil && dropped[field] {
			continue
		}
		redacted[field] = value
	}
	return redacted
}

// IsSecretField reports whether a field is globally redacted
func (r *Redactor) IsSecretField(field string) bool {
	return r.secretFields[field]
}
