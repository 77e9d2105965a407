package schema

// The accounting platform table graph. Tables are registered roughly
// root-first for readability, but the export order is always derived from
// the foreign-key edges, never from this listing.

// PlatformSchemaVersion identifies the overall platform schema generation
// recorded in snapshot metadata
const PlatformSchemaVersion = "2026.1"

// DefaultExcludedTables is the fixed denylist of tables that must never
// appear in a snapshot
var DefaultExcludedTables = map[string]string{
	"users":           "authentication data is never exported",
	"sessions":        "authentication data is never exported",
	"api_tokens":      "authentication data is never exported",
	"password_resets": "authentication data is never exported",
	"audit_logs":      "audit history stays with the source system",
	"restore_queue":   "restore bookkeeping is never part of a snapshot",
	"restore_batches": "restore bookkeeping is never part of a snapshot",
}

// DefaultPlatformTables lists every tenant-scoped table of the accounting
// platform together with its foreign-key parents
func DefaultPlatformTables() []Table {
	return []Table{
		// Company root
		{Name: "companies", Version: "3", TenantColumn: "id"},

		// Organizational units
		{Name: "branches", Version: "2", TenantColumn: "company_id", Parents: []string{"companies"}},
		{Name: "cost_centers", Version: "2", TenantColumn: "company_id", Parents: []string{"companies", "branches"}},
		{Name: "fiscal_years", Version: "1", TenantColumn: "company_id", Parents: []string{"companies"}},
		{Name: "company_users", Version: "2", TenantColumn: "company_id", Parents: []string{"companies"}},
		{Name: "departments", Version: "1", TenantColumn: "company_id", Parents: []string{"companies", "branches"}},
		{Name: "positions", Version: "1", TenantColumn: "company_id", Parents: []string{"companies", "departments"}},

		// Financial configuration
		{Name: "currencies", Version: "1", TenantColumn: "company_id", Parents: []string{"companies"}},
		{Name: "account_groups", Version: "2", TenantColumn: "company_id", Parents: []string{"companies"}},
		{Name: "accounts", Version: "3", TenantColumn: "company_id", Parents: []string{"companies", "account_groups"}},
		{Name: "taxes", Version: "2", TenantColumn: "company_id", Parents: []string{"companies"}},
		{Name: "payment_terms", Version: "1", TenantColumn: "company_id", Parents: []string{"companies"}},
		{Name: "bank_accounts", Version: "2", TenantColumn: "company_id", Parents: []string{"companies", "accounts"}},

		// Business entities
		{Name: "customers", Version: "3", TenantColumn: "company_id", Parents: []string{"companies", "payment_terms"}},
		{Name: "vendors", Version: "3", TenantColumn: "company_id", Parents: []string{"companies", "payment_terms"}},
		{Name: "employees", Version: "2", TenantColumn: "company_id", Parents: []string{"companies", "departments", "positions"}},
		{Name: "salary_structures", Version: "1", TenantColumn: "company_id", Parents: []string{"companies", "employees"}},
		{Name: "commission_plans", Version: "1", TenantColumn: "company_id", Parents: []string{"companies"}},

		// Catalog and inventory configuration
		{Name: "warehouses", Version: "2", TenantColumn: "company_id", Parents: []string{"companies", "branches"}},
		{Name: "item_categories", Version: "1", TenantColumn: "company_id", Parents: []string{"companies"}},
		{Name: "items", Version: "3", TenantColumn: "company_id", Parents: []string{"companies", "item_categories", "taxes"}},
		{Name: "price_lists", Version: "1", TenantColumn: "company_id", Parents: []string{"companies", "currencies"}},
		{Name: "price_list_items", Version: "1", TenantColumn: "company_id", Parents: []string{"price_lists", "items"}},

		// Transactional documents
		{Name: "invoices", Version: "4", TenantColumn: "company_id", Parents: []string{"companies", "customers", "branches", "fiscal_years"}},
		{Name: "invoice_lines", Version: "3", TenantColumn: "company_id", Parents: []string{"invoices", "items", "taxes"}},
		{Name: "purchase_invoices", Version: "3", TenantColumn: "company_id", Parents: []string{"companies", "vendors", "branches", "fiscal_years"}},
		{Name: "purchase_invoice_lines", Version: "2", TenantColumn: "company_id", Parents: []string{"purchase_invoices", "items", "taxes"}},
		{Name: "credit_notes", Version: "2", TenantColumn: "company_id", Parents: []string{"companies", "customers", "invoices"}},
		{Name: "payments", Version: "3", TenantColumn: "company_id", Parents: []string{"companies", "customers", "bank_accounts"}},
		{Name: "payment_allocations", Version: "1", TenantColumn: "company_id", Parents: []string{"payments", "invoices"}},
		{Name: "stock_entries", Version: "2", TenantColumn: "company_id", Parents: []string{"companies", "warehouses"}},
		{Name: "stock_entry_lines", Version: "2", TenantColumn: "company_id", Parents: []string{"stock_entries", "items"}},
		{Name: "stock_transfers", Version: "2", TenantColumn: "company_id", Parents: []string{"companies", "warehouses"}},
		{Name: "stock_transfer_lines", Version: "1", TenantColumn: "company_id", Parents: []string{"stock_transfers", "items"}},
		{Name: "payroll_runs", Version: "2", TenantColumn: "company_id", Parents: []string{"companies", "fiscal_years"}},
		{Name: "payroll_items", Version: "2", TenantColumn: "company_id", Parents: []string{"payroll_runs", "employees"}},
		{Name: "commissions", Version: "1", TenantColumn: "company_id", Parents: []string{"companies", "commission_plans", "employees", "invoices"}},
		{Name: "budgets", Version: "1", TenantColumn: "company_id", Parents: []string{"companies", "fiscal_years"}},
		{Name: "budget_lines", Version: "1", TenantColumn: "company_id", Parents: []string{"budgets", "accounts", "cost_centers"}},

		// Financial postings
		{Name: "journal_entries", Version: "4", TenantColumn: "company_id", Parents: []string{"companies", "fiscal_years"}},
		{Name: "journal_lines", Version: "4", TenantColumn: "company_id", Parents: []string{"journal_entries", "accounts", "cost_centers"}},
	}
}

// DefaultRegistry builds the registry for the accounting platform schema
func DefaultRegistry() *Registry {
	registry, err := NewRegistry(DefaultPlatformTables(), DefaultExcludedTables)
	if err != nil {
		// The platform table list is a compile-time constant; an invalid
		// graph here is a programming error.
		panic(err)
	}
	return registry
}

// ReferenceCheck describes one parent/child pair verified by the validator's
// foreign-key spot-check
type ReferenceCheck struct {
	ChildTable   string
	ChildColumn  string
	ParentTable  string
	ParentColumn string
}

// DefaultReferenceChecks returns the representative set of references the
// validator resolves inside a snapshot before restore
func DefaultReferenceChecks() []ReferenceCheck {
	return []ReferenceCheck{
		{ChildTable: "invoices", ChildColumn: "customer_id", ParentTable: "customers", ParentColumn: "id"},
		{ChildTable: "invoice_lines", ChildColumn: "invoice_id", ParentTable: "invoices", ParentColumn: "id"},
		{ChildTable: "invoice_lines", ChildColumn: "item_id", ParentTable: "items", ParentColumn: "id"},
		{ChildTable: "payment_allocations", ChildColumn: "invoice_id", ParentTable: "invoices", ParentColumn: "id"},
		{ChildTable: "journal_lines", ChildColumn: "journal_entry_id", ParentTable: "journal_entries", ParentColumn: "id"},
		{ChildTable: "journal_lines", ChildColumn: "account_id", ParentTable: "accounts", ParentColumn: "id"},
		{ChildTable: "stock_entry_lines", ChildColumn: "stock_entry_id", ParentTable: "stock_entries", ParentColumn: "id"},
		{ChildTable: "payroll_items", ChildColumn: "employee_id", ParentTable: "employees", ParentColumn: "id"},
	}
}

// TransactionTables are the canonical "transactions exist" tables checked for
// target emptiness before any restore
var TransactionTables = []string{"invoices", "journal_entries"}
