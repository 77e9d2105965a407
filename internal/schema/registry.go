package schema

import (
	"fmt"
	"sort"
)

// Table describes one tenant-scoped table in the accounting platform schema
type Table struct {
	// Name is the physical table name
	Name string
	// Version is the per-table schema version tag recorded in snapshots and
	// compared on restore to detect structural drift
	Version string
	// TenantColumn is the column holding the owning tenant id. Every table in
	// the platform carries a denormalized tenant column; the companies table
	// itself is scoped by primary key.
	TenantColumn string
	// Parents lists the tables this table references via foreign keys
	Parents []string
}

// Registry is the immutable set of tables eligible for export, the exclusion
// denylist, and the dependency graph derived from the tables' foreign keys.
// Construct it once at startup and share it; it is never mutated afterwards.
type Registry struct {
	tables   map[string]Table
	ordered  []string // registration order
	excluded map[string]string
	graph    *DependencyGraph
}

// NewRegistry builds a registry from a table list and an exclusion map
// (table name -> reason). Parent references to unknown tables are an error.
func NewRegistry(tables []Table, excluded map[string]string) (*Registry, error) {
	r := &Registry{
		tables:   make(map[string]Table, len(tables)),
		excluded: make(map[string]string, len(excluded)),
		graph:    NewDependencyGraph(),
	}

	for name, reason := range excluded {
		r.excluded[name] = reason
	}

	for _, table := range tables {
		if table.Name == "" {
			return nil, fmt.Errorf("table with empty name in registry")
		}
		if _, exists := r.tables[table.Name]; exists {
			return nil, fmt.Errorf("duplicate table %q in registry", table.Name)
		}
		if _, denied := r.excluded[table.Name]; denied {
			return nil, fmt.Errorf("table %q is both registered and excluded", table.Name)
		}
		r.tables[table.Name] = table
		r.ordered = append(r.ordered, table.Name)
		r.graph.AddNode(table.Name)
	}

	for _, table := range tables {
		for _, parent := range table.Parents {
			if _, exists := r.tables[parent]; !exists {
				return nil, fmt.Errorf("table %q references unknown parent %q", table.Name, parent)
			}
			r.graph.AddEdge(parent, table.Name)
		}
	}

	// Fail at construction time, not export time
	if _, err := r.graph.TopologicalSort(); err != nil {
		return nil, err
	}

	return r, nil
}

// Table returns the definition of a registered table
func (r *Registry) Table(name string) (Table, bool) {
	table, ok := r.tables[name]
	return table, ok
}

// Tables returns all registered tables in registration order
func (r *Registry) Tables() []Table {
	tables := make([]Table, 0, len(r.ordered))
	for _, name := range r.ordered {
		tables = append(tables, r.tables[name])
	}
	return tables
}

// ExcludedReason returns the denylist reason for a table, if it is excluded
func (r *Registry) ExcludedReason(name string) (string, bool) {
	reason, ok := r.excluded[name]
	return reason, ok
}

// ExcludedTables returns the denylisted table names, sorted
func (r *Registry) ExcludedTables() []string {
	names := make([]string, 0, len(r.excluded))
	for name := range r.excluded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExportOrder returns the tables in dependency order, parents before children
func (r *Registry) ExportOrder() []string {
	// The constructor already verified the graph is acyclic
	sorted, _ := r.graph.TopologicalSort()
	return sorted
}

// SchemaVersions returns the per-table version tags keyed by table name
func (r *Registry) SchemaVersions() map[string]string {
	versions := make(map[string]string, len(r.tables))
	for name, table := range r.tables {
		versions[name] = table.Version
	}
	return versions
}
