package schema

import (
	"fmt"
)

// DependencyGraph models the foreign-key relationships between tables as a
// directed graph. An edge parent -> child means child rows reference parent
// rows, so parent tables must be replayed first. The export order is the
// topological sort of this graph; adding a table is a graph edit, never a
// manual list insertion.
type DependencyGraph struct {
	nodes map[string]bool
	edges map[string][]string // parent -> children
	order []string            // insertion order, used as a stable tie-break
}

// NewDependencyGraph creates an empty dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]bool),
		edges: make(map[string][]string),
	}
}

// AddNode registers a table in the graph
func (g *DependencyGraph) AddNode(table string) {
	if g.nodes[table] {
		return
	}
	g.nodes[table] = true
	g.order = append(g.order, table)
}

// AddEdge records that child references parent via a foreign key.
// Both endpoints are registered implicitly.
func (g *DependencyGraph) AddEdge(parent, child string) {
	g.AddNode(parent)
	g.AddNode(child)
	g.edges[parent] = append(g.edges[parent], child)
}

// HasNode reports whether a table is registered
func (g *DependencyGraph) HasNode(table string) bool {
	return g.nodes[table]
}

// NodeCount returns the number of registered tables
func (g *DependencyGraph) NodeCount() int {
	return len(g.order)
}

// TopologicalSort returns the tables in dependency order, parents before
// children. Tables with no ordering relation keep their registration order.
// Returns an error if the graph contains a cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for node := range g.nodes {
		inDegree[node] = 0
	}
	for _, children := range g.edges {
		for _, child := range children {
			inDegree[child]++
		}
	}

	// Kahn's algorithm with a queue kept in registration order so the
	// result is deterministic across runs.
	var queue []string
	for _, node := range g.order {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	sorted := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, node)

		for _, child := range g.edges[node] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(sorted) != len(g.order) {
		remaining := make([]string, 0)
		for node, degree := range inDegree {
			if degree > 0 {
				remaining = append(remaining, node)
			}
		}
		return nil, fmt.Errorf("dependency cycle detected involving tables: %v", remaining)
	}

	return sorted, nil
}
