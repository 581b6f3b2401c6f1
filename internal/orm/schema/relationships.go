package schema

import (
	"fmt"
	"strings"
)

// RelationshipGraph represents the foreign key dependency graph between
// registered tables
type RelationshipGraph struct {
	nodes []*EntityType
	edges map[string][]string // table -> referenced tables
}

// NewRelationshipGraph builds the graph from foreign key columns. Self
// references and references to unregistered tables are not edges.
func NewRelationshipGraph(types []*EntityType) *RelationshipGraph {
	known := make(map[string]bool, len(types))
	for _, t := range types {
		known[t.Table] = true
	}

	graph := &RelationshipGraph{
		nodes: types,
		edges: make(map[string][]string),
	}
	for _, t := range types {
		for _, f := range t.Fields {
			if !f.IsForeignKey() || f.References == t.Table || !known[f.References] {
				continue
			}
			graph.edges[t.Table] = append(graph.edges[t.Table], f.References)
		}
	}
	return graph
}

// TopologicalSort returns the entity types so that every table comes after
// the tables it references. Ties keep declaration order.
func (g *RelationshipGraph) TopologicalSort() ([]*EntityType, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.nodes))
	byTable := make(map[string]*EntityType, len(g.nodes))
	for _, t := range g.nodes {
		byTable[t.Table] = t
	}

	var order []*EntityType
	var visit func(table string, path []string) error
	visit = func(table string, path []string) error {
		switch state[table] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("circular foreign keys: %s", strings.Join(append(path, table), " -> "))
		}
		state[table] = visiting
		for _, dep := range g.edges[table] {
			if err := visit(dep, append(path, table)); err != nil {
				return err
			}
		}
		state[table] = done
		order = append(order, byTable[table])
		return nil
	}

	for _, t := range g.nodes {
		if err := visit(t.Table, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// DependencyOrder returns the registered types in foreign key order
func (r *Registry) DependencyOrder() ([]*EntityType, error) {
	return NewRelationshipGraph(r.types).TopologicalSort()
}
