package schema

import (
	"fmt"
	"strings"
)

// Registry is the immutable name → entity type table built at startup
type Registry struct {
	types   []*EntityType
	byName  map[string]*EntityType
	byTable map[string]*EntityType
}

// NewRegistry freezes the given entity types into a registry. Relationship
// targets must resolve; foreign key columns may point at tables that are not
// registered (they are described with a null target).
func NewRegistry(types ...*EntityType) (*Registry, error) {
	r := &Registry{
		types:   make([]*EntityType, 0, len(types)),
		byName:  make(map[string]*EntityType, len(types)),
		byTable: make(map[string]*EntityType, len(types)),
	}

	for _, t := range types {
		if t == nil {
			return nil, fmt.Errorf("nil entity type")
		}
		if _, exists := r.byName[t.Name]; exists {
			return nil, fmt.Errorf("entity %s is already registered", t.Name)
		}
		if _, exists := r.byTable[t.Table]; exists {
			return nil, fmt.Errorf("table %s is already registered", t.Table)
		}
		r.types = append(r.types, t)
		r.byName[t.Name] = t
		r.byTable[t.Table] = t
	}

	if err := r.validateRelationships(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) validateRelationships() error {
	var problems []string
	for _, t := range r.types {
		for _, rel := range t.Relationships {
			target, ok := r.byName[rel.Target]
			if !ok {
				problems = append(problems, fmt.Sprintf("%s.%s: unknown target %q", t.Name, rel.Name, rel.Target))
				continue
			}
			if rel.Type == RelationshipHasMany || rel.Type == RelationshipHasOne {
				if !target.HasField(rel.ForeignKey) {
					problems = append(problems, fmt.Sprintf("%s.%s: target %s has no column %q",
						t.Name, rel.Name, target.Name, rel.ForeignKey))
				}
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("relationship validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// Resolve looks up an entity type by token, case-insensitively
func (r *Registry) Resolve(name string) (*EntityType, bool) {
	t, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// ByTable looks up an entity type by its table name
func (r *Registry) ByTable(table string) (*EntityType, bool) {
	t, ok := r.byTable[table]
	return t, ok
}

// Types returns the registered entity types in declaration order
func (r *Registry) Types() []*EntityType {
	out := make([]*EntityType, len(r.types))
	copy(out, r.types)
	return out
}

// Names returns the registered tokens in declaration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for _, t := range r.types {
		names = append(names, t.Name)
	}
	return names
}

// Count returns the number of registered entity types
func (r *Registry) Count() int {
	return len(r.types)
}
