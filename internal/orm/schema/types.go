// Package schema provides the statically declared type table for grimoire's
// generic entity engine. Every registered entity type owns an ordered list of
// fields and relationships; the engine never branches on a concrete type.
package schema

import (
	"fmt"
	"strings"
)

// FieldType represents the storage kind of a scalar column
type FieldType int

const (
	// TypeString is a short, length-bounded text column
	TypeString FieldType = iota
	// TypeText is a long text column
	TypeText
	// TypeInteger is a 64-bit integer column
	TypeInteger
	// TypeFloat is a double precision column
	TypeFloat
	// TypeBoolean is a true/false column
	TypeBoolean
	// TypeDatetime is a timestamp column
	TypeDatetime
	// TypeEnum is a text column restricted to EnumValues
	TypeEnum
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeDatetime:
		return "datetime"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ParseFieldType converts a string to a FieldType
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "integer":
		return TypeInteger, nil
	case "float":
		return TypeFloat, nil
	case "boolean":
		return TypeBoolean, nil
	case "datetime":
		return TypeDatetime, nil
	case "enum":
		return TypeEnum, nil
	default:
		return 0, fmt.Errorf("unknown field type: %s", s)
	}
}

// IsText returns true for string and text columns
func (t FieldType) IsText() bool {
	return t == TypeString || t == TypeText
}

// Names of the synthetic columns every entity type carries.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldSlug      = "slug"
)

// IsSynthetic reports whether a column is the primary key or an audit column.
// Synthetic columns never appear in descriptors or read payloads.
func IsSynthetic(name string) bool {
	return name == FieldID || name == FieldCreatedAt || name == FieldUpdatedAt
}

// Field represents a scalar column of an entity type
type Field struct {
	Name       string
	Type       FieldType
	Nullable   bool
	Unique     bool
	Length     int      // for TypeString, 0 means unbounded
	EnumValues []string // for TypeEnum, in declaration order
	Default    interface{}

	// References holds the target table when the column is a foreign key
	References string
	OnDelete   CascadeAction
}

// IsForeignKey returns true if the column references another entity type
func (f *Field) IsForeignKey() bool {
	return f.References != ""
}

// CanonicalEnum returns the declared spelling of an enum label, matched
// case-insensitively.
func (f *Field) CanonicalEnum(value string) (string, bool) {
	for _, v := range f.EnumValues {
		if strings.EqualFold(v, value) {
			return v, true
		}
	}
	return "", false
}

// RelationType represents the storage shape of a relationship
type RelationType int

const (
	// RelationshipManyToMany stores edges in a join table
	RelationshipManyToMany RelationType = iota
	// RelationshipHasMany stores edges as a foreign key on the target
	RelationshipHasMany
	// RelationshipHasOne stores a single edge as a foreign key on the target
	RelationshipHasOne
	// RelationshipBelongsTo stores the edge in one of the owner's own columns
	RelationshipBelongsTo
)

// String returns the string representation of the relationship type
func (r RelationType) String() string {
	switch r {
	case RelationshipManyToMany:
		return "many_to_many"
	case RelationshipHasMany:
		return "has_many"
	case RelationshipHasOne:
		return "has_one"
	case RelationshipBelongsTo:
		return "belongs_to"
	default:
		return "unknown"
	}
}

// CascadeAction represents the ON DELETE behaviour of a foreign key
type CascadeAction int

const (
	CascadeNoAction CascadeAction = iota
	CascadeCascade
	CascadeSetNull
	CascadeRestrict
)

// String returns the string representation of the cascade action
func (c CascadeAction) String() string {
	switch c {
	case CascadeCascade:
		return "cascade"
	case CascadeSetNull:
		return "set_null"
	case CascadeRestrict:
		return "restrict"
	case CascadeNoAction:
		return "no_action"
	default:
		return "unknown"
	}
}

// SQL returns the SQL clause for the cascade action
func (c CascadeAction) SQL() string {
	switch c {
	case CascadeCascade:
		return "CASCADE"
	case CascadeSetNull:
		return "SET NULL"
	case CascadeRestrict:
		return "RESTRICT"
	default:
		return "NO ACTION"
	}
}

// OrphanPolicy decides what happens to targets removed from a has_many or
// has_one edge set
type OrphanPolicy int

const (
	// OrphanNullify clears the target's foreign key
	OrphanNullify OrphanPolicy = iota
	// OrphanDelete deletes the target row
	OrphanDelete
)

// Relationship represents an association between two entity types
type Relationship struct {
	Name   string
	Type   RelationType
	Target string // target entity token

	// ForeignKey is the owner's column for belongs_to and the target's
	// column for has_many / has_one
	ForeignKey string

	// Join table configuration for many_to_many
	JoinTable string
	OwnerKey  string
	TargetKey string

	Orphans OrphanPolicy
}

// Many reports whether the relationship holds a list of targets
func (r *Relationship) Many() bool {
	return r.Type == RelationshipManyToMany || r.Type == RelationshipHasMany
}

// Ref is an {id, label} projection of a persisted instance
type Ref struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// HookType represents the type of lifecycle hook
type HookType int

const (
	BeforeSave HookType = iota
	AfterSave
	BeforeDelete
	AfterDelete
)

// String returns the string representation of the hook type
func (h HookType) String() string {
	switch h {
	case BeforeSave:
		return "before_save"
	case AfterSave:
		return "after_save"
	case BeforeDelete:
		return "before_delete"
	case AfterDelete:
		return "after_delete"
	default:
		return "unknown"
	}
}

// EntityType is the full declaration of one registered record kind
type EntityType struct {
	Name       string // lowercase lookup token, e.g. "player"
	Model      string // display name, e.g. "PlayerCharacter"
	Table      string
	LabelField string // column projected as the human-readable label

	Fields        []*Field
	Relationships []*Relationship

	fieldIndex map[string]*Field
	relIndex   map[string]*Relationship
}

// Field returns the scalar field with the given name
func (e *EntityType) Field(name string) (*Field, bool) {
	f, ok := e.fieldIndex[name]
	return f, ok
}

// Relationship returns the relationship with the given name
func (e *EntityType) Relationship(name string) (*Relationship, bool) {
	r, ok := e.relIndex[name]
	return r, ok
}

// HasField returns true if the type declares a column with the given name
func (e *EntityType) HasField(name string) bool {
	_, ok := e.fieldIndex[name]
	return ok
}

// HasSlug returns true if the type carries a derived slug column
func (e *EntityType) HasSlug() bool {
	return e.HasField(FieldSlug)
}

// Columns returns every column name in declaration order, id first
func (e *EntityType) Columns() []string {
	cols := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// ValueFields returns the non-synthetic columns in declaration order
func (e *EntityType) ValueFields() []*Field {
	out := make([]*Field, 0, len(e.Fields))
	for _, f := range e.Fields {
		if IsSynthetic(f.Name) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// VisibleRelationships returns the relationships that are exposed as their
// own field: a belongs_to whose foreign key column is already a visible
// field is represented by that column alone.
func (e *EntityType) VisibleRelationships() []*Relationship {
	out := make([]*Relationship, 0, len(e.Relationships))
	for _, r := range e.Relationships {
		if r.Type == RelationshipBelongsTo {
			if f, ok := e.fieldIndex[r.ForeignKey]; ok && !IsSynthetic(f.Name) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Label renders the human-readable projection for a row
func (e *EntityType) Label(id int64, value interface{}) string {
	if e.LabelField != "" && value != nil {
		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case []byte:
			if len(v) > 0 {
				return string(v)
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return fmt.Sprintf("%s %d", e.Model, id)
}
