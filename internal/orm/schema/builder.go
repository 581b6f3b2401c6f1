package schema

import (
	"fmt"
	"strings"
)

// FieldOption tweaks a field declaration
type FieldOption func(*Field)

// Required marks a column NOT NULL
func Required() FieldOption {
	return func(f *Field) { f.Nullable = false }
}

// Unique adds a uniqueness constraint to a column
func Unique() FieldOption {
	return func(f *Field) { f.Unique = true }
}

// Default sets the column default used when an insert omits the column
func Default(v interface{}) FieldOption {
	return func(f *Field) { f.Default = v }
}

// OnDelete sets the ON DELETE action of a foreign key column
func OnDelete(action CascadeAction) FieldOption {
	return func(f *Field) { f.OnDelete = action }
}

// Builder assembles an EntityType from declarations, collecting every
// problem instead of stopping at the first one
type Builder struct {
	entity *EntityType
	errors []error
}

// NewBuilder starts the declaration of an entity type. The integer primary
// key is always the first column.
func NewBuilder(name, model, table string) *Builder {
	b := &Builder{
		entity: &EntityType{
			Name:  name,
			Model: model,
			Table: table,
		},
		errors: make([]error, 0),
	}
	b.entity.Fields = append(b.entity.Fields, &Field{Name: FieldID, Type: TypeInteger})
	return b
}

// Label sets the column used as the human-readable projection
func (b *Builder) Label(field string) *Builder {
	b.entity.LabelField = field
	return b
}

// Field appends a scalar column
func (b *Builder) Field(name string, typ FieldType, opts ...FieldOption) *Builder {
	f := &Field{Name: name, Type: typ, Nullable: true}
	for _, opt := range opts {
		opt(f)
	}
	b.entity.Fields = append(b.entity.Fields, f)
	return b
}

// String appends a bounded text column
func (b *Builder) String(name string, length int, opts ...FieldOption) *Builder {
	b.Field(name, TypeString, opts...)
	b.last().Length = length
	return b
}

// Text appends a long text column
func (b *Builder) Text(name string, opts ...FieldOption) *Builder {
	return b.Field(name, TypeText, opts...)
}

// Integer appends an integer column
func (b *Builder) Integer(name string, opts ...FieldOption) *Builder {
	return b.Field(name, TypeInteger, opts...)
}

// Float appends a floating point column
func (b *Builder) Float(name string, opts ...FieldOption) *Builder {
	return b.Field(name, TypeFloat, opts...)
}

// Boolean appends a boolean column
func (b *Builder) Boolean(name string, opts ...FieldOption) *Builder {
	return b.Field(name, TypeBoolean, opts...)
}

// Datetime appends a timestamp column
func (b *Builder) Datetime(name string, opts ...FieldOption) *Builder {
	return b.Field(name, TypeDatetime, opts...)
}

// Enum appends a column restricted to the given labels
func (b *Builder) Enum(name string, values []string, opts ...FieldOption) *Builder {
	b.Field(name, TypeEnum, opts...)
	b.last().EnumValues = append([]string(nil), values...)
	return b
}

// ForeignKey appends an integer column referencing the id of another table
func (b *Builder) ForeignKey(name, table string, opts ...FieldOption) *Builder {
	b.Field(name, TypeInteger, opts...)
	b.last().References = table
	return b
}

// Slug appends the derived, unique slug column
func (b *Builder) Slug() *Builder {
	return b.String(FieldSlug, 200, Required(), Unique())
}

// CreatedAt appends the insert timestamp audit column
func (b *Builder) CreatedAt() *Builder {
	return b.Field(FieldCreatedAt, TypeDatetime)
}

// UpdatedAt appends the update timestamp audit column
func (b *Builder) UpdatedAt() *Builder {
	return b.Field(FieldUpdatedAt, TypeDatetime)
}

// ManyToMany declares an edge set stored in a join table
func (b *Builder) ManyToMany(name, target, joinTable, ownerKey, targetKey string) *Builder {
	b.entity.Relationships = append(b.entity.Relationships, &Relationship{
		Name:      name,
		Type:      RelationshipManyToMany,
		Target:    target,
		JoinTable: joinTable,
		OwnerKey:  ownerKey,
		TargetKey: targetKey,
	})
	return b
}

// HasMany declares an edge set stored as a foreign key on the target
func (b *Builder) HasMany(name, target, foreignKey string, orphans OrphanPolicy) *Builder {
	b.entity.Relationships = append(b.entity.Relationships, &Relationship{
		Name:       name,
		Type:       RelationshipHasMany,
		Target:     target,
		ForeignKey: foreignKey,
		Orphans:    orphans,
	})
	return b
}

// HasOne declares a single edge stored as a foreign key on the target
func (b *Builder) HasOne(name, target, foreignKey string, orphans OrphanPolicy) *Builder {
	b.entity.Relationships = append(b.entity.Relationships, &Relationship{
		Name:       name,
		Type:       RelationshipHasOne,
		Target:     target,
		ForeignKey: foreignKey,
		Orphans:    orphans,
	})
	return b
}

// BelongsTo declares a single edge stored in one of the owner's columns
func (b *Builder) BelongsTo(name, target, foreignKey string) *Builder {
	b.entity.Relationships = append(b.entity.Relationships, &Relationship{
		Name:       name,
		Type:       RelationshipBelongsTo,
		Target:     target,
		ForeignKey: foreignKey,
	})
	return b
}

func (b *Builder) last() *Field {
	return b.entity.Fields[len(b.entity.Fields)-1]
}

// Build validates the declaration and returns the entity type
func (b *Builder) Build() (*EntityType, error) {
	e := b.entity

	if e.Name == "" || e.Name != strings.ToLower(e.Name) {
		b.errorf("entity name %q must be a non-empty lowercase token", e.Name)
	}
	if e.Table == "" {
		b.errorf("%s: table name is required", e.Name)
	}

	e.fieldIndex = make(map[string]*Field, len(e.Fields))
	e.relIndex = make(map[string]*Relationship, len(e.Relationships))

	for _, f := range e.Fields {
		if _, dup := e.fieldIndex[f.Name]; dup {
			b.errorf("%s.%s: duplicate field", e.Name, f.Name)
			continue
		}
		e.fieldIndex[f.Name] = f
		if f.Type == TypeEnum && len(f.EnumValues) == 0 {
			b.errorf("%s.%s: enum field has no values", e.Name, f.Name)
		}
	}

	for _, r := range e.Relationships {
		if _, dup := e.fieldIndex[r.Name]; dup {
			b.errorf("%s.%s: relationship name collides with a field", e.Name, r.Name)
			continue
		}
		if _, dup := e.relIndex[r.Name]; dup {
			b.errorf("%s.%s: duplicate relationship", e.Name, r.Name)
			continue
		}
		e.relIndex[r.Name] = r

		switch r.Type {
		case RelationshipManyToMany:
			if r.JoinTable == "" || r.OwnerKey == "" || r.TargetKey == "" {
				b.errorf("%s.%s: many_to_many requires join table and keys", e.Name, r.Name)
			}
		case RelationshipBelongsTo:
			if _, ok := e.fieldIndex[r.ForeignKey]; !ok {
				b.errorf("%s.%s: belongs_to foreign key %q is not a field", e.Name, r.Name, r.ForeignKey)
			}
		default:
			if r.ForeignKey == "" {
				b.errorf("%s.%s: %s requires a foreign key", e.Name, r.Name, r.Type)
			}
		}
	}

	if e.LabelField != "" {
		if _, ok := e.fieldIndex[e.LabelField]; !ok {
			b.errorf("%s: label field %q is not a field", e.Name, e.LabelField)
		}
	}

	if len(b.errors) > 0 {
		var msgs []string
		for _, err := range b.errors {
			msgs = append(msgs, err.Error())
		}
		return nil, fmt.Errorf("entity %s has %d declaration errors:\n%s",
			e.Name, len(b.errors), strings.Join(msgs, "\n"))
	}

	return e, nil
}

// MustBuild is like Build but panics on declaration errors. It is meant for
// package-level catalogs that are fixed at compile time.
func (b *Builder) MustBuild() *EntityType {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

func (b *Builder) errorf(format string, args ...interface{}) {
	b.errors = append(b.errors, fmt.Errorf(format, args...))
}
