package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/grimoire-wiki/grimoire/internal/orm/coerce"
	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/grimoire-wiki/grimoire/internal/orm/relationships"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// Extractor derives descriptors and raw values from the registry. Choice
// lists are read from the store on every call and never cached.
type Extractor struct {
	registry *schema.Registry
	dialect  dialect.Dialect
	loader   *relationships.Loader
}

// NewExtractor creates an extractor over registry
func NewExtractor(registry *schema.Registry, d dialect.Dialect) *Extractor {
	return &Extractor{
		registry: registry,
		dialect:  d,
		loader:   relationships.NewLoader(registry, d),
	}
}

// Classify maps a scalar field to its descriptor kind. An enum wins over a
// foreign key, which wins over the primitive type.
func Classify(f *schema.Field) Kind {
	switch {
	case f.Type == schema.TypeEnum:
		return KindEnum
	case f.IsForeignKey():
		return KindForeignKey
	}

	switch f.Type {
	case schema.TypeInteger:
		return KindInteger
	case schema.TypeFloat:
		return KindFloat
	case schema.TypeBoolean:
		return KindBoolean
	case schema.TypeDatetime:
		return KindDatetime
	case schema.TypeText:
		return KindTextLong
	default:
		return KindString
	}
}

// Describe returns the descriptors of entity: scalar fields in declaration
// order without the primary key and audit columns, then the visible
// relationships.
func (x *Extractor) Describe(ctx context.Context, q relationships.Querier, entity *schema.EntityType) ([]Descriptor, error) {
	fields := entity.ValueFields()
	rels := entity.VisibleRelationships()
	out := make([]Descriptor, 0, len(fields)+len(rels))

	for _, f := range fields {
		d := Descriptor{
			Name:     f.Name,
			Type:     Classify(f),
			Nullable: f.Nullable,
		}

		switch d.Type {
		case KindEnum:
			d.Enum = append([]string(nil), f.EnumValues...)
		case KindForeignKey:
			d.RefTable = f.References
			if target, ok := x.registry.ByTable(f.References); ok {
				model := target.Model
				d.RefModel = &model
				refs, err := x.loader.Labels(ctx, q, target)
				if err != nil {
					return nil, fmt.Errorf("failed to load choices for %s.%s: %w", entity.Name, f.Name, err)
				}
				d.Refs = refs
			}
		}
		out = append(out, d)
	}

	for _, rel := range rels {
		target, ok := x.registry.Resolve(rel.Target)
		if !ok {
			return nil, fmt.Errorf("%s.%s: %w", entity.Name, rel.Name, relationships.ErrUnknownTarget)
		}
		model := target.Model
		d := Descriptor{
			Name:             rel.Name,
			Type:             KindRelationship,
			RelationshipType: CardinalityOne,
			Nullable:         true,
			RefModel:         &model,
		}
		if rel.Many() {
			d.RelationshipType = CardinalityMany
		}

		refs, err := x.loader.Labels(ctx, q, target)
		if err != nil {
			return nil, fmt.Errorf("failed to load choices for %s.%s: %w", entity.Name, rel.Name, err)
		}
		d.Refs = refs
		out = append(out, d)
	}

	return out, nil
}

// Values returns the stored value of every non-synthetic column of one row,
// in declaration order and without coercion beyond driver normalization.
// A missing row yields an error wrapping sql.ErrNoRows.
func (x *Extractor) Values(ctx context.Context, q relationships.Querier, entity *schema.EntityType, id int64) ([]Value, error) {
	fields := entity.ValueFields()
	if len(fields) == 0 {
		var one int
		query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s",
			x.dialect.Quote(entity.Table), x.dialect.Quote(schema.FieldID), x.dialect.Placeholder(1))
		if err := q.QueryRowContext(ctx, query, id).Scan(&one); err != nil {
			return nil, fmt.Errorf("%s %d: %w", entity.Name, id, err)
		}
		return []Value{}, nil
	}

	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = x.dialect.Quote(f.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(cols, ", "),
		x.dialect.Quote(entity.Table),
		x.dialect.Quote(schema.FieldID),
		x.dialect.Placeholder(1))

	raw := make([]interface{}, len(fields))
	ptrs := make([]interface{}, len(fields))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := q.QueryRowContext(ctx, query, id).Scan(ptrs...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", entity.Name, id, err)
		}
		return nil, fmt.Errorf("failed to read %s %d: %w", entity.Name, id, err)
	}

	out := make([]Value, len(fields))
	for i, f := range fields {
		out[i] = Value{Name: f.Name, Value: coerce.FromStorage(f, raw[i])}
	}
	return out, nil
}
