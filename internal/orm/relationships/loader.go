package relationships

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// LabelSelect returns the "id, label" select list for an entity type,
// qualified with alias when one is given
func LabelSelect(d dialect.Dialect, entity *schema.EntityType, alias string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	label := "NULL"
	if entity.LabelField != "" {
		label = prefix + d.Quote(entity.LabelField)
	}
	return fmt.Sprintf("%s%s, %s", prefix, d.Quote(schema.FieldID), label)
}

// ScanRefs reads (id, label) rows into refs labelled for entity
func ScanRefs(rows *sql.Rows, entity *schema.EntityType) ([]schema.Ref, error) {
	defer rows.Close()

	refs := make([]schema.Ref, 0)
	for rows.Next() {
		var id int64
		var label interface{}
		if err := rows.Scan(&id, &label); err != nil {
			return nil, fmt.Errorf("failed to scan %s label: %w", entity.Name, err)
		}
		refs = append(refs, schema.Ref{ID: id, Label: entity.Label(id, label)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

// Labels returns every instance of entity as {id, label}, ordered by id.
// It is a full scan on every call.
func (l *Loader) Labels(ctx context.Context, q Querier, entity *schema.EntityType) ([]schema.Ref, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		LabelSelect(l.dialect, entity, ""),
		l.dialect.Quote(entity.Table),
		l.dialect.Quote(schema.FieldID))

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entity.Name, err)
	}
	return ScanRefs(rows, entity)
}

// Load returns the current edge set of rel for the owner row: []schema.Ref
// for many relationships and *schema.Ref (nil when unset) for singular ones
func (l *Loader) Load(
	ctx context.Context,
	q Querier,
	owner *schema.EntityType,
	rel *schema.Relationship,
	ownerID int64,
) (interface{}, error) {
	tgt, err := target(l.registry, rel)
	if err != nil {
		return nil, err
	}

	d := l.dialect
	pb := d.NewParamBuilder()
	var query string

	switch rel.Type {
	case schema.RelationshipManyToMany:
		query = fmt.Sprintf("SELECT %s FROM %s t JOIN %s j ON j.%s = t.%s WHERE j.%s = %s ORDER BY t.%s",
			LabelSelect(d, tgt, "t"),
			d.Quote(tgt.Table),
			d.Quote(rel.JoinTable),
			d.Quote(rel.TargetKey), d.Quote(schema.FieldID),
			d.Quote(rel.OwnerKey), pb.Add(ownerID),
			d.Quote(schema.FieldID))
	case schema.RelationshipHasMany, schema.RelationshipHasOne:
		query = fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s ORDER BY %s",
			LabelSelect(d, tgt, ""),
			d.Quote(tgt.Table),
			d.Quote(rel.ForeignKey), pb.Add(ownerID),
			d.Quote(schema.FieldID))
	case schema.RelationshipBelongsTo:
		query = fmt.Sprintf("SELECT %s FROM %s t JOIN %s o ON o.%s = t.%s WHERE o.%s = %s",
			LabelSelect(d, tgt, "t"),
			d.Quote(tgt.Table),
			d.Quote(owner.Table),
			d.Quote(rel.ForeignKey), d.Quote(schema.FieldID),
			d.Quote(schema.FieldID), pb.Add(ownerID))
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRelationType, rel.Type)
	}

	rows, err := q.QueryContext(ctx, query, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s.%s: %w", owner.Name, rel.Name, err)
	}
	refs, err := ScanRefs(rows, tgt)
	if err != nil {
		return nil, err
	}

	if rel.Many() {
		return refs, nil
	}
	if len(refs) == 0 {
		return (*schema.Ref)(nil), nil
	}
	return &refs[0], nil
}

// Resolve filters ids down to those that exist in the target of rel,
// keeping their input order. The ids that did not resolve are returned
// separately.
func (l *Loader) Resolve(
	ctx context.Context,
	q Querier,
	rel *schema.Relationship,
	ids []int64,
) (found []int64, missing []int64, err error) {
	found = make([]int64, 0, len(ids))
	if len(ids) == 0 {
		return found, nil, nil
	}

	tgt, err := target(l.registry, rel)
	if err != nil {
		return nil, nil, err
	}

	pb := l.dialect.NewParamBuilder()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		l.dialect.Quote(schema.FieldID),
		l.dialect.Quote(tgt.Table),
		l.dialect.Quote(schema.FieldID),
		pb.AddList(ids))

	rows, err := q.QueryContext(ctx, query, pb.Params()...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve %s ids: %w", rel.Name, err)
	}
	defer rows.Close()

	exists := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, nil, err
		}
		exists[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	for _, id := range ids {
		if exists[id] {
			found = append(found, id)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}
