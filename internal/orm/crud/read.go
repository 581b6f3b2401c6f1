package crud

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"github.com/grimoire-wiki/grimoire/internal/orm/slug"
)

// Get returns every non-synthetic scalar of an instance followed by its
// visible relationships: []schema.Ref for many, *schema.Ref or nil for one.
// The keys are exactly the names Schema reports.
func (e *Engine) Get(ctx context.Context, typeName string, id int64) (Record, error) {
	entity, err := e.ResolveType(typeName)
	if err != nil {
		return nil, err
	}
	return e.get(ctx, entity, id)
}

func (e *Engine) get(ctx context.Context, entity *schema.EntityType, id int64) (Record, error) {
	row, err := e.loadRow(ctx, e.db, entity, id)
	if err != nil {
		if IsNotFound(ConvertDBError(err)) {
			return nil, notFound(entity.Name, id)
		}
		return nil, e.internal(entity, "get", err)
	}

	fields := entity.ValueFields()
	rels := entity.VisibleRelationships()
	record := make(Record, 0, len(fields)+len(rels))

	for _, f := range fields {
		record = append(record, Entry{Name: f.Name, Value: row[f.Name]})
	}
	for _, rel := range rels {
		value, err := e.loader.Load(ctx, e.db, entity, rel, id)
		if err != nil {
			return nil, e.internal(entity, "get", err)
		}
		record = append(record, Entry{Name: rel.Name, Value: value})
	}
	return record, nil
}

// searchColumns are the columns FindByName falls back to, in priority
// order, when a type has no slug
var searchColumns = []string{"name", "title"}

// FindByName resolves an instance by its slug, or else by its name or title
// column. Both sides are compared in slug form, so the lookup ignores case,
// punctuation and diacritics.
func (e *Engine) FindByName(ctx context.Context, typeName string, name string) (Record, error) {
	entity, err := e.ResolveType(typeName)
	if err != nil {
		return nil, err
	}

	want := slug.Make(name)

	var id int64
	var found bool
	if entity.HasSlug() {
		id, found, err = e.findBySlug(ctx, entity, want)
	} else {
		column := ""
		for _, c := range searchColumns {
			if entity.HasField(c) {
				column = c
				break
			}
		}
		if column == "" {
			return nil, &FieldError{Kind: ErrNotSearchable, Message: fmt.Sprintf("%s has no slug, name or title", entity.Name)}
		}
		id, found, err = e.findByColumn(ctx, entity, column, want)
	}
	if err != nil {
		return nil, e.internal(entity, "find_by_name", err)
	}
	if !found {
		return nil, &FieldError{Kind: ErrNotFound, Message: fmt.Sprintf("no %s named %q", entity.Name, name)}
	}

	return e.get(ctx, entity, id)
}

func (e *Engine) findBySlug(ctx context.Context, entity *schema.EntityType, want string) (int64, bool, error) {
	if want == "" {
		return 0, false, nil
	}
	d := e.dialect
	query := fmt.Sprintf("SELECT %s FROM %s WHERE lower(%s) = %s ORDER BY %s LIMIT 1",
		d.Quote(schema.FieldID),
		d.Quote(entity.Table),
		d.Quote(schema.FieldSlug),
		d.Placeholder(1),
		d.Quote(schema.FieldID))

	var id int64
	err := e.db.QueryRowContext(ctx, query, want).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// findByColumn scans the column and compares slug forms in Go, since the
// store cannot normalize diacritics itself
func (e *Engine) findByColumn(ctx context.Context, entity *schema.EntityType, column, want string) (int64, bool, error) {
	if want == "" {
		return 0, false, nil
	}
	d := e.dialect
	query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s",
		d.Quote(schema.FieldID),
		d.Quote(column),
		d.Quote(entity.Table),
		d.Quote(schema.FieldID))

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var value interface{}
		if err := rows.Scan(&id, &value); err != nil {
			return 0, false, err
		}
		s, _ := value.(string)
		if b, ok := value.([]byte); ok {
			s = string(b)
		}
		if slug.Make(s) == want {
			return id, true, nil
		}
	}
	return 0, false, rows.Err()
}

// List returns every instance of a type as {id, label}, ordered by id
func (e *Engine) List(ctx context.Context, typeName string) ([]schema.Ref, error) {
	entity, err := e.ResolveType(typeName)
	if err != nil {
		return nil, err
	}
	refs, err := e.loader.Labels(ctx, e.db, entity)
	if err != nil {
		return nil, e.internal(entity, "list", err)
	}
	return refs, nil
}

// parentColumn is the self-referencing column that makes a type a tree
const parentColumn = "parent_id"

// node is one step of an ancestor chain
type node struct {
	ref  schema.Ref
	slug string
}

// Ancestors returns the chain of instances from the root down to id,
// inclusive, for types whose parent_id references their own table
func (e *Engine) Ancestors(ctx context.Context, typeName string, id int64) ([]schema.Ref, error) {
	chain, err := e.ancestors(ctx, typeName, id)
	if err != nil {
		return nil, err
	}
	refs := make([]schema.Ref, len(chain))
	for i, n := range chain {
		refs[i] = n.ref
	}
	return refs, nil
}

// Path returns the slash-joined slug path from the root down to id. Types
// without a slug column use the slug form of each label.
func (e *Engine) Path(ctx context.Context, typeName string, id int64) (string, error) {
	chain, err := e.ancestors(ctx, typeName, id)
	if err != nil {
		return "", err
	}
	segments := make([]string, len(chain))
	for i, n := range chain {
		segments[i] = n.slug
	}
	return strings.Join(segments, "/"), nil
}

func (e *Engine) ancestors(ctx context.Context, typeName string, id int64) ([]node, error) {
	entity, err := e.ResolveType(typeName)
	if err != nil {
		return nil, err
	}
	parent, ok := entity.Field(parentColumn)
	if !ok || parent.References != entity.Table {
		return nil, &FieldError{Kind: ErrNotHierarchical, Message: fmt.Sprintf("%s has no self-referencing %s", entity.Name, parentColumn)}
	}

	var chain []node
	seen := make(map[int64]bool)
	current := &id
	for current != nil && !seen[*current] {
		seen[*current] = true
		row, err := e.loadRow(ctx, e.db, entity, *current)
		if err != nil {
			if IsNotFound(ConvertDBError(err)) && len(chain) > 0 {
				break
			}
			if IsNotFound(ConvertDBError(err)) {
				return nil, notFound(entity.Name, id)
			}
			return nil, e.internal(entity, "ancestors", err)
		}

		n := node{ref: schema.Ref{ID: *current, Label: entity.Label(*current, row[entity.LabelField])}}
		n.slug, _ = row[schema.FieldSlug].(string)
		if n.slug == "" {
			n.slug = slug.Make(n.ref.Label)
		}
		chain = append(chain, n)

		current = nil
		if p, ok := row[parentColumn].(int64); ok {
			current = &p
		}
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
