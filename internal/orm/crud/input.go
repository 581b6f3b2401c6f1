package crud

import (
	"github.com/grimoire-wiki/grimoire/internal/orm/coerce"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// edgeInput is a validated relationship assignment
type edgeInput struct {
	rel *schema.Relationship
	ids []int64
}

// changeSet is input partitioned into coerced scalars and relationship
// assignments. Keys that are neither are dropped.
type changeSet struct {
	scalars map[string]interface{}
	edges   []edgeInput
}

// prepare coerces every supplied key before anything touches the store.
// The primary key and audit columns are never writable. With keepBlankText
// a blank string on a text field stays an empty string; otherwise blank
// input becomes NULL.
func prepare(entity *schema.EntityType, input map[string]interface{}, keepBlankText bool) (*changeSet, error) {
	cs := &changeSet{scalars: make(map[string]interface{})}

	for _, f := range entity.ValueFields() {
		raw, ok := input[f.Name]
		if !ok {
			continue
		}
		v, err := coerce.Scalar(f, raw, keepBlankText)
		if err != nil {
			return nil, newFieldError(ErrMalformedValue, f.Name, err)
		}
		cs.scalars[f.Name] = v
	}

	for _, rel := range entity.Relationships {
		raw, ok := input[rel.Name]
		if !ok {
			continue
		}

		var ids []int64
		if rel.Many() {
			list, err := coerce.IDList(raw)
			if err != nil {
				return nil, newFieldError(ErrMalformedIDs, rel.Name, err)
			}
			ids = list
		} else {
			id, err := coerce.SingleID(raw)
			if err != nil {
				return nil, newFieldError(ErrMalformedIDs, rel.Name, err)
			}
			ids = []int64{}
			if id != nil {
				ids = append(ids, *id)
			}
		}
		cs.edges = append(cs.edges, edgeInput{rel: rel, ids: ids})
	}

	return cs, nil
}
