package crud

import (
	"context"
	"fmt"
	"strings"

	"github.com/grimoire-wiki/grimoire/internal/orm/coerce"
	"github.com/grimoire-wiki/grimoire/internal/orm/relationships"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// loadRow reads every column of one row into a map keyed by column name,
// normalized to the declared field types
func (e *Engine) loadRow(
	ctx context.Context,
	q relationships.Querier,
	entity *schema.EntityType,
	id int64,
) (map[string]interface{}, error) {
	cols := make([]string, len(entity.Fields))
	for i, f := range entity.Fields {
		cols[i] = e.dialect.Quote(f.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(cols, ", "),
		e.dialect.Quote(entity.Table),
		e.dialect.Quote(schema.FieldID),
		e.dialect.Placeholder(1))

	values := make([]interface{}, len(entity.Fields))
	valuePtrs := make([]interface{}, len(entity.Fields))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := q.QueryRowContext(ctx, query, id).Scan(valuePtrs...); err != nil {
		return nil, err
	}

	record := make(map[string]interface{}, len(entity.Fields))
	for i, f := range entity.Fields {
		record[f.Name] = coerce.FromStorage(f, values[i])
	}
	return record, nil
}
