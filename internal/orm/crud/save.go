package crud

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/grimoire-wiki/grimoire/internal/orm/hooks"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"github.com/grimoire-wiki/grimoire/internal/orm/transaction"
	"go.uber.org/zap"
)

// Upsert creates an instance, or updates the supplied keys of an existing
// one when id is given. Blank scalars are stored as NULL. Relationship keys
// replace the whole edge set.
func (e *Engine) Upsert(ctx context.Context, typeName string, id *int64, fields map[string]interface{}) (Result, error) {
	entity, err := e.ResolveType(typeName)
	if err != nil {
		return Result{}, err
	}
	cs, err := prepare(entity, fields, false)
	if err != nil {
		return Result{}, err
	}
	return e.save(ctx, entity, id, cs)
}

// Patch updates only the supplied keys of an existing instance. Blank text
// is stored as an empty string.
func (e *Engine) Patch(ctx context.Context, typeName string, id int64, fields map[string]interface{}) (Result, error) {
	entity, err := e.ResolveType(typeName)
	if err != nil {
		return Result{}, err
	}
	cs, err := prepare(entity, fields, true)
	if err != nil {
		return Result{}, err
	}
	return e.save(ctx, entity, &id, cs)
}

// save applies a change set in one transaction: load or start the row,
// merge scalars, stamp audit columns, resolve relationship targets, derive
// the slug, write the row, then replace edge sets.
func (e *Engine) save(ctx context.Context, entity *schema.EntityType, id *int64, cs *changeSet) (Result, error) {
	var result Result

	err := e.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		ctx := transaction.WithContext(ctx, tx)

		row := make(map[string]interface{})
		if id != nil {
			existing, err := e.loadRow(ctx, tx, entity, *id)
			if err != nil {
				if IsNotFound(ConvertDBError(err)) {
					return notFound(entity.Name, *id)
				}
				return err
			}
			row = existing
		}

		for k, v := range cs.scalars {
			row[k] = v
		}

		now := e.now()
		if id == nil && entity.HasField(schema.FieldCreatedAt) {
			row[schema.FieldCreatedAt] = now
		}
		if entity.HasField(schema.FieldUpdatedAt) {
			row[schema.FieldUpdatedAt] = now
		}

		edges, err := e.resolveEdges(ctx, tx, cs.edges)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			if edge.rel.Type != schema.RelationshipBelongsTo {
				continue
			}
			if len(edge.ids) == 0 {
				row[edge.rel.ForeignKey] = nil
			} else {
				row[edge.rel.ForeignKey] = edge.ids[0]
			}
		}

		hooks.DeriveSlug(entity, row)

		if err := e.hooks.ExecuteHooks(ctx, entity, schema.BeforeSave, row); err != nil {
			return err
		}

		var rowID int64
		if id == nil {
			rowID, err = e.insertRow(ctx, tx, entity, row)
		} else {
			rowID = *id
			err = e.updateRow(ctx, tx, entity, rowID, row)
		}
		if err != nil {
			return err
		}
		row[schema.FieldID] = rowID

		for _, edge := range edges {
			if edge.rel.Type == schema.RelationshipBelongsTo {
				continue
			}
			if err := e.writer.Replace(ctx, tx, entity, edge.rel, rowID, edge.ids); err != nil {
				return err
			}
		}

		if err := e.hooks.ExecuteHooks(ctx, entity, schema.AfterSave, row); err != nil {
			return err
		}

		result = Result{ID: rowID}
		if s, ok := row[schema.FieldSlug].(string); ok && entity.HasSlug() {
			result.Slug = &s
		}
		return nil
	})
	if err != nil {
		return Result{}, e.rollback(entity, "save", err)
	}
	return result, nil
}

// resolveEdges drops or rejects ids that do not match an existing target
func (e *Engine) resolveEdges(ctx context.Context, tx *sql.Tx, edges []edgeInput) ([]edgeInput, error) {
	out := make([]edgeInput, 0, len(edges))
	for _, edge := range edges {
		found, missing, err := e.loader.Resolve(ctx, tx, edge.rel, edge.ids)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			if e.unresolved == RejectUnresolved {
				return nil, &FieldError{
					Kind:    ErrMalformedIDs,
					Field:   edge.rel.Name,
					Message: fmt.Sprintf("unknown %s ids %v", edge.rel.Target, missing),
				}
			}
			e.logger.Debug("dropping unresolved relationship ids",
				zap.String("relationship", edge.rel.Name),
				zap.Int64s("ids", missing))
		}
		out = append(out, edgeInput{rel: edge.rel, ids: found})
	}
	return out, nil
}

// writableColumns returns the row's columns in declaration order, skipping
// the primary key
func writableColumns(entity *schema.EntityType, row map[string]interface{}) []string {
	cols := make([]string, 0, len(row))
	for _, f := range entity.Fields {
		if f.Name == schema.FieldID {
			continue
		}
		if _, ok := row[f.Name]; ok {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

func (e *Engine) insertRow(ctx context.Context, tx *sql.Tx, entity *schema.EntityType, row map[string]interface{}) (int64, error) {
	d := e.dialect
	cols := writableColumns(entity, row)

	var query string
	pb := d.NewParamBuilder()
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s",
			d.Quote(entity.Table), d.Quote(schema.FieldID))
	} else {
		quoted := make([]string, len(cols))
		holders := make([]string, len(cols))
		for i, col := range cols {
			quoted[i] = d.Quote(col)
			holders[i] = pb.Add(row[col])
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			d.Quote(entity.Table),
			strings.Join(quoted, ", "),
			strings.Join(holders, ", "),
			d.Quote(schema.FieldID))
	}

	var id int64
	if err := tx.QueryRowContext(ctx, query, pb.Params()...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", entity.Name, err)
	}
	return id, nil
}

func (e *Engine) updateRow(ctx context.Context, tx *sql.Tx, entity *schema.EntityType, id int64, row map[string]interface{}) error {
	d := e.dialect
	cols := writableColumns(entity, row)
	if len(cols) == 0 {
		return nil
	}

	pb := d.NewParamBuilder()
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = %s", d.Quote(col), pb.Add(row[col]))
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		d.Quote(entity.Table),
		strings.Join(sets, ", "),
		d.Quote(schema.FieldID),
		pb.Add(id))

	if _, err := tx.ExecContext(ctx, query, pb.Params()...); err != nil {
		return fmt.Errorf("failed to update %s %d: %w", entity.Name, id, err)
	}
	return nil
}

// rollback categorizes an error that aborted a transaction and logs it
func (e *Engine) rollback(entity *schema.EntityType, op string, err error) error {
	e.logger.Debug("transaction rolled back",
		zap.String("op", op),
		zap.String("entity", entity.Name),
		zap.String("code", Code(ConvertDBError(err))),
		zap.Error(err))
	return e.internal(entity, op, err)
}
