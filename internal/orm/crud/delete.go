package crud

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"github.com/grimoire-wiki/grimoire/internal/orm/transaction"
)

// Delete removes an instance. Join rows and owned children go with it
// through the ON DELETE actions declared in the schema.
func (e *Engine) Delete(ctx context.Context, typeName string, id int64) error {
	entity, err := e.ResolveType(typeName)
	if err != nil {
		return err
	}

	err = e.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		ctx := transaction.WithContext(ctx, tx)

		record, err := e.loadRow(ctx, tx, entity, id)
		if err != nil {
			if IsNotFound(ConvertDBError(err)) {
				return notFound(entity.Name, id)
			}
			return err
		}

		if err := e.hooks.ExecuteHooks(ctx, entity, schema.BeforeDelete, record); err != nil {
			return err
		}

		query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			e.dialect.Quote(entity.Table),
			e.dialect.Quote(schema.FieldID),
			e.dialect.Placeholder(1))
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to delete %s %d: %w", entity.Name, id, err)
		}

		return e.hooks.ExecuteHooks(ctx, entity, schema.AfterDelete, record)
	})
	if err != nil {
		return e.rollback(entity, "delete", err)
	}
	return nil
}
