// Package relationships reads and rewrites the edge sets of declared
// relationships: join-table rows for many_to_many, foreign keys on the
// target for has_many/has_one, and the owner's own column for belongs_to.
package relationships

import (
	"context"
	"database/sql"

	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// Querier is an interface for executing SQL queries, satisfied by both
// *sql.DB and *sql.Tx
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Execer is a Querier that can also write
type Execer interface {
	Querier
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Loader reads relationship edges and label projections
type Loader struct {
	registry *schema.Registry
	dialect  dialect.Dialect
}

// NewLoader creates a new relationship loader
func NewLoader(registry *schema.Registry, d dialect.Dialect) *Loader {
	return &Loader{
		registry: registry,
		dialect:  d,
	}
}

// Writer replaces relationship edge sets inside a transaction
type Writer struct {
	registry *schema.Registry
	dialect  dialect.Dialect
}

// NewWriter creates a new relationship writer
func NewWriter(registry *schema.Registry, d dialect.Dialect) *Writer {
	return &Writer{
		registry: registry,
		dialect:  d,
	}
}

// target resolves the entity type on the far side of rel
func target(registry *schema.Registry, rel *schema.Relationship) (*schema.EntityType, error) {
	t, ok := registry.Resolve(rel.Target)
	if !ok {
		return nil, ErrUnknownTarget
	}
	return t, nil
}
