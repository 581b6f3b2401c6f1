package hooks

import (
	"context"
	"database/sql"

	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// Context wraps the standard context with the entity type and the
// transaction the hook runs in
type Context struct {
	context.Context
	tx     *sql.Tx
	entity *schema.EntityType
}

// NewContext creates a new hook context
func NewContext(ctx context.Context, entity *schema.EntityType) *Context {
	return &Context{
		Context: ctx,
		entity:  entity,
	}
}

// WithTransaction creates a new context with a transaction
func (c *Context) WithTransaction(tx *sql.Tx) *Context {
	return &Context{
		Context: c.Context,
		tx:      tx,
		entity:  c.entity,
	}
}

// Tx returns the transaction (may be nil)
func (c *Context) Tx() *sql.Tx {
	return c.tx
}

// Entity returns the entity type being written
func (c *Context) Entity() *schema.EntityType {
	return c.entity
}

// HasTransaction returns true if a transaction is active
func (c *Context) HasTransaction() bool {
	return c.tx != nil
}
