package transaction

import (
	"context"
	"database/sql"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	// contextKeyTx is the key for storing the active sql.Tx in a context
	contextKeyTx contextKey = "grimoire:tx"
)

// FromContext retrieves the active transaction from the context
// Returns the transaction and true if found, nil and false otherwise
func FromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(contextKeyTx).(*sql.Tx)
	return tx, ok && tx != nil
}

// WithContext returns a new context carrying tx, so that collaborators such
// as lifecycle hooks run inside the same transaction as the operation
func WithContext(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, contextKeyTx, tx)
}
