// Package transaction wraps database/sql transactions so that every engine
// operation is applied completely or not at all.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrAlreadyCommitted is returned when a committed transaction is finished again
	ErrAlreadyCommitted = errors.New("transaction already committed")
	// ErrAlreadyRolledBack is returned when committing a rolled back transaction
	ErrAlreadyRolledBack = errors.New("transaction already rolled back")
)

type state int

const (
	active state = iota
	committed
	rolledBack
)

// Option adjusts the options every transaction of a Manager is opened with
type Option func(*sql.TxOptions)

// Isolation sets the isolation level. SQLite only knows serializable
// transactions, so leave it unset to stay portable.
func Isolation(level sql.IsolationLevel) Option {
	return func(o *sql.TxOptions) { o.Isolation = level }
}

// ReadOnly opens read-only transactions
func ReadOnly() Option {
	return func(o *sql.TxOptions) { o.ReadOnly = true }
}

// Manager opens transactions on a database handle
type Manager struct {
	db   *sql.DB
	opts sql.TxOptions
}

// NewManager creates a transaction manager; without options the driver's
// defaults apply
func NewManager(db *sql.DB, opts ...Option) *Manager {
	m := &Manager{db: db}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

// Begin starts a new transaction
func (m *Manager) Begin(ctx context.Context) (*Tx, error) {
	var opts *sql.TxOptions
	if m.opts != (sql.TxOptions{}) {
		o := m.opts
		opts = &o
	}

	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx, opts: m.opts}, nil
}

// WithTransaction runs fn inside a transaction: committed when fn returns
// nil, rolled back when it returns an error or panics. A panic is re-raised
// after the rollback.
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx.SQL()); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}

// Tx is one database transaction. It finishes exactly once; a second
// rollback is a no-op.
type Tx struct {
	tx   *sql.Tx
	opts sql.TxOptions

	mu    sync.Mutex
	state state
}

// SQL returns the underlying sql.Tx
func (t *Tx) SQL() *sql.Tx {
	return t.tx
}

// Options returns the options the transaction was opened with
func (t *Tx) Options() sql.TxOptions {
	return t.opts
}

// Commit commits the transaction
func (t *Tx) Commit() error {
	return t.finish(committed, t.tx.Commit)
}

// Rollback rolls back the transaction
func (t *Tx) Rollback() error {
	return t.finish(rolledBack, t.tx.Rollback)
}

// Committed reports whether Commit succeeded
func (t *Tx) Committed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == committed
}

// RolledBack reports whether Rollback succeeded
func (t *Tx) RolledBack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == rolledBack
}

func (t *Tx) finish(to state, fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case committed:
		return ErrAlreadyCommitted
	case rolledBack:
		if to == rolledBack {
			return nil
		}
		return ErrAlreadyRolledBack
	}

	if err := fn(); err != nil {
		if to == committed {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.state = to
	return nil
}
