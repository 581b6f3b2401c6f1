// Package migrate creates and tracks the database schema of the registered
// entity types
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
)

// Migration represents a single database migration
type Migration struct {
	Version   int64    // ordering key
	Name      string   // human-readable name
	Up        []string // statements to apply, in order
	Down      []string // statements to roll back, in order
	AppliedAt time.Time
}

// Script renders the Up statements as one SQL script
func (m *Migration) Script() string {
	if len(m.Up) == 0 {
		return ""
	}
	return strings.Join(m.Up, ";\n\n") + ";\n"
}

// Tracker manages migration history in the database
type Tracker struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// NewTracker creates a new migration tracker
func NewTracker(db *sql.DB, d dialect.Dialect) *Tracker {
	return &Tracker{db: db, dialect: d}
}

// Initialize ensures the schema_migrations table exists
func (t *Tracker) Initialize(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`
	if _, err := t.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %w", err)
	}
	return nil
}

// GetApplied returns all applied migrations sorted by version
func (t *Tracker) GetApplied(ctx context.Context) ([]*Migration, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT version, name, applied_at FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var migrations []*Migration
	for rows.Next() {
		m := &Migration{}
		if err := rows.Scan(&m.Version, &m.Name, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		migrations = append(migrations, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migrations: %w", err)
	}
	return migrations, nil
}

// IsApplied checks if a migration version has been applied
func (t *Tracker) IsApplied(ctx context.Context, version int64) (bool, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM schema_migrations WHERE version = %s", t.dialect.Placeholder(1))
	if err := t.db.QueryRowContext(ctx, query, version).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}

// Record records a migration within a transaction
func (t *Tracker) Record(ctx context.Context, tx *sql.Tx, m *Migration) error {
	query := fmt.Sprintf("INSERT INTO schema_migrations (version, name, applied_at) VALUES (%s, %s, %s)",
		t.dialect.Placeholder(1), t.dialect.Placeholder(2), t.dialect.Placeholder(3))
	if _, err := tx.ExecContext(ctx, query, m.Version, m.Name, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}
	return nil
}

// Remove deletes a migration record within a transaction
func (t *Tracker) Remove(ctx context.Context, tx *sql.Tx, version int64) error {
	query := fmt.Sprintf("DELETE FROM schema_migrations WHERE version = %s", t.dialect.Placeholder(1))
	if _, err := tx.ExecContext(ctx, query, version); err != nil {
		return fmt.Errorf("failed to remove migration %d: %w", version, err)
	}
	return nil
}

// GetPending returns the migrations from all that have not been applied,
// in version order
func (t *Tracker) GetPending(ctx context.Context, all []*Migration) ([]*Migration, error) {
	applied, err := t.GetApplied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int64]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	var pending []*Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}
