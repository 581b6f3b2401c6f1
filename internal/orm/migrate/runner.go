package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/grimoire-wiki/grimoire/internal/orm/transaction"
	"go.uber.org/zap"
)

// Runner executes migrations, each in its own transaction
type Runner struct {
	db        *sql.DB
	tracker   *Tracker
	txManager *transaction.Manager
	logger    *zap.Logger
}

// NewRunner creates a new migration runner
func NewRunner(db *sql.DB, d dialect.Dialect, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		db:        db,
		tracker:   NewTracker(db, d),
		txManager: transaction.NewManager(db),
		logger:    logger,
	}
}

// Tracker returns the runner's migration tracker
func (r *Runner) Tracker() *Tracker {
	return r.tracker
}

// MigrateUp applies all pending migrations and returns how many ran
func (r *Runner) MigrateUp(ctx context.Context, migrations []*Migration) (int, error) {
	if err := r.tracker.Initialize(ctx); err != nil {
		return 0, err
	}

	pending, err := r.tracker.GetPending(ctx, migrations)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending migrations: %w", err)
	}
	if len(pending) == 0 {
		r.logger.Info("no pending migrations")
		return 0, nil
	}

	for _, m := range pending {
		start := time.Now()
		if err := r.apply(ctx, m); err != nil {
			return 0, fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		r.logger.Info("applied migration",
			zap.Int64("version", m.Version),
			zap.String("name", m.Name),
			zap.Duration("took", time.Since(start)))
	}
	return len(pending), nil
}

// MigrateDown rolls back the most recently applied migration found in
// migrations
func (r *Runner) MigrateDown(ctx context.Context, migrations []*Migration) error {
	applied, err := r.tracker.GetApplied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return fmt.Errorf("no migrations to rollback")
	}
	last := applied[len(applied)-1]

	var m *Migration
	for _, candidate := range migrations {
		if candidate.Version == last.Version {
			m = candidate
			break
		}
	}
	if m == nil || len(m.Down) == 0 {
		return fmt.Errorf("migration %s has no down migration", last.Name)
	}

	err = r.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range m.Down {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute rollback SQL: %w", err)
			}
		}
		return r.tracker.Remove(ctx, tx, m.Version)
	})
	if err != nil {
		return err
	}
	r.logger.Info("rolled back migration", zap.Int64("version", m.Version), zap.String("name", m.Name))
	return nil
}

func (r *Runner) apply(ctx context.Context, m *Migration) error {
	if len(m.Up) == 0 {
		return fmt.Errorf("migration has no up SQL")
	}
	return r.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range m.Up {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute migration SQL: %w", err)
			}
		}
		return r.tracker.Record(ctx, tx, m)
	})
}
