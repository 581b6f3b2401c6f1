package commands

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	_ "github.com/lib/pq"              // PostgreSQL driver "postgres"
	_ "github.com/mattn/go-sqlite3"    // SQLite driver "sqlite3"
	"go.uber.org/zap"

	"github.com/grimoire-wiki/grimoire/internal/catalog"
	"github.com/grimoire-wiki/grimoire/internal/cli/config"
	"github.com/grimoire-wiki/grimoire/internal/logging"
	"github.com/grimoire-wiki/grimoire/internal/orm/crud"
	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/grimoire-wiki/grimoire/internal/orm/hooks"
	"github.com/grimoire-wiki/grimoire/internal/orm/migrate"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// app is the wired object graph a command runs against
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *sql.DB
	dialect  dialect.Dialect
	registry *schema.Registry
	engine   *crud.Engine
}

// openApp loads configuration and opens the database. The caller must Close it.
func openApp(opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	registry, err := catalog.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("invalid entity catalog: %w", err)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	executor := hooks.NewExecutor(logger)
	executor.Register(schema.AfterSave, hooks.NewAuditHook(logger))

	d := cfg.Dialect()
	engine := crud.NewEngine(registry, db, d,
		crud.WithLogger(logger),
		crud.WithHooks(executor),
		crud.WithUnresolvedPolicy(cfg.UnresolvedPolicy()),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		dialect:  d,
		registry: registry,
		engine:   engine,
	}, nil
}

// Close releases the database and flushes the logger
func (a *app) Close() error {
	_ = a.logger.Sync()
	return a.db.Close()
}

// migration returns the schema migration for the catalog
func (a *app) migration() (*migrate.Migration, error) {
	return migrate.NewGenerator(a.dialect).GenerateMigration(a.registry)
}

// ensureSchema applies the catalog migration when it is pending
func (a *app) ensureSchema(ctx context.Context) (int, error) {
	m, err := a.migration()
	if err != nil {
		return 0, err
	}
	return migrate.NewRunner(a.db, a.dialect, a.logger).MigrateUp(ctx, []*migrate.Migration{m})
}

func openDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL
	if cfg.Driver == "sqlite3" {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off per
// connection unless asked
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}
