package migrate

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/grimoire-wiki/grimoire/internal/catalog"
	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func TestGenerator_CreateTable(t *testing.T) {
	entity := schema.NewBuilder("item", "MagicItem", "magic_item").
		String("name", 100, schema.Required(), schema.Unique()).
		Enum("rarity", []string{"common", "rare"}, schema.Default("rare")).
		Float("weight").
		Boolean("cursed", schema.Default(false)).
		ForeignKey("found_in_quest", "quest", schema.OnDelete(schema.CascadeSetNull)).
		MustBuild()

	t.Run("sqlite", func(t *testing.T) {
		ddl, err := NewGenerator(dialect.SQLite).GenerateCreateTable(entity)
		require.NoError(t, err)
		assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "magic_item"`)
		assert.Contains(t, ddl, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`)
		assert.Contains(t, ddl, `"name" VARCHAR(100) NOT NULL UNIQUE`)
		assert.Contains(t, ddl, `"rarity" TEXT DEFAULT 'rare' CHECK ("rarity" IN ('common', 'rare'))`)
		assert.Contains(t, ddl, `"weight" REAL`)
		assert.Contains(t, ddl, `"cursed" BOOLEAN DEFAULT 0`)
		assert.Contains(t, ddl, `"found_in_quest" INTEGER REFERENCES "quest" ("id") ON DELETE SET NULL`)
	})

	t.Run("postgres", func(t *testing.T) {
		ddl, err := NewGenerator(dialect.Postgres).GenerateCreateTable(entity)
		require.NoError(t, err)
		assert.Contains(t, ddl, `"id" BIGSERIAL PRIMARY KEY`)
		assert.Contains(t, ddl, `"weight" DOUBLE PRECISION`)
		assert.Contains(t, ddl, `"cursed" BOOLEAN DEFAULT FALSE`)
		assert.Contains(t, ddl, `"found_in_quest" BIGINT REFERENCES`)
	})
}

func TestGenerator_CatalogMigration(t *testing.T) {
	registry, err := catalog.NewRegistry()
	require.NoError(t, err)

	m, err := NewGenerator(dialect.SQLite).GenerateMigration(registry)
	require.NoError(t, err)

	script := m.Script()
	userAt := strings.Index(script, `CREATE TABLE IF NOT EXISTS "user"`)
	playerAt := strings.Index(script, `CREATE TABLE IF NOT EXISTS "player_character"`)
	require.True(t, userAt >= 0 && playerAt >= 0)
	assert.Less(t, userAt, playerAt, "referenced tables come first")

	assert.Equal(t, 1, strings.Count(script, `CREATE TABLE IF NOT EXISTS "player_sessions"`),
		"join tables declared from both sides are created once")
	assert.Contains(t, script, `PRIMARY KEY ("player_id", "session_id")`)
	assert.Len(t, m.Down, len(m.Up))
}

func TestRunner_MigrateUpAndDown(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	registry, err := catalog.NewRegistry()
	require.NoError(t, err)
	m, err := NewGenerator(dialect.SQLite).GenerateMigration(registry)
	require.NoError(t, err)

	runner := NewRunner(db, dialect.SQLite, nil)

	applied, err := runner.MigrateUp(ctx, []*Migration{m})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	for _, entity := range registry.Types() {
		assert.True(t, tableExists(t, db, entity.Table), entity.Table)
	}
	assert.True(t, tableExists(t, db, "magicitem_spells"))

	ok, err := runner.Tracker().IsApplied(ctx, InitialVersion)
	require.NoError(t, err)
	assert.True(t, ok)

	applied, err = runner.MigrateUp(ctx, []*Migration{m})
	require.NoError(t, err)
	assert.Equal(t, 0, applied, "second run is a no-op")

	require.NoError(t, runner.MigrateDown(ctx, []*Migration{m}))
	assert.False(t, tableExists(t, db, "page"))

	ok, err = runner.Tracker().IsApplied(ctx, InitialVersion)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunner_FailedMigrationRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runner := NewRunner(db, dialect.SQLite, nil)

	bad := &Migration{
		Version: 7,
		Name:    "broken",
		Up:      []string{"CREATE TABLE kept_out (id INTEGER)", "NOT VALID SQL"},
	}
	_, err := runner.MigrateUp(ctx, []*Migration{bad})
	require.Error(t, err)

	assert.False(t, tableExists(t, db, "kept_out"))
	ok, err := runner.Tracker().IsApplied(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}
