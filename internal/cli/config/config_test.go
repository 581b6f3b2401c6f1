package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grimoire-wiki/grimoire/internal/orm/crud"
	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty working directory
func inTempDir(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { os.Chdir(oldWd) })
	return tmpDir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "grimoire.db", cfg.Database.URL)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "localhost:3000", cfg.Server.Address())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, crud.DropUnresolved, cfg.UnresolvedPolicy())
	assert.Equal(t, dialect.SQLite, cfg.Dialect())
}

func TestLoadWithConfigFile(t *testing.T) {
	inTempDir(t)
	t.Setenv("DATABASE_URL", "")

	content := `
database:
  driver: pgx
  url: postgres://localhost/grimoire
server:
  port: 8080
  host: 0.0.0.0
  api_prefix: /wiki
log:
  level: debug
  development: true
relationships:
  unresolved_ids: reject
`
	require.NoError(t, os.WriteFile("grimoire.yaml", []byte(content), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/grimoire", cfg.Database.URL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/wiki", cfg.Server.APIPrefix)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, crud.RejectUnresolved, cfg.UnresolvedPolicy())
	assert.Equal(t, dialect.Postgres, cfg.Dialect())
}

func TestLoadExplicitPath(t *testing.T) {
	dir := inTempDir(t)
	t.Setenv("DATABASE_URL", "")

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 4000\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	inTempDir(t)
	require.NoError(t, os.WriteFile("grimoire.yaml", []byte("server:\n  port: 8080\n"), 0644))

	t.Setenv("GRIMOIRE_SERVER_PORT", "9090")
	t.Setenv("DATABASE_URL", "file:campaign.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file:campaign.db", cfg.Database.URL)

	t.Setenv("GRIMOIRE_DATABASE_URL", "file:override.db")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "file:override.db", cfg.Database.URL)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:      DatabaseConfig{Driver: "sqlite3", URL: ":memory:"},
			Server:        ServerConfig{Port: 3000},
			Log:           LogConfig{Level: "info"},
			Relationships: RelationshipsConfig{UnresolvedIDs: "drop"},
		}
	}

	require.NoError(t, validateConfig(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty url", func(c *Config) { c.Database.URL = "" }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"prefix without slash", func(c *Config) { c.Server.APIPrefix = "wiki" }},
		{"prefix with trailing slash", func(c *Config) { c.Server.APIPrefix = "/wiki/" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad policy", func(c *Config) { c.Relationships.UnresolvedIDs = "ignore" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}
