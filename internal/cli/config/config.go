// Package config loads grimoire's settings from grimoire.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/grimoire-wiki/grimoire/internal/logging"
	"github.com/grimoire-wiki/grimoire/internal/orm/crud"
	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GRIMOIRE_SERVER_PORT
const EnvPrefix = "GRIMOIRE"

// Config represents the grimoire configuration
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Relationships RelationshipsConfig `mapstructure:"relationships"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	// Driver is a database/sql driver name: sqlite3, pgx or postgres
	Driver       string `mapstructure:"driver"`
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	Host      string `mapstructure:"host"`
	APIPrefix string `mapstructure:"api_prefix"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// RelationshipsConfig controls relationship writes
type RelationshipsConfig struct {
	// UnresolvedIDs is "drop" or "reject"
	UnresolvedIDs string `mapstructure:"unresolved_ids"`
}

// Address returns host:port for the HTTP listener
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// UnresolvedPolicy returns the parsed relationship policy
func (c *Config) UnresolvedPolicy() crud.UnresolvedPolicy {
	p, _ := crud.ParseUnresolvedPolicy(c.Relationships.UnresolvedIDs)
	return p
}

// Dialect returns the SQL dialect of the configured driver
func (c *Config) Dialect() dialect.Dialect {
	d, _ := dialect.ForDriver(c.Database.Driver)
	return d
}

// Load reads the configuration. With an empty path grimoire.yaml (or .yml)
// is looked up in the working directory and its absence is not an error;
// an explicit path must exist. Environment variables override the file:
// GRIMOIRE_DATABASE_URL (or DATABASE_URL), GRIMOIRE_SERVER_PORT and so on.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.url", "grimoire.db")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.api_prefix", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("relationships.unresolved_ids", "drop")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("grimoire")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := dialect.ForDriver(cfg.Database.Driver); err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url must not be empty")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.Server.APIPrefix != "" {
		if !strings.HasPrefix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must start with '/', got: %s", cfg.Server.APIPrefix)
		}
		if strings.HasSuffix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must not end with '/', got: %s", cfg.Server.APIPrefix)
		}
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := crud.ParseUnresolvedPolicy(cfg.Relationships.UnresolvedIDs); err != nil {
		return fmt.Errorf("relationships.unresolved_ids: %w", err)
	}
	return nil
}
