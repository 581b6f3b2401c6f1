// Package dialect isolates the SQL differences between the supported stores
package dialect

import (
	"fmt"
	"strings"

	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// Dialect identifies a SQL flavour
type Dialect int

const (
	// SQLite is served by github.com/mattn/go-sqlite3
	SQLite Dialect = iota
	// Postgres is served by pgx (stdlib) or lib/pq
	Postgres
)

// String returns the string representation of the dialect
func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// ForDriver maps a database/sql driver name to its dialect
func ForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "pgx", "postgres":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Placeholder returns the n-th (1-based) bind parameter
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Quote quotes an identifier. Both dialects accept ANSI double quotes, which
// matters for tables such as "user" and "session".
func (d Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// PrimaryKey returns the column definition of the integer primary key
func (d Dialect) PrimaryKey() string {
	if d == Postgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// ColumnType maps a field to its column type
func (d Dialect) ColumnType(f *schema.Field) string {
	switch f.Type {
	case schema.TypeString:
		if f.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", f.Length)
		}
		return "VARCHAR"
	case schema.TypeText, schema.TypeEnum:
		return "TEXT"
	case schema.TypeInteger:
		if d == Postgres {
			return "BIGINT"
		}
		return "INTEGER"
	case schema.TypeFloat:
		if d == Postgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeDatetime:
		// go-sqlite3 only converts columns declared as timestamp/datetime/date
		// back into time.Time
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// Literal renders a default value as a SQL literal
func (d Dialect) Literal(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	case bool:
		if d == Postgres {
			if val {
				return "TRUE", nil
			}
			return "FALSE", nil
		}
		if val {
			return "1", nil
		}
		return "0", nil
	case int, int32, int64:
		return fmt.Sprintf("%d", val), nil
	case float32, float64:
		return fmt.Sprintf("%g", val), nil
	default:
		return "", fmt.Errorf("unsupported default value type %T", v)
	}
}

// ParamBuilder accumulates bind parameters and hands out placeholders
type ParamBuilder struct {
	dialect Dialect
	params  []interface{}
}

// NewParamBuilder creates an empty parameter builder
func (d Dialect) NewParamBuilder() *ParamBuilder {
	return &ParamBuilder{dialect: d}
}

// Add registers a value and returns its placeholder
func (pb *ParamBuilder) Add(v interface{}) string {
	pb.params = append(pb.params, v)
	return pb.dialect.Placeholder(len(pb.params))
}

// AddList registers several values and returns a comma separated placeholder list
func (pb *ParamBuilder) AddList(values []int64) string {
	holders := make([]string, len(values))
	for i, v := range values {
		holders[i] = pb.Add(v)
	}
	return strings.Join(holders, ", ")
}

// Params returns the accumulated values in bind order
func (pb *ParamBuilder) Params() []interface{} {
	return pb.params
}
