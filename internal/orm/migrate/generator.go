package migrate

import (
	"fmt"
	"strings"

	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// InitialVersion is the version of the migration that creates the catalog
const InitialVersion int64 = 1

// Generator generates DDL for a registry in one dialect
type Generator struct {
	dialect dialect.Dialect
}

// NewGenerator creates a new DDL generator
func NewGenerator(d dialect.Dialect) *Generator {
	return &Generator{dialect: d}
}

// GenerateMigration returns the migration that creates every entity table
// in foreign key order, followed by the join tables. Down drops them in
// reverse.
func (g *Generator) GenerateMigration(registry *schema.Registry) (*Migration, error) {
	ordered, err := registry.DependencyOrder()
	if err != nil {
		return nil, err
	}

	m := &Migration{
		Version: InitialVersion,
		Name:    "create_entity_tables",
	}
	var tables []string

	for _, entity := range ordered {
		stmt, err := g.GenerateCreateTable(entity)
		if err != nil {
			return nil, err
		}
		m.Up = append(m.Up, stmt)
		tables = append(tables, entity.Table)
	}

	seen := make(map[string]bool)
	for _, entity := range registry.Types() {
		for _, rel := range entity.Relationships {
			if rel.Type != schema.RelationshipManyToMany || seen[rel.JoinTable] {
				continue
			}
			seen[rel.JoinTable] = true

			target, ok := registry.Resolve(rel.Target)
			if !ok {
				return nil, fmt.Errorf("%s.%s: unknown target %q", entity.Name, rel.Name, rel.Target)
			}
			m.Up = append(m.Up, g.GenerateJoinTable(entity, target, rel))
			tables = append(tables, rel.JoinTable)
		}
	}

	for i := len(tables) - 1; i >= 0; i-- {
		m.Down = append(m.Down, fmt.Sprintf("DROP TABLE IF EXISTS %s", g.dialect.Quote(tables[i])))
	}

	return m, nil
}

// GenerateCreateTable generates a CREATE TABLE statement for an entity type
func (g *Generator) GenerateCreateTable(entity *schema.EntityType) (string, error) {
	d := g.dialect
	defs := make([]string, 0, len(entity.Fields))

	for _, f := range entity.Fields {
		if f.Name == schema.FieldID {
			defs = append(defs, d.Quote(f.Name)+" "+d.PrimaryKey())
			continue
		}
		def, err := g.columnDefinition(entity, f)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", entity.Name, f.Name, err)
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		d.Quote(entity.Table), strings.Join(defs, ",\n  ")), nil
}

func (g *Generator) columnDefinition(entity *schema.EntityType, f *schema.Field) (string, error) {
	d := g.dialect
	parts := []string{d.Quote(f.Name), d.ColumnType(f)}

	if !f.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if f.Unique {
		parts = append(parts, "UNIQUE")
	}
	if f.Default != nil {
		lit, err := d.Literal(f.Default)
		if err != nil {
			return "", err
		}
		parts = append(parts, "DEFAULT "+lit)
	}
	if f.Type == schema.TypeEnum {
		labels := make([]string, len(f.EnumValues))
		for i, v := range f.EnumValues {
			lit, _ := d.Literal(v)
			labels[i] = lit
		}
		parts = append(parts, fmt.Sprintf("CHECK (%s IN (%s))", d.Quote(f.Name), strings.Join(labels, ", ")))
	}
	if f.IsForeignKey() {
		parts = append(parts, fmt.Sprintf("REFERENCES %s (%s)", d.Quote(f.References), d.Quote(schema.FieldID)))
		if f.OnDelete != schema.CascadeNoAction {
			parts = append(parts, "ON DELETE "+f.OnDelete.SQL())
		}
	}

	return strings.Join(parts, " "), nil
}

// GenerateJoinTable generates the join table of a many_to_many
// relationship. Rows go with either side on delete.
func (g *Generator) GenerateJoinTable(owner, target *schema.EntityType, rel *schema.Relationship) string {
	d := g.dialect
	keyType := d.ColumnType(&schema.Field{Type: schema.TypeInteger})
	column := func(name, table string) string {
		return fmt.Sprintf("%s %s NOT NULL REFERENCES %s (%s) ON DELETE CASCADE",
			d.Quote(name), keyType, d.Quote(table), d.Quote(schema.FieldID))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s,\n  %s,\n  PRIMARY KEY (%s, %s)\n)",
		d.Quote(rel.JoinTable),
		column(rel.OwnerKey, owner.Table),
		column(rel.TargetKey, target.Table),
		d.Quote(rel.OwnerKey), d.Quote(rel.TargetKey))
}
