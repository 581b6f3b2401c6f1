package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*sql.DB, *schema.Registry) {
	t.Helper()

	item := schema.NewBuilder("item", "MagicItem", "magic_items").
		Label("name").
		String("name", 100, schema.Required(), schema.Unique()).
		Text("description").
		Enum("rarity", []string{"common", "rare"}, schema.Required()).
		Float("weight").
		Boolean("attuned", schema.Default(false)).
		Datetime("found_at").
		ForeignKey("quest_id", "quests").
		BelongsTo("quest", "quest", "quest_id").
		ForeignKey("legacy_owner_id", "legacy_owners").
		CreatedAt().
		UpdatedAt().
		ManyToMany("spells", "spell", "item_spells", "item_id", "spell_id").
		MustBuild()
	quest := schema.NewBuilder("quest", "Quest", "quests").
		Label("title").
		String("title", 100, schema.Required()).
		HasOne("reward", "item", "quest_id", schema.OrphanNullify).
		MustBuild()
	spell := schema.NewBuilder("spell", "Spell", "spells").
		Label("name").
		String("name", 100, schema.Required()).
		MustBuild()

	registry, err := schema.NewRegistry(item, quest, spell)
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE quests (id INTEGER PRIMARY KEY AUTOINCREMENT, title VARCHAR(100) NOT NULL);
		CREATE TABLE spells (id INTEGER PRIMARY KEY AUTOINCREMENT, name VARCHAR(100) NOT NULL);
		CREATE TABLE magic_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(100) NOT NULL UNIQUE,
			description TEXT,
			rarity VARCHAR(20) NOT NULL,
			weight REAL,
			attuned BOOLEAN DEFAULT 0,
			found_at TIMESTAMP,
			quest_id INTEGER,
			legacy_owner_id INTEGER,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		);
		CREATE TABLE item_spells (item_id INTEGER NOT NULL, spell_id INTEGER NOT NULL);
		INSERT INTO quests (title) VALUES ('Into the Mire'), ('The Lantern');
		INSERT INTO spells (name) VALUES ('Ward');
		INSERT INTO magic_items (name, description, rarity, weight, attuned, found_at, quest_id, created_at)
		VALUES ('Iron Sword', 'Plain.', 'common', 3.5, 1, '2024-05-01 18:30:00', 2, '2024-01-01 00:00:00');
	`)
	require.NoError(t, err)
	return db, registry
}

func TestClassify(t *testing.T) {
	tests := []struct {
		field *schema.Field
		want  Kind
	}{
		{&schema.Field{Type: schema.TypeEnum, References: "quests"}, KindEnum},
		{&schema.Field{Type: schema.TypeInteger, References: "quests"}, KindForeignKey},
		{&schema.Field{Type: schema.TypeInteger}, KindInteger},
		{&schema.Field{Type: schema.TypeFloat}, KindFloat},
		{&schema.Field{Type: schema.TypeBoolean}, KindBoolean},
		{&schema.Field{Type: schema.TypeDatetime}, KindDatetime},
		{&schema.Field{Type: schema.TypeText}, KindTextLong},
		{&schema.Field{Type: schema.TypeString}, KindString},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.field))
	}
}

func TestExtractor_Describe(t *testing.T) {
	db, registry := setup(t)
	x := NewExtractor(registry, dialect.SQLite)
	item, _ := registry.Resolve("item")

	descriptors, err := x.Describe(context.Background(), db, item)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"name", "description", "rarity", "weight", "attuned", "found_at", "quest_id", "legacy_owner_id", "spells"},
		Names(descriptors))

	byName := map[string]Descriptor{}
	for _, d := range descriptors {
		byName[d.Name] = d
	}

	assert.Equal(t, KindEnum, byName["rarity"].Type)
	assert.Equal(t, []string{"common", "rare"}, byName["rarity"].Choices())
	assert.False(t, byName["rarity"].Nullable)
	assert.True(t, byName["weight"].Nullable)

	quest := byName["quest_id"]
	assert.Equal(t, KindForeignKey, quest.Type)
	assert.Equal(t, "quests", quest.RefTable)
	require.NotNil(t, quest.RefModel)
	assert.Equal(t, "Quest", *quest.RefModel)
	assert.Equal(t, []schema.Ref{{ID: 1, Label: "Into the Mire"}, {ID: 2, Label: "The Lantern"}}, quest.Choices())

	legacy := byName["legacy_owner_id"]
	assert.Nil(t, legacy.RefModel)
	assert.Nil(t, legacy.Choices())

	spells := byName["spells"]
	assert.Equal(t, KindRelationship, spells.Type)
	assert.Equal(t, CardinalityMany, spells.RelationshipType)
	assert.Equal(t, []schema.Ref{{ID: 1, Label: "Ward"}}, spells.Choices())

	questType, _ := registry.Resolve("quest")
	descriptors, err = x.Describe(context.Background(), db, questType)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)
	assert.Equal(t, CardinalityOne, descriptors[1].RelationshipType)
	assert.Equal(t, []schema.Ref{{ID: 1, Label: "Iron Sword"}}, descriptors[1].Choices())
}

func TestExtractor_ChoicesAreLive(t *testing.T) {
	db, registry := setup(t)
	x := NewExtractor(registry, dialect.SQLite)
	item, _ := registry.Resolve("item")

	_, err := db.Exec("INSERT INTO spells (name) VALUES ('Blink')")
	require.NoError(t, err)

	descriptors, err := x.Describe(context.Background(), db, item)
	require.NoError(t, err)
	spells := descriptors[len(descriptors)-1]
	assert.Len(t, spells.Refs, 2)
}

func TestDescriptor_MarshalJSON(t *testing.T) {
	model := "Quest"
	tests := []struct {
		name string
		d    Descriptor
		want string
	}{
		{
			"primitive",
			Descriptor{Name: "weight", Type: KindFloat, Nullable: true},
			`{"name":"weight","type":"float","nullable":true}`,
		},
		{
			"enum",
			Descriptor{Name: "rarity", Type: KindEnum, Enum: []string{"common", "rare"}},
			`{"name":"rarity","type":"enum","nullable":false,"choices":["common","rare"]}`,
		},
		{
			"unresolved foreign key",
			Descriptor{Name: "owner_id", Type: KindForeignKey, Nullable: true, RefTable: "owners"},
			`{"name":"owner_id","type":"foreignkey","nullable":true,"ref_table":"owners","ref_model":null}`,
		},
		{
			"relationship",
			Descriptor{Name: "quests", Type: KindRelationship, RelationshipType: CardinalityMany, Nullable: true,
				RefModel: &model, Refs: []schema.Ref{{ID: 1, Label: "Into the Mire"}}},
			`{"name":"quests","type":"relationship","relationship_type":"many","nullable":true,"ref_model":"Quest","choices":[{"id":1,"label":"Into the Mire"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.d)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestExtractor_Values(t *testing.T) {
	db, registry := setup(t)
	x := NewExtractor(registry, dialect.SQLite)
	item, _ := registry.Resolve("item")

	values, err := x.Values(context.Background(), db, item, 1)
	require.NoError(t, err)
	require.Len(t, values, 8)

	got := map[string]interface{}{}
	for _, v := range values {
		got[v.Name] = v.Value
	}
	assert.Equal(t, "Iron Sword", got["name"])
	assert.Equal(t, "common", got["rarity"])
	assert.Equal(t, 3.5, got["weight"])
	assert.Equal(t, true, got["attuned"])
	assert.Equal(t, int64(2), got["quest_id"])
	assert.Nil(t, got["legacy_owner_id"])
	assert.NotContains(t, got, "created_at")

	_, err = x.Values(context.Background(), db, item, 42)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
