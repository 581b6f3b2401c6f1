package catalog

import (
	"testing"

	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"player", "pathway", "item", "spell", "sequence", "page", "npc", "quest", "monster", "session", "user", "comment"},
		registry.Names())

	order, err := registry.DependencyOrder()
	require.NoError(t, err)
	assert.Len(t, order, registry.Count())
}

func TestCatalog_SlugTypes(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	for _, name := range []string{"player", "pathway", "item", "spell", "sequence", "page", "npc", "quest", "monster", "session"} {
		entity, ok := registry.Resolve(name)
		require.True(t, ok, name)
		assert.True(t, entity.HasSlug(), "%s should carry a slug", name)
		f, _ := entity.Field(schema.FieldSlug)
		assert.True(t, f.Unique, "%s slug should be unique", name)
	}

	for _, name := range []string{"user", "comment"} {
		entity, _ := registry.Resolve(name)
		assert.False(t, entity.HasSlug(), name)
	}
}

func TestCatalog_Hierarchy(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	page, _ := registry.Resolve("page")
	parent, ok := page.Field("parent_id")
	require.True(t, ok)
	assert.Equal(t, page.Table, parent.References)
	assert.Equal(t, schema.CascadeCascade, parent.OnDelete)

	children, ok := page.Relationship("children")
	require.True(t, ok)
	assert.Equal(t, schema.OrphanDelete, children.Orphans)

	var visible []string
	for _, rel := range page.VisibleRelationships() {
		visible = append(visible, rel.Name)
	}
	assert.Equal(t, []string{"children", "comments"}, visible, "parent is represented by parent_id")
}

func TestCatalog_ItemRarity(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	item, _ := registry.Resolve("ITEM")
	rarity, ok := item.Field("rarity")
	require.True(t, ok)
	assert.Equal(t, schema.TypeEnum, rarity.Type)
	assert.Equal(t, Rarities, rarity.EnumValues)

	label, ok := rarity.CanonicalEnum("Rare")
	assert.True(t, ok)
	assert.Equal(t, "rare", label)
}
