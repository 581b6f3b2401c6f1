// Package catalog declares the closed set of entity types the wiki stores.
// Adding a type means adding a declaration here; nothing else in the engine
// knows about individual types.
package catalog

import (
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// Rarities are the labels accepted by MagicItem.rarity, most common first
var Rarities = []string{"common", "uncommon", "rare", "epic", "legendary"}

// Types returns every entity type in registration order. Each call builds
// fresh declarations.
func Types() []*schema.EntityType {
	return []*schema.EntityType{
		player(),
		pathway(),
		item(),
		spell(),
		sequence(),
		page(),
		npc(),
		quest(),
		monster(),
		session(),
		user(),
		comment(),
	}
}

// NewRegistry freezes the catalog into a registry
func NewRegistry() (*schema.Registry, error) {
	return schema.NewRegistry(Types()...)
}

func player() *schema.EntityType {
	return schema.NewBuilder("player", "PlayerCharacter", "player_character").
		Label("name").
		String("name", 100, schema.Required()).
		Slug().
		String("race", 50).
		String("character_class", 50).
		Integer("level", schema.Default(1)).
		Integer("strength", schema.Default(10)).
		Integer("dexterity", schema.Default(10)).
		Integer("constitution", schema.Default(10)).
		Integer("intelligence", schema.Default(10)).
		Integer("wisdom", schema.Default(10)).
		Integer("charisma", schema.Default(10)).
		Integer("armor_class", schema.Default(10)).
		Integer("initiative", schema.Default(0)).
		Integer("speed", schema.Default(30)).
		Integer("current_hp", schema.Default(10)).
		Integer("max_hp", schema.Default(10)).
		String("hit_dice", 10, schema.Default("1d10")).
		String("background", 100).
		String("alignment", 50).
		Integer("experience_points", schema.Default(0)).
		Text("backstory").
		Text("notes").
		ForeignKey("user_id", "user", schema.OnDelete(schema.CascadeSetNull)).
		CreatedAt().
		String("image", 255).
		BelongsTo("user", "user", "user_id").
		ManyToMany("sessions", "session", "player_sessions", "player_id", "session_id").
		ManyToMany("items", "item", "player_magic_items", "player_id", "magic_item_id").
		ManyToMany("quests", "quest", "player_quests", "player_id", "quest_id").
		MustBuild()
}

func pathway() *schema.EntityType {
	return schema.NewBuilder("pathway", "Pathway", "pathway").
		Label("name").
		String("name", 100, schema.Required(), schema.Unique()).
		Slug().
		String("domain", 100).
		Text("description").
		String("image", 255).
		HasMany("sequences", "sequence", "pathway_id", schema.OrphanDelete).
		MustBuild()
}

func item() *schema.EntityType {
	return schema.NewBuilder("item", "MagicItem", "magic_item").
		Label("name").
		String("name", 100, schema.Required(), schema.Unique()).
		Slug().
		Enum("rarity", Rarities, schema.Default("rare")).
		String("type", 50, schema.Default("Weapon")).
		Integer("cost", schema.Default(10)).
		Text("description", schema.Default("Placeholder")).
		ForeignKey("found_in_quest", "quest", schema.OnDelete(schema.CascadeSetNull)).
		CreatedAt().
		String("image", 255).
		BelongsTo("quest", "quest", "found_in_quest").
		ManyToMany("players", "player", "player_magic_items", "magic_item_id", "player_id").
		ManyToMany("spells", "spell", "magicitem_spells", "magic_item_id", "spell_id").
		MustBuild()
}

func spell() *schema.EntityType {
	return schema.NewBuilder("spell", "Spell", "spell").
		Label("name").
		String("name", 100, schema.Required(), schema.Unique()).
		Slug().
		Integer("level", schema.Required()).
		Integer("cast_time", schema.Default(1)).
		Integer("range_area", schema.Default(5)).
		String("components", 50, schema.Default("V,S")).
		Integer("duration", schema.Default(10)).
		Integer("cooldown", schema.Default(0)).
		String("school", 50, schema.Default("Physical")).
		String("effect", 50, schema.Default("Attack")).
		Text("description", schema.Default("Placeholder")).
		CreatedAt().
		String("image", 255).
		ManyToMany("monsters", "monster", "monster_spells", "spell_id", "monster_id").
		ManyToMany("items", "item", "magicitem_spells", "spell_id", "magic_item_id").
		MustBuild()
}

func sequence() *schema.EntityType {
	return schema.NewBuilder("sequence", "Sequence", "sequence").
		Label("title").
		Integer("number", schema.Required()).
		String("title", 100, schema.Required()).
		Slug().
		Text("ritual").
		Text("flaw").
		Text("description").
		ForeignKey("pathway_id", "pathway", schema.Required(), schema.OnDelete(schema.CascadeCascade)).
		String("image", 255).
		BelongsTo("pathway", "pathway", "pathway_id").
		MustBuild()
}

func page() *schema.EntityType {
	return schema.NewBuilder("page", "Page", "page").
		Label("title").
		String("title", 200, schema.Required(), schema.Unique()).
		Slug().
		Text("content").
		String("image", 255).
		Text("content_md").
		ForeignKey("parent_id", "page", schema.OnDelete(schema.CascadeCascade)).
		CreatedAt().
		UpdatedAt().
		BelongsTo("parent", "page", "parent_id").
		HasMany("children", "page", "parent_id", schema.OrphanDelete).
		HasMany("comments", "comment", "page_id", schema.OrphanDelete).
		MustBuild()
}

func npc() *schema.EntityType {
	return schema.NewBuilder("npc", "NPC", "npc").
		Label("name").
		String("name", 100, schema.Required(), schema.Unique()).
		Slug().
		String("race", 50).
		Integer("level", schema.Default(10)).
		String("role", 100).
		Text("description").
		CreatedAt().
		String("image", 255).
		ManyToMany("quests", "quest", "npc_quests", "npc_id", "quest_id").
		MustBuild()
}

func quest() *schema.EntityType {
	return schema.NewBuilder("quest", "Quest", "quest").
		Label("title").
		String("title", 150, schema.Required(), schema.Unique()).
		Slug().
		Text("summary").
		Text("reward").
		String("status", 50, schema.Default("Not Started")).
		Datetime("started_at").
		Datetime("completed_at").
		String("image", 255).
		ManyToMany("players", "player", "player_quests", "quest_id", "player_id").
		ManyToMany("npcs", "npc", "npc_quests", "quest_id", "npc_id").
		MustBuild()
}

func monster() *schema.EntityType {
	return schema.NewBuilder("monster", "Monster", "monster").
		Label("name").
		String("name", 100, schema.Required(), schema.Unique()).
		Slug().
		Text("description", schema.Default("No description provided.")).
		Integer("hit_points", schema.Default(0)).
		Integer("armor_class", schema.Default(10)).
		CreatedAt().
		String("image", 255).
		ManyToMany("spells", "spell", "monster_spells", "monster_id", "spell_id").
		MustBuild()
}

func session() *schema.EntityType {
	return schema.NewBuilder("session", "Session", "session").
		Label("name").
		String("name", 100, schema.Required(), schema.Unique()).
		Slug().
		Integer("session_no", schema.Default(1)).
		String("campaign_name", 100, schema.Default("The fool's legacy")).
		Datetime("session_date").
		Text("notes", schema.Default("")).
		CreatedAt().
		String("image", 255).
		ManyToMany("players", "player", "player_sessions", "session_id", "player_id").
		MustBuild()
}

// user carries no credentials: authentication lives outside the engine
func user() *schema.EntityType {
	return schema.NewBuilder("user", "User", "user").
		Label("name").
		String("email", 150, schema.Unique()).
		String("name", 150).
		Boolean("is_admin", schema.Default(false)).
		String("image", 255).
		HasMany("characters", "player", "user_id", schema.OrphanNullify).
		HasMany("comments", "comment", "user_id", schema.OrphanNullify).
		MustBuild()
}

func comment() *schema.EntityType {
	return schema.NewBuilder("comment", "Comment", "comment").
		ForeignKey("page_id", "page", schema.Required(), schema.OnDelete(schema.CascadeCascade)).
		ForeignKey("parent_id", "comment", schema.OnDelete(schema.CascadeCascade)).
		ForeignKey("user_id", "user", schema.OnDelete(schema.CascadeSetNull)).
		Text("comment_text", schema.Required()).
		CreatedAt().
		BelongsTo("page", "page", "page_id").
		BelongsTo("parent", "comment", "parent_id").
		BelongsTo("user", "user", "user_id").
		HasMany("replies", "comment", "parent_id", schema.OrphanDelete).
		MustBuild()
}
