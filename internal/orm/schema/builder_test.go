package schema

import (
	"strings"
	"testing"
)

func TestBuilder(t *testing.T) {
	t.Run("id is always the first column", func(t *testing.T) {
		e := NewBuilder("spell", "Spell", "spell").
			String("name", 100, Required(), Unique()).
			Integer("level", Required()).
			Integer("cast_time", Default(1)).
			MustBuild()

		cols := e.Columns()
		if cols[0] != FieldID {
			t.Errorf("expected id first, got %v", cols)
		}
		f, ok := e.Field("cast_time")
		if !ok {
			t.Fatal("cast_time should exist")
		}
		if f.Default != 1 || !f.Nullable {
			t.Errorf("unexpected cast_time declaration: %+v", f)
		}
		name, _ := e.Field("name")
		if name.Nullable || !name.Unique || name.Length != 100 {
			t.Errorf("unexpected name declaration: %+v", name)
		}
	})

	t.Run("duplicate field", func(t *testing.T) {
		_, err := NewBuilder("spell", "Spell", "spell").
			String("name", 100).
			Text("name").
			Build()
		if err == nil || !strings.Contains(err.Error(), "duplicate field") {
			t.Errorf("expected duplicate field error, got %v", err)
		}
	})

	t.Run("relationship colliding with a field", func(t *testing.T) {
		_, err := NewBuilder("npc", "NPC", "npc").
			Text("quests").
			ManyToMany("quests", "quest", "npc_quests", "npc_id", "quest_id").
			Build()
		if err == nil || !strings.Contains(err.Error(), "collides") {
			t.Errorf("expected collision error, got %v", err)
		}
	})

	t.Run("enum requires values", func(t *testing.T) {
		_, err := NewBuilder("item", "MagicItem", "magic_item").
			Enum("rarity", nil).
			Build()
		if err == nil {
			t.Error("expected enum error")
		}
	})

	t.Run("belongs_to requires its column", func(t *testing.T) {
		_, err := NewBuilder("comment", "Comment", "comment").
			BelongsTo("page", "page", "page_id").
			Build()
		if err == nil || !strings.Contains(err.Error(), "belongs_to") {
			t.Errorf("expected belongs_to error, got %v", err)
		}
	})

	t.Run("label must be a field", func(t *testing.T) {
		_, err := NewBuilder("quest", "Quest", "quest").Label("title").Build()
		if err == nil {
			t.Error("expected label error")
		}
	})

	t.Run("name must be lowercase", func(t *testing.T) {
		_, err := NewBuilder("Quest", "Quest", "quest").Build()
		if err == nil {
			t.Error("expected lowercase error")
		}
	})
}

func TestCanonicalEnum(t *testing.T) {
	e := NewBuilder("item", "MagicItem", "magic_item").
		Enum("rarity", []string{"common", "rare"}).
		MustBuild()
	f, _ := e.Field("rarity")

	got, ok := f.CanonicalEnum("RARE")
	if !ok || got != "rare" {
		t.Errorf("expected rare, got %q (%v)", got, ok)
	}
	if _, ok := f.CanonicalEnum("mythic"); ok {
		t.Error("mythic is not a declared label")
	}
}

func TestLabel(t *testing.T) {
	e := NewBuilder("comment", "Comment", "comment").Text("comment_text").MustBuild()
	if got := e.Label(7, nil); got != "Comment 7" {
		t.Errorf("expected fallback label, got %q", got)
	}

	named := NewBuilder("npc", "NPC", "npc").String("name", 100).Label("name").MustBuild()
	if got := named.Label(3, "Mira"); got != "Mira" {
		t.Errorf("expected Mira, got %q", got)
	}
	if got := named.Label(3, ""); got != "NPC 3" {
		t.Errorf("expected fallback for empty label, got %q", got)
	}
}
