package schema

import (
	"strings"
	"testing"
)

func buildTestTypes(t *testing.T) []*EntityType {
	t.Helper()

	page := NewBuilder("page", "Page", "page").
		String("title", 200, Required(), Unique()).
		Slug().
		ForeignKey("parent_id", "page", OnDelete(CascadeCascade)).
		HasMany("children", "page", "parent_id", OrphanDelete).
		BelongsTo("parent", "page", "parent_id").
		Label("title")

	tag := NewBuilder("tag", "Tag", "tag").
		String("name", 50, Required(), Unique()).
		ManyToMany("pages", "page", "page_tags", "tag_id", "page_id").
		Label("name")

	var out []*EntityType
	for _, b := range []*Builder{page, tag} {
		e, err := b.Build()
		if err != nil {
			t.Fatalf("unexpected build error: %v", err)
		}
		out = append(out, e)
	}
	return out
}

func TestRegistry(t *testing.T) {
	t.Run("resolve is case insensitive", func(t *testing.T) {
		registry, err := NewRegistry(buildTestTypes(t)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, name := range []string{"page", "PAGE", " Page "} {
			e, ok := registry.Resolve(name)
			if !ok {
				t.Errorf("expected %q to resolve", name)
				continue
			}
			if e.Model != "Page" {
				t.Errorf("expected Page, got %s", e.Model)
			}
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		registry, err := NewRegistry(buildTestTypes(t)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := registry.Resolve("nonexistent"); ok {
			t.Error("expected nonexistent to be unknown")
		}
	})

	t.Run("declaration order is preserved", func(t *testing.T) {
		registry, err := NewRegistry(buildTestTypes(t)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		names := registry.Names()
		if len(names) != 2 || names[0] != "page" || names[1] != "tag" {
			t.Errorf("unexpected names: %v", names)
		}
		if registry.Count() != 2 {
			t.Errorf("expected 2 types, got %d", registry.Count())
		}
	})

	t.Run("lookup by table", func(t *testing.T) {
		registry, err := NewRegistry(buildTestTypes(t)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		e, ok := registry.ByTable("tag")
		if !ok || e.Name != "tag" {
			t.Errorf("expected tag table to resolve, got %v", e)
		}
	})

	t.Run("duplicate registration", func(t *testing.T) {
		types := buildTestTypes(t)
		_, err := NewRegistry(types[0], types[0])
		if err == nil {
			t.Error("expected error for duplicate registration")
		}
	})

	t.Run("unknown relationship target", func(t *testing.T) {
		orphan := NewBuilder("orphan", "Orphan", "orphan").
			ManyToMany("ghosts", "ghost", "orphan_ghosts", "orphan_id", "ghost_id").
			MustBuild()

		_, err := NewRegistry(orphan)
		if err == nil || !strings.Contains(err.Error(), "unknown target") {
			t.Errorf("expected unknown target error, got %v", err)
		}
	})

	t.Run("unregistered foreign key table is allowed", func(t *testing.T) {
		loose := NewBuilder("loose", "Loose", "loose").
			ForeignKey("owner_id", "accounts").
			MustBuild()

		if _, err := NewRegistry(loose); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestDependencyOrder(t *testing.T) {
	user := NewBuilder("user", "User", "user").String("name", 100).MustBuild()
	player := NewBuilder("player", "PlayerCharacter", "player_character").
		ForeignKey("user_id", "user").
		MustBuild()
	item := NewBuilder("item", "MagicItem", "magic_item").
		ForeignKey("found_in_quest", "quest").
		MustBuild()
	quest := NewBuilder("quest", "Quest", "quest").MustBuild()

	registry, err := NewRegistry(player, item, user, quest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, err := registry.DependencyOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int)
	for i, e := range order {
		pos[e.Table] = i
	}
	if pos["user"] > pos["player_character"] {
		t.Errorf("user must precede player_character: %v", pos)
	}
	if pos["quest"] > pos["magic_item"] {
		t.Errorf("quest must precede magic_item: %v", pos)
	}
}

func TestVisibleRelationships(t *testing.T) {
	types := buildTestTypes(t)
	page := types[0]

	visible := page.VisibleRelationships()
	if len(visible) != 1 || visible[0].Name != "children" {
		t.Fatalf("expected only children to be visible, got %v", visible)
	}

	if len(page.ValueFields()) != 3 {
		t.Errorf("expected title, slug, parent_id; got %d fields", len(page.ValueFields()))
	}
}
