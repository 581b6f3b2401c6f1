package hooks

import (
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"github.com/grimoire-wiki/grimoire/internal/orm/slug"
)

// SlugSources are the columns a slug may be derived from, in priority order
var SlugSources = []string{"title", "name"}

// SlugSource returns the column the entity's slug is derived from
func SlugSource(entity *schema.EntityType) (string, bool) {
	if !entity.HasSlug() {
		return "", false
	}
	for _, name := range SlugSources {
		if entity.HasField(name) {
			return name, true
		}
	}
	return "", false
}

// DeriveSlug overwrites record's slug with the normalized form of its source
// column. It runs before every insert and update of a slug-bearing type.
// When the source is absent or normalizes to nothing the slug is left as is
// and ok is false.
func DeriveSlug(entity *schema.EntityType, record map[string]interface{}) (value string, ok bool) {
	source, found := SlugSource(entity)
	if !found {
		return "", false
	}
	raw, _ := record[source].(string)
	s := slug.Make(raw)
	if s == "" {
		return "", false
	}
	record[schema.FieldSlug] = s
	return s, true
}
