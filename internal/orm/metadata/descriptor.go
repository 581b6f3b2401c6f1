// Package metadata turns an entity type's declarations into the field
// descriptors a generic form or API client renders from.
package metadata

import (
	"encoding/json"

	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// Kind is the descriptor type reported to clients
type Kind string

const (
	KindInteger      Kind = "integer"
	KindFloat        Kind = "float"
	KindBoolean      Kind = "boolean"
	KindDatetime     Kind = "datetime"
	KindTextLong     Kind = "textlong"
	KindString       Kind = "string"
	KindEnum         Kind = "enum"
	KindForeignKey   Kind = "foreignkey"
	KindRelationship Kind = "relationship"
)

// Cardinality values for relationship descriptors
const (
	CardinalityMany = "many"
	CardinalityOne  = "one"
)

// Descriptor describes one attribute of an entity type
type Descriptor struct {
	Name             string
	Type             Kind
	RelationshipType string
	Nullable         bool

	// RefTable and RefModel name the target of foreign keys and
	// relationships. RefModel is nil when the target table is not registered.
	RefTable string
	RefModel *string

	// Enum holds enum labels in declaration order; Refs holds the live
	// choice list of a foreign key or relationship target.
	Enum []string
	Refs []schema.Ref
}

// References reports whether the descriptor points at another entity type
func (d Descriptor) References() bool {
	return d.Type == KindForeignKey || d.Type == KindRelationship
}

// Choices returns the enum labels or target refs, nil when there are none
func (d Descriptor) Choices() interface{} {
	switch {
	case d.Type == KindEnum:
		return d.Enum
	case d.References() && d.RefModel != nil:
		return d.Refs
	default:
		return nil
	}
}

// MarshalJSON emits only the keys meaningful for the descriptor's kind.
// ref_model is always present (possibly null) on referencing kinds.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	type plain struct {
		Name             string      `json:"name"`
		Type             Kind        `json:"type"`
		RelationshipType string      `json:"relationship_type,omitempty"`
		Nullable         bool        `json:"nullable"`
		Choices          interface{} `json:"choices,omitempty"`
	}
	type referencing struct {
		Name             string      `json:"name"`
		Type             Kind        `json:"type"`
		RelationshipType string      `json:"relationship_type,omitempty"`
		Nullable         bool        `json:"nullable"`
		RefTable         string      `json:"ref_table,omitempty"`
		RefModel         *string     `json:"ref_model"`
		Choices          interface{} `json:"choices,omitempty"`
	}

	if !d.References() {
		return json.Marshal(plain{
			Name:     d.Name,
			Type:     d.Type,
			Nullable: d.Nullable,
			Choices:  d.Choices(),
		})
	}
	return json.Marshal(referencing{
		Name:             d.Name,
		Type:             d.Type,
		RelationshipType: d.RelationshipType,
		Nullable:         d.Nullable,
		RefTable:         d.RefTable,
		RefModel:         d.RefModel,
		Choices:          d.Choices(),
	})
}

// Value is one stored column value, as returned by Values
type Value struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Names returns the descriptor names in order
func Names(descriptors []Descriptor) []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return names
}
