// Package models defines data structures shared across Paperflow.
package models

import "fmt"

// EntityKind identifies which metadata collection an entity belongs to.
type EntityKind string

const (
	KindTag           EntityKind = "tag"
	KindCorrespondent EntityKind = "correspondent"
	KindDocumentType  EntityKind = "document_type"
)

// Valid reports whether k is one of the known entity kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindTag, KindCorrespondent, KindDocumentType:
		return true
	}
	return false
}

// ParseEntityKind converts a user-supplied string into an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown entity kind %q (want tag, correspondent or document_type)", s)
	}
	return k, nil
}

// MultiValued reports whether documents may carry more than one reference of
// this kind. Tags are a list; correspondent and document type are single slots.
func (k EntityKind) MultiValued() bool {
	return k == KindTag
}

// NamedEntity is a tag, correspondent or document type as stored by the
// document store. The name is a snapshot taken at the start of a
// consolidation run; identity is the ID.
type NamedEntity struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
}

// SimilarityGroup is an ordered cluster of entities with near-duplicate
// names. Groups always have at least two members; order is discovery order.
type SimilarityGroup struct {
	Kind     EntityKind    `json:"kind"`
	Entities []NamedEntity `json:"entities"`
}

// IDs returns the entity ids in group order.
func (g SimilarityGroup) IDs() []int {
	ids := make([]int, len(g.Entities))
	for i, e := range g.Entities {
		ids[i] = e.ID
	}
	return ids
}

// MergePlan names the surviving entity of a group and the members to retire.
// Invariant: the primary never appears in the retire list.
type MergePlan struct {
	Kind    EntityKind    `json:"kind"`
	Primary NamedEntity   `json:"primary"`
	Retire  []NamedEntity `json:"retire"`
}

// RetireIDs returns the ids of the entities scheduled for deletion.
func (p MergePlan) RetireIDs() []int {
	ids := make([]int, len(p.Retire))
	for i, e := range p.Retire {
		ids[i] = e.ID
	}
	return ids
}
