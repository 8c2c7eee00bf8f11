package models

import "time"

// Document is the subset of a stored document that Paperflow reads and
// mutates. Content carries the OCR/plain text used for LLM prompts.
type Document struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	Content         string    `json:"content,omitempty"`
	TagIDs          []int     `json:"tags"`
	CorrespondentID *int      `json:"correspondent,omitempty"`
	DocumentTypeID  *int      `json:"document_type,omitempty"`
	Created         time.Time `json:"created,omitempty"`
}

// ReferenceIDs returns the document's entity references of the given kind.
// Single-valued kinds yield zero or one id.
func (d Document) ReferenceIDs(kind EntityKind) []int {
	switch kind {
	case KindTag:
		return d.TagIDs
	case KindCorrespondent:
		if d.CorrespondentID != nil {
			return []int{*d.CorrespondentID}
		}
	case KindDocumentType:
		if d.DocumentTypeID != nil {
			return []int{*d.DocumentTypeID}
		}
	}
	return nil
}

// DocumentRef is a document id plus its current references of one kind.
// The consolidation engine never owns documents; it only rewrites these
// reference sets through the store client.
type DocumentRef struct {
	ID           int   `json:"id"`
	ReferenceIDs []int `json:"reference_ids"`
}

// DocumentUpdate is a partial document mutation. Nil fields are untouched.
type DocumentUpdate struct {
	ID              int
	Title           *string
	TagIDs          []int // nil = unchanged, empty = clear
	CorrespondentID *int
	DocumentTypeID  *int
}

// Note is a free-text annotation attached to a document, used to persist
// generated summaries back to the store.
type Note struct {
	ID       int       `json:"id,omitempty"`
	Document int       `json:"document"`
	Note     string    `json:"note"`
	Created  time.Time `json:"created,omitempty"`
}
