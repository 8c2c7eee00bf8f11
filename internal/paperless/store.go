package paperless

import (
	"context"
	"time"

	"github.com/raphaelgruber/paperflow/internal/metrics"
	"github.com/raphaelgruber/paperflow/internal/models"
)

// Store adapts the REST client to the consolidation executor's store
// contract and times each call through the metrics collector.
type Store struct {
	client    *Client
	collector *metrics.Collector
}

// NewStore wraps a client. collector may be nil.
func NewStore(client *Client, collector *metrics.Collector) *Store {
	return &Store{client: client, collector: collector}
}

func (s *Store) record(op string, start time.Time, err error) {
	if s.collector != nil {
		s.collector.RecordTiming(op, time.Since(start), err)
	}
}

// ListEntities returns all entities of a kind.
func (s *Store) ListEntities(ctx context.Context, kind models.EntityKind) ([]models.NamedEntity, error) {
	start := time.Now()
	entities, err := s.client.ListEntities(ctx, kind)
	s.record(metrics.OpStoreList, start, err)
	return entities, err
}

// CreateEntity creates an entity of a kind and returns it with its id.
func (s *Store) CreateEntity(ctx context.Context, kind models.EntityKind, name string) (models.NamedEntity, error) {
	start := time.Now()
	entity, err := s.client.CreateEntity(ctx, kind, name)
	s.record(metrics.OpStoreUpdate, start, err)
	return entity, err
}

// ListDocuments returns documents matching the filter.
func (s *Store) ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, error) {
	start := time.Now()
	docs, err := s.client.ListDocuments(ctx, filter)
	s.record(metrics.OpStoreList, start, err)
	return docs, err
}

// GetDocument fetches a single document.
func (s *Store) GetDocument(ctx context.Context, documentID int) (models.Document, error) {
	start := time.Now()
	doc, err := s.client.GetDocument(ctx, documentID)
	s.record(metrics.OpStoreList, start, err)
	return doc, err
}

// UpdateDocument applies a partial document update.
func (s *Store) UpdateDocument(ctx context.Context, update models.DocumentUpdate) error {
	start := time.Now()
	err := s.client.UpdateDocument(ctx, update)
	s.record(metrics.OpStoreUpdate, start, err)
	return err
}

// AddNote attaches a note to a document.
func (s *Store) AddNote(ctx context.Context, documentID int, note string) error {
	start := time.Now()
	err := s.client.AddNote(ctx, documentID, note)
	s.record(metrics.OpStoreUpdate, start, err)
	return err
}

// ListNotes returns the notes attached to a document.
func (s *Store) ListNotes(ctx context.Context, documentID int) ([]models.Note, error) {
	start := time.Now()
	notes, err := s.client.ListNotes(ctx, documentID)
	s.record(metrics.OpStoreList, start, err)
	return notes, err
}

// ListDocumentsReferencing returns the id and current reference set of every
// document carrying the given entity.
func (s *Store) ListDocumentsReferencing(ctx context.Context, kind models.EntityKind, entityID int) ([]models.DocumentRef, error) {
	start := time.Now()
	docs, err := s.client.ListDocuments(ctx, DocumentFilter{
		ReferencingKind: kind,
		ReferencingID:   entityID,
	})
	s.record(metrics.OpStoreList, start, err)
	if err != nil {
		return nil, err
	}

	refs := make([]models.DocumentRef, len(docs))
	for i, doc := range docs {
		refs[i] = models.DocumentRef{ID: doc.ID, ReferenceIDs: doc.ReferenceIDs(kind)}
	}
	return refs, nil
}

// UpdateDocumentReferences replaces a document's references of one kind.
func (s *Store) UpdateDocumentReferences(ctx context.Context, documentID int, kind models.EntityKind, referenceIDs []int) error {
	update := models.DocumentUpdate{ID: documentID}
	switch kind {
	case models.KindTag:
		if referenceIDs == nil {
			referenceIDs = []int{}
		}
		update.TagIDs = referenceIDs
	case models.KindCorrespondent:
		if len(referenceIDs) > 0 {
			update.CorrespondentID = &referenceIDs[0]
		}
	case models.KindDocumentType:
		if len(referenceIDs) > 0 {
			update.DocumentTypeID = &referenceIDs[0]
		}
	}

	start := time.Now()
	err := s.client.UpdateDocument(ctx, update)
	s.record(metrics.OpStoreUpdate, start, err)
	return err
}

// DeleteEntity removes an entity from the store.
func (s *Store) DeleteEntity(ctx context.Context, kind models.EntityKind, entityID int) error {
	start := time.Now()
	err := s.client.DeleteEntity(ctx, kind, entityID)
	s.record(metrics.OpStoreDelete, start, err)
	return err
}
