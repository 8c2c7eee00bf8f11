package consolidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/paperflow/internal/models"
)

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	mu       sync.Mutex
	entities map[models.EntityKind][]models.NamedEntity
	docs     map[int][]int // document id -> reference ids of the kind under test

	listEntitiesErr error
	listDocsErr     map[int]error // entity id -> error
	updateErr       map[int]error // document id -> error
	deleteErr       map[int]error // entity id -> error

	listEntityCalls int
	updateCalls     map[int]int // document id -> write count
	deleted         []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entities:    make(map[models.EntityKind][]models.NamedEntity),
		docs:        make(map[int][]int),
		listDocsErr: make(map[int]error),
		updateErr:   make(map[int]error),
		deleteErr:   make(map[int]error),
		updateCalls: make(map[int]int),
	}
}

func (s *fakeStore) ListEntities(_ context.Context, kind models.EntityKind) ([]models.NamedEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listEntityCalls++
	if s.listEntitiesErr != nil {
		return nil, s.listEntitiesErr
	}
	return s.entities[kind], nil
}

func (s *fakeStore) ListDocumentsReferencing(_ context.Context, _ models.EntityKind, entityID int) ([]models.DocumentRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.listDocsErr[entityID]; err != nil {
		return nil, err
	}
	var refs []models.DocumentRef
	for docID, ids := range s.docs {
		for _, id := range ids {
			if id == entityID {
				refs = append(refs, models.DocumentRef{ID: docID, ReferenceIDs: append([]int(nil), ids...)})
				break
			}
		}
	}
	return refs, nil
}

func (s *fakeStore) UpdateDocumentReferences(_ context.Context, documentID int, _ models.EntityKind, referenceIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls[documentID]++
	if err := s.updateErr[documentID]; err != nil {
		return err
	}
	s.docs[documentID] = append([]int(nil), referenceIDs...)
	return nil
}

func (s *fakeStore) DeleteEntity(_ context.Context, kind models.EntityKind, entityID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErr[entityID]; err != nil {
		return err
	}
	kept := s.entities[kind][:0:0]
	found := false
	for _, e := range s.entities[kind] {
		if e.ID == entityID {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return models.ErrNotFound
	}
	s.entities[kind] = kept
	s.deleted = append(s.deleted, entityID)
	return nil
}

func tagPlan() models.MergePlan {
	return models.MergePlan{
		Kind:    models.KindTag,
		Primary: models.NamedEntity{ID: 1, Name: "invoice", DocumentCount: 10},
		Retire: []models.NamedEntity{
			{ID: 2, Name: "invoce", DocumentCount: 3},
			{ID: 3, Name: "invoices", DocumentCount: 1},
		},
	}
}

func TestExecutor_Merge_OneWritePerDocument(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindTag] = []models.NamedEntity{
		{ID: 1, Name: "invoice"}, {ID: 2, Name: "invoce"}, {ID: 3, Name: "invoices"}, {ID: 7, Name: "tax"},
	}
	store.docs[100] = []int{2, 3, 7} // references both retiring tags
	store.docs[101] = []int{2}
	store.docs[102] = []int{3, 1} // already carries the primary

	detail := NewExecutor(store, slog.Default(), 2).Merge(context.Background(), tagPlan())

	require.True(t, detail.Succeeded(), "errors: %v", detail.Errors)
	assert.Equal(t, 3, detail.DocumentsUpdated)
	assert.ElementsMatch(t, []int{2, 3}, detail.RetiredIDs)
	assert.Empty(t, detail.KeptIDs)

	// One write per affected document even when it referenced two retiring
	// entities.
	for _, docID := range []int{100, 101, 102} {
		assert.Equal(t, 1, store.updateCalls[docID], "doc %d write count", docID)
	}

	assert.Equal(t, []int{7, 1}, store.docs[100], "unrelated refs keep their order, primary appended")
	assert.Equal(t, []int{1}, store.docs[101])
	assert.Equal(t, []int{1}, store.docs[102], "primary not duplicated")
	assert.ElementsMatch(t, []int{2, 3}, store.deleted)
}

func TestExecutor_Merge_SingleValuedKind(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindCorrespondent] = []models.NamedEntity{
		{ID: 1, Name: "acme corp"}, {ID: 2, Name: "acme corp."},
	}
	store.docs[200] = []int{2}

	plan := models.MergePlan{
		Kind:    models.KindCorrespondent,
		Primary: models.NamedEntity{ID: 1, Name: "acme corp"},
		Retire:  []models.NamedEntity{{ID: 2, Name: "acme corp."}},
	}
	detail := NewExecutor(store, slog.Default(), 1).Merge(context.Background(), plan)

	require.True(t, detail.Succeeded(), "errors: %v", detail.Errors)
	assert.Equal(t, []int{1}, store.docs[200], "single slot collapses to the primary")
	assert.Equal(t, []int{2}, store.deleted)
}

func TestExecutor_Merge_FailedDocumentKeepsEntity(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindTag] = []models.NamedEntity{
		{ID: 1, Name: "invoice"}, {ID: 2, Name: "invoce"}, {ID: 3, Name: "invoices"},
	}
	store.docs[100] = []int{2}
	store.docs[101] = []int{3}
	store.updateErr[100] = fmt.Errorf("503 service unavailable")

	detail := NewExecutor(store, slog.Default(), 1).Merge(context.Background(), tagPlan())

	assert.False(t, detail.Succeeded())
	assert.Equal(t, 1, detail.DocumentsUpdated)
	assert.Equal(t, []int{2}, detail.KeptIDs, "entity with a live reference survives")
	assert.Equal(t, []int{3}, detail.RetiredIDs)
	assert.Equal(t, []int{3}, store.deleted)
	assert.Len(t, detail.Errors, 1)
}

func TestExecutor_Merge_ListFailureSkipsEntity(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindTag] = []models.NamedEntity{
		{ID: 1, Name: "invoice"}, {ID: 2, Name: "invoce"}, {ID: 3, Name: "invoices"},
	}
	store.docs[101] = []int{3}
	store.listDocsErr[2] = fmt.Errorf("timeout")

	detail := NewExecutor(store, slog.Default(), 1).Merge(context.Background(), tagPlan())

	assert.False(t, detail.Succeeded())
	assert.Equal(t, []int{2}, detail.KeptIDs)
	assert.Equal(t, []int{3}, detail.RetiredIDs)
}

func TestExecutor_Merge_DeleteNotFoundTolerated(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindTag] = []models.NamedEntity{{ID: 1, Name: "invoice"}}
	// Entity 2 and 3 no longer exist; a previous partial run already removed
	// them. DeleteEntity will report not-found.

	detail := NewExecutor(store, slog.Default(), 1).Merge(context.Background(), tagPlan())

	require.True(t, detail.Succeeded(), "errors: %v", detail.Errors)
	assert.ElementsMatch(t, []int{2, 3}, detail.RetiredIDs)
}

func TestExecutor_Merge_Idempotent(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindTag] = []models.NamedEntity{
		{ID: 1, Name: "invoice"}, {ID: 2, Name: "invoce"}, {ID: 3, Name: "invoices"},
	}
	store.docs[100] = []int{2, 3}

	exec := NewExecutor(store, slog.Default(), 1)
	first := exec.Merge(context.Background(), tagPlan())
	require.True(t, first.Succeeded(), "errors: %v", first.Errors)

	second := exec.Merge(context.Background(), tagPlan())
	require.True(t, second.Succeeded(), "rerun must converge, errors: %v", second.Errors)
	assert.Equal(t, 0, second.DocumentsUpdated)
	assert.Equal(t, []int{1}, store.docs[100])
}

func TestExecutor_MergeAll(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindTag] = []models.NamedEntity{
		{ID: 1, Name: "invoice"}, {ID: 2, Name: "invoce"},
		{ID: 4, Name: "receipt"}, {ID: 5, Name: "reciept"},
	}
	store.docs[100] = []int{2}
	store.docs[101] = []int{5}
	store.updateErr[101] = errors.New("409 conflict")

	plans := []models.MergePlan{
		{
			Kind:    models.KindTag,
			Primary: models.NamedEntity{ID: 1, Name: "invoice"},
			Retire:  []models.NamedEntity{{ID: 2, Name: "invoce"}},
		},
		{
			Kind:    models.KindTag,
			Primary: models.NamedEntity{ID: 4, Name: "receipt"},
			Retire:  []models.NamedEntity{{ID: 5, Name: "reciept"}},
		},
		{Kind: models.KindTag, Primary: models.NamedEntity{ID: 9}}, // nothing to retire
	}

	report := NewExecutor(store, slog.Default(), 2).MergeAll(context.Background(), plans)

	assert.Equal(t, 1, report.MergeCount, "only the clean merge counts")
	assert.Len(t, report.Details, 2, "empty plans are skipped")
	assert.NotEmpty(t, report.Errors)
	assert.Equal(t, []int{2}, store.deleted)
}
