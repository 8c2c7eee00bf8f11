package suggest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/raphaelgruber/paperflow/internal/history"
	"github.com/raphaelgruber/paperflow/internal/models"
)

// SuggestMetadata proposes tags, correspondent, document type and a title
// for each selected document, applying them when opts.Apply is set. Existing
// entity names are offered to the model; names it invents anyway are created
// once and reused across the run.
func (s *Service) SuggestMetadata(ctx context.Context, opts RunOptions) (*Report, error) {
	docs, err := s.loadDocuments(ctx, history.TaskMetadata, opts)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	tags, err := newResolver(ctx, s.store, models.KindTag)
	if err != nil {
		return nil, err
	}
	correspondents, err := newResolver(ctx, s.store, models.KindCorrespondent)
	if err != nil {
		return nil, err
	}
	docTypes, err := newResolver(ctx, s.store, models.KindDocumentType)
	if err != nil {
		return nil, err
	}

	report := s.runDocuments(ctx, docs, opts, func(ctx context.Context, doc models.Document) (DocumentResult, error) {
		result := DocumentResult{DocumentID: doc.ID, Title: doc.Title}

		suggestion, err := s.model.SuggestMetadata(ctx, doc.Title, doc.Content,
			tags.names(), correspondents.names(), docTypes.names())
		if err != nil {
			return result, fatalOrRecord(err, &result)
		}
		result.Suggestion = &suggestion

		if !opts.Apply {
			return result, nil
		}

		update := models.DocumentUpdate{ID: doc.ID}
		if title := strings.TrimSpace(suggestion.Title); title != "" && title != doc.Title {
			update.Title = &title
		}
		if len(suggestion.Tags) > 0 {
			tagIDs, err := tags.resolveAll(ctx, suggestion.Tags)
			if err != nil {
				return result, fatalOrRecord(err, &result)
			}
			update.TagIDs = mergeIDs(doc.TagIDs, tagIDs)
		}
		if name := strings.TrimSpace(suggestion.Correspondent); name != "" && doc.CorrespondentID == nil {
			id, err := correspondents.resolve(ctx, name)
			if err != nil {
				return result, fatalOrRecord(err, &result)
			}
			update.CorrespondentID = &id
		}
		if name := strings.TrimSpace(suggestion.DocumentType); name != "" && doc.DocumentTypeID == nil {
			id, err := docTypes.resolve(ctx, name)
			if err != nil {
				return result, fatalOrRecord(err, &result)
			}
			update.DocumentTypeID = &id
		}

		if err := s.store.UpdateDocument(ctx, update); err != nil {
			return result, fatalOrRecord(err, &result)
		}
		result.Applied = true

		if err := s.history.MarkProcessed(ctx, doc.ID, history.TaskMetadata, s.model.Model()); err != nil {
			s.logger.Warn("failed to mark document processed", "document_id", doc.ID, "error", err)
		}
		return result, nil
	})

	s.logger.Info("metadata run finished",
		"total", report.Total, "processed", report.Processed, "failed", report.Failed, "apply", opts.Apply)
	return report, nil
}

// mergeIDs unions existing and suggested ids, preserving existing order.
// Suggested metadata adds to a document, it never strips what a human set.
func mergeIDs(existing, suggested []int) []int {
	out := append([]int(nil), existing...)
	seen := make(map[int]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range suggested {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// resolver maps entity names to ids, creating missing entities on demand.
// Lookups are case-insensitive so the model's casing doesn't spawn
// duplicates of existing entities.
type resolver struct {
	store DocumentStore
	kind  models.EntityKind

	mu      sync.Mutex
	byName  map[string]int
	ordered []string
}

func newResolver(ctx context.Context, store DocumentStore, kind models.EntityKind) (*resolver, error) {
	entities, err := store.ListEntities(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s entities: %w", kind, err)
	}
	r := &resolver{
		store:  store,
		kind:   kind,
		byName: make(map[string]int, len(entities)),
	}
	for _, e := range entities {
		r.byName[strings.ToLower(e.Name)] = e.ID
		r.ordered = append(r.ordered, e.Name)
	}
	return r, nil
}

// names returns a snapshot of all known entity names.
func (r *resolver) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ordered...)
}

// resolve returns the id for a name, creating the entity if it is new.
func (r *resolver) resolve(ctx context.Context, name string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	r.mu.Lock()
	if id, ok := r.byName[key]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	created, err := r.store.CreateEntity(ctx, r.kind, strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("create %s %q: %w", r.kind, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byName[key]; ok {
		// Lost a creation race; the store may now hold a duplicate, which a
		// later consolidation run will fold in.
		return id, nil
	}
	r.byName[key] = created.ID
	r.ordered = append(r.ordered, created.Name)
	return created.ID, nil
}

func (r *resolver) resolveAll(ctx context.Context, names []string) ([]int, error) {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, err := r.resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
