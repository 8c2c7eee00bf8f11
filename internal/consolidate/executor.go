package consolidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/paperflow/internal/metrics"
	"github.com/raphaelgruber/paperflow/internal/models"
)

// DefaultUpdateWorkers bounds concurrent document rewrites per merge.
const DefaultUpdateWorkers = 4

// Store is the document-system surface the executor needs. Implementations
// must treat UpdateDocumentReferences as a full replacement of the
// document's references of that kind.
type Store interface {
	ListEntities(ctx context.Context, kind models.EntityKind) ([]models.NamedEntity, error)
	ListDocumentsReferencing(ctx context.Context, kind models.EntityKind, entityID int) ([]models.DocumentRef, error)
	UpdateDocumentReferences(ctx context.Context, documentID int, kind models.EntityKind, referenceIDs []int) error
	DeleteEntity(ctx context.Context, kind models.EntityKind, entityID int) error
}

// MergeDetail reports the outcome of merging one group.
type MergeDetail struct {
	Kind             models.EntityKind `json:"kind"`
	PrimaryID        int               `json:"primary_id"`
	PrimaryName      string            `json:"primary_name"`
	RetiredIDs       []int             `json:"retired_ids,omitempty"`
	KeptIDs          []int             `json:"kept_ids,omitempty"`
	DocumentsUpdated int               `json:"documents_updated"`
	Errors           []string          `json:"errors,omitempty"`
}

// Succeeded reports whether the merge completed with no failures.
func (d MergeDetail) Succeeded() bool { return len(d.Errors) == 0 }

// MergeReport aggregates a whole consolidation run.
type MergeReport struct {
	MergeCount int                         `json:"merge_count"`
	Details    []MergeDetail               `json:"details,omitempty"`
	Errors     []string                    `json:"errors,omitempty"`
	Stats      metrics.PerformanceSnapshot `json:"stats"`
}

// Executor applies merge plans against a store. Failures are collected, not
// propagated: a document that cannot be rewritten keeps its retiring entity
// alive so no reference is ever orphaned, and the rest of the run continues.
type Executor struct {
	store   Store
	logger  *slog.Logger
	workers int
}

// NewExecutor creates an executor. workers <= 0 selects
// DefaultUpdateWorkers.
func NewExecutor(store Store, logger *slog.Logger, workers int) *Executor {
	if workers <= 0 {
		workers = DefaultUpdateWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, logger: logger, workers: workers}
}

// Merge rewrites every document referencing a retiring entity to reference
// the primary instead, then deletes the retiring entities whose documents
// were all rewritten. Each affected document is written exactly once, even
// when it references several retiring entities.
func (e *Executor) Merge(ctx context.Context, plan models.MergePlan) MergeDetail {
	detail := MergeDetail{
		Kind:        plan.Kind,
		PrimaryID:   plan.Primary.ID,
		PrimaryName: plan.Primary.Name,
	}

	retiring := make(map[int]bool, len(plan.Retire))
	for _, entity := range plan.Retire {
		retiring[entity.ID] = true
	}

	// Collect affected documents keyed by document ID so an entity pair
	// sharing a document produces a single write.
	refsByDoc := make(map[int][]int)
	docsByEntity := make(map[int][]int)
	fetchFailed := make(map[int]bool)
	for _, entity := range plan.Retire {
		refs, err := e.store.ListDocumentsReferencing(ctx, plan.Kind, entity.ID)
		if err != nil {
			fetchFailed[entity.ID] = true
			detail.Errors = append(detail.Errors,
				fmt.Sprintf("list documents for %s %d: %v", plan.Kind, entity.ID, err))
			e.logger.Warn("skipping entity, document listing failed",
				"kind", plan.Kind, "entity_id", entity.ID, "error", err)
			continue
		}
		for _, ref := range refs {
			if _, ok := refsByDoc[ref.ID]; !ok {
				refsByDoc[ref.ID] = ref.ReferenceIDs
			}
			docsByEntity[entity.ID] = append(docsByEntity[entity.ID], ref.ID)
		}
	}

	var mu sync.Mutex
	failedDocs := make(map[int]bool)

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.workers)
	for docID, refs := range refsByDoc {
		grp.Go(func() error {
			rewritten := rewriteReferences(refs, retiring, plan.Primary.ID, plan.Kind)
			err := e.store.UpdateDocumentReferences(gctx, docID, plan.Kind, rewritten)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failedDocs[docID] = true
				detail.Errors = append(detail.Errors,
					fmt.Sprintf("update document %d: %v", docID, err))
				return nil // one failed document never aborts the merge
			}
			detail.DocumentsUpdated++
			return nil
		})
	}
	_ = grp.Wait()

	// Delete retiring entities only when every one of their documents was
	// rewritten. Anything less leaves the entity in place for a later run.
	for _, entity := range plan.Retire {
		if fetchFailed[entity.ID] {
			detail.KeptIDs = append(detail.KeptIDs, entity.ID)
			continue
		}
		kept := false
		for _, docID := range docsByEntity[entity.ID] {
			if failedDocs[docID] {
				kept = true
				break
			}
		}
		if kept {
			detail.KeptIDs = append(detail.KeptIDs, entity.ID)
			continue
		}
		if err := e.store.DeleteEntity(ctx, plan.Kind, entity.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
			detail.KeptIDs = append(detail.KeptIDs, entity.ID)
			detail.Errors = append(detail.Errors,
				fmt.Sprintf("delete %s %d: %v", plan.Kind, entity.ID, err))
			continue
		}
		detail.RetiredIDs = append(detail.RetiredIDs, entity.ID)
	}

	e.logger.Info("merge finished",
		"kind", plan.Kind,
		"primary_id", plan.Primary.ID,
		"documents_updated", detail.DocumentsUpdated,
		"retired", len(detail.RetiredIDs),
		"kept", len(detail.KeptIDs),
		"errors", len(detail.Errors))
	return detail
}

// MergeAll runs every plan and aggregates the outcomes. It never fails; a
// broken group contributes errors to the report and the run moves on.
func (e *Executor) MergeAll(ctx context.Context, plans []models.MergePlan) *MergeReport {
	report := &MergeReport{}
	for _, plan := range plans {
		if len(plan.Retire) == 0 {
			continue
		}
		detail := e.Merge(ctx, plan)
		report.Details = append(report.Details, detail)
		if detail.Succeeded() {
			report.MergeCount++
		} else {
			report.Errors = append(report.Errors, detail.Errors...)
		}
	}
	return report
}

// rewriteReferences replaces retiring IDs with the primary while preserving
// the order of unrelated references. Multi-valued kinds keep their full list
// with the primary appearing once; single-valued kinds collapse to just the
// primary.
func rewriteReferences(refs []int, retiring map[int]bool, primaryID int, kind models.EntityKind) []int {
	if !kind.MultiValued() {
		return []int{primaryID}
	}

	out := make([]int, 0, len(refs))
	hasPrimary := false
	for _, id := range refs {
		if id == primaryID {
			hasPrimary = true
		}
		if retiring[id] {
			continue
		}
		out = append(out, id)
	}
	if !hasPrimary {
		out = append(out, primaryID)
	}
	return out
}
