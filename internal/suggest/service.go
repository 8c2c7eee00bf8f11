// Package suggest runs the LLM-backed enrichment pipelines: proposing and
// applying document metadata, and writing summary notes.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/paperflow/internal/history"
	"github.com/raphaelgruber/paperflow/internal/llm"
	"github.com/raphaelgruber/paperflow/internal/models"
	"github.com/raphaelgruber/paperflow/internal/paperless"
)

// DefaultWorkers bounds concurrent documents in flight. LLM latency
// dominates, so a small pool is enough.
const DefaultWorkers = 2

// DocumentStore is the document-system surface the pipelines need.
type DocumentStore interface {
	ListDocuments(ctx context.Context, filter paperless.DocumentFilter) ([]models.Document, error)
	GetDocument(ctx context.Context, documentID int) (models.Document, error)
	ListEntities(ctx context.Context, kind models.EntityKind) ([]models.NamedEntity, error)
	CreateEntity(ctx context.Context, kind models.EntityKind, name string) (models.NamedEntity, error)
	UpdateDocument(ctx context.Context, update models.DocumentUpdate) error
	AddNote(ctx context.Context, documentID int, note string) error
	ListNotes(ctx context.Context, documentID int) ([]models.Note, error)
}

// Generator is the LLM surface.
type Generator interface {
	SuggestMetadata(ctx context.Context, title, content string, existingTags, existingCorrespondents, existingTypes []string) (llm.Suggestion, error)
	Summarize(ctx context.Context, title, content string) (string, error)
	Model() string
}

// History records which documents were already handled. A nil-backed
// implementation filters nothing and records nothing.
type History interface {
	MarkProcessed(ctx context.Context, documentID int, task, model string) error
	FilterUnprocessed(ctx context.Context, task string, documentIDs []int) ([]int, error)
}

// Options configures a Service.
type Options struct {
	Workers int
	History History
	Logger  *slog.Logger
}

// Service drives the enrichment pipelines.
type Service struct {
	store   DocumentStore
	model   Generator
	history History
	logger  *slog.Logger
	workers int
}

// NewService creates a suggestion service.
func NewService(store DocumentStore, model Generator, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.History == nil {
		opts.History = (*history.Store)(nil)
	}
	return &Service{
		store:   store,
		model:   model,
		history: opts.History,
		logger:  opts.Logger,
		workers: opts.Workers,
	}
}

// RunOptions selects documents and controls application of results.
type RunOptions struct {
	// DocumentIDs limits the run; empty means every document.
	DocumentIDs []int

	// Apply writes results back to the store. Without it the run only
	// reports what it would do.
	Apply bool

	// Reprocess includes documents the history already marks as handled.
	Reprocess bool

	// OnProgress, when set, is called after each document with (done, total).
	OnProgress func(done, total int)
}

// DocumentResult is the per-document outcome of a pipeline run.
type DocumentResult struct {
	DocumentID int             `json:"document_id"`
	Title      string          `json:"title"`
	Suggestion *llm.Suggestion `json:"suggestion,omitempty"`
	Summary    string          `json:"summary,omitempty"`
	Applied    bool            `json:"applied"`
	Error      string          `json:"error,omitempty"`
}

// Report aggregates a pipeline run.
type Report struct {
	Total     int              `json:"total"`
	Processed int              `json:"processed"`
	Failed    int              `json:"failed"`
	Results   []DocumentResult `json:"results,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
}

// loadDocuments resolves the run's working set: the requested documents (or
// all), minus those the history already marks for the task.
func (s *Service) loadDocuments(ctx context.Context, task string, opts RunOptions) ([]models.Document, error) {
	var docs []models.Document
	if len(opts.DocumentIDs) > 0 {
		for _, id := range opts.DocumentIDs {
			doc, err := s.store.GetDocument(ctx, id)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	} else {
		var err error
		if docs, err = s.store.ListDocuments(ctx, paperless.DocumentFilter{}); err != nil {
			return nil, err
		}
	}

	if opts.Reprocess {
		return docs, nil
	}

	ids := make([]int, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	keep, err := s.history.FilterUnprocessed(ctx, task, ids)
	if err != nil {
		// History is an optimization, not a gate.
		s.logger.Warn("history lookup failed, processing all documents", "error", err)
		return docs, nil
	}

	keepSet := make(map[int]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	filtered := docs[:0:0]
	for _, doc := range docs {
		if keepSet[doc.ID] {
			filtered = append(filtered, doc)
		}
	}
	return filtered, nil
}

// runDocuments fans documents out to the worker pool. process handles one
// document; a non-nil second return means a fatal provider error that
// cancels the remaining documents. Everything else is recorded per document
// and the run continues.
func (s *Service) runDocuments(ctx context.Context, docs []models.Document, opts RunOptions, process func(ctx context.Context, doc models.Document) (DocumentResult, error)) *Report {
	report := &Report{Total: len(docs)}
	if len(docs) == 0 {
		return report
	}

	var mu sync.Mutex
	done := 0

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(s.workers)
	for _, doc := range docs {
		grp.Go(func() error {
			// A fatal error elsewhere cancels whatever is still queued.
			if err := gctx.Err(); err != nil {
				return err
			}
			result, fatal := process(gctx, doc)

			mu.Lock()
			report.Results = append(report.Results, result)
			if result.Error == "" {
				report.Processed++
			} else {
				report.Failed++
				report.Errors = append(report.Errors,
					fmt.Sprintf("document %d: %s", result.DocumentID, result.Error))
			}
			done++
			if opts.OnProgress != nil {
				opts.OnProgress(done, len(docs))
			}
			mu.Unlock()

			return fatal
		})
	}
	if err := grp.Wait(); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("run aborted: %v", err))
	}
	return report
}

// fatalOrRecord classifies a per-document error: fatal provider errors abort
// the run, everything else stays on the document result.
func fatalOrRecord(err error, result *DocumentResult) error {
	result.Error = err.Error()
	if errors.Is(err, llm.ErrFatalAPI) {
		return err
	}
	return nil
}
