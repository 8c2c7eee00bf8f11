package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
)

// Processing tasks recorded per document.
const (
	TaskMetadata = "metadata"
	TaskSummary  = "summary"
)

// ErrAlreadyRecorded indicates the record violates a unique index: the
// document/task pair was already marked.
var ErrAlreadyRecorded = errors.New("already recorded")

// Run is one consolidation run's outcome.
type Run struct {
	RunID          string    `json:"run_id"`
	Kind           string    `json:"kind"`
	Threshold      float64   `json:"threshold"`
	Approximate    bool      `json:"approximate"`
	DryRun         bool      `json:"dry_run"`
	EntityCount    int       `json:"entity_count"`
	GroupCount     int       `json:"group_count"`
	MergeCount     int       `json:"merge_count"`
	Errors         []string  `json:"errors"`
	Comparisons    int       `json:"comparisons"`
	CacheHitRate   float64   `json:"cache_hit_rate"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Started        time.Time `json:"started"`
}

// RecordRun stores one run. No-op on a nil store.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if s == nil {
		return nil
	}
	if run.Started.IsZero() {
		run.Started = time.Now()
	}
	if run.Errors == nil {
		run.Errors = []string{}
	}
	_, err := surrealdb.Query[any](ctx, s.db,
		"CREATE consolidation_run CONTENT $content", map[string]any{"content": run})
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs first. Nil store returns nothing.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	results, err := surrealdb.Query[[]Run](ctx, s.db,
		"SELECT * FROM consolidation_run ORDER BY started DESC LIMIT $limit",
		map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return nil, nil
}

// MarkProcessed records that a pipeline handled a document. Marking the same
// document/task twice is a no-op. Nil store ignores the call.
func (s *Store) MarkProcessed(ctx context.Context, documentID int, task, model string) error {
	if s == nil {
		return nil
	}
	_, err := surrealdb.Query[any](ctx, s.db,
		"CREATE processed_document CONTENT $content", map[string]any{
			"content": map[string]any{
				"document_id": documentID,
				"task":        task,
				"model":       model,
			},
		})
	if err := wrapQueryError(err); err != nil {
		if errors.Is(err, ErrAlreadyRecorded) {
			return nil
		}
		return fmt.Errorf("mark document %d processed: %w", documentID, err)
	}
	return nil
}

// FilterUnprocessed returns the subset of documentIDs with no processing
// mark for the task, preserving input order. A nil store filters nothing.
func (s *Store) FilterUnprocessed(ctx context.Context, task string, documentIDs []int) ([]int, error) {
	if s == nil || len(documentIDs) == 0 {
		return documentIDs, nil
	}

	type row struct {
		DocumentID int `json:"document_id"`
	}
	results, err := surrealdb.Query[[]row](ctx, s.db,
		"SELECT document_id FROM processed_document WHERE task = $task AND document_id IN $ids",
		map[string]any{"task": task, "ids": documentIDs})
	if err != nil {
		return nil, fmt.Errorf("filter processed documents: %w", err)
	}

	done := make(map[int]bool)
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			done[r.DocumentID] = true
		}
	}

	var unprocessed []int
	for _, id := range documentIDs {
		if !done[id] {
			unprocessed = append(unprocessed, id)
		}
	}
	return unprocessed, nil
}

// wrapQueryError maps known SurrealDB query failures onto sentinel errors.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}
	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		if strings.Contains(queryErr.Message, "already contains") ||
			strings.Contains(queryErr.Message, "already exists") {
			return fmt.Errorf("%w: %s", ErrAlreadyRecorded, queryErr.Message)
		}
	}
	return err
}
