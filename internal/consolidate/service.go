package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/paperflow/internal/metrics"
	"github.com/raphaelgruber/paperflow/internal/models"
	"github.com/raphaelgruber/paperflow/internal/similarity"
)

// Options configures a Service.
type Options struct {
	// Scorer picks the similarity algorithm for the exhaustive path.
	// Defaults to the Dice bigram scorer; the approximate path always
	// verifies candidates by edit distance.
	Scorer similarity.Scorer

	// BatchSize for the approximate grouping path. Defaults to
	// DefaultBatchSize.
	BatchSize int

	// UpdateWorkers bounds concurrent document rewrites. Defaults to
	// DefaultUpdateWorkers.
	UpdateWorkers int

	// Collector receives operation timings when set.
	Collector *metrics.Collector

	Logger *slog.Logger
}

// Service wires grouping, planning and execution into the two operations
// callers use: find similar entities, or find and merge them.
type Service struct {
	store     Store
	scorer    similarity.Scorer
	batchSize int
	workers   int
	collector *metrics.Collector
	logger    *slog.Logger

	mu           sync.Mutex
	lastRun      *RunContext
	lastEntities int
}

// NewService creates a consolidation service over a store.
func NewService(store Store, opts Options) *Service {
	if opts.Scorer == nil {
		opts.Scorer = similarity.NewDiceScorer()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:     store,
		scorer:    opts.Scorer,
		batchSize: opts.BatchSize,
		workers:   opts.UpdateWorkers,
		collector: opts.Collector,
		logger:    opts.Logger,
	}
}

// FindSimilar lists entities of the given kind and clusters near-duplicate
// names. It performs no writes.
func (s *Service) FindSimilar(ctx context.Context, kind models.EntityKind, threshold float64, useApproximate bool) ([]models.SimilarityGroup, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	run := NewRunContext(s.scorer)
	s.mu.Lock()
	s.lastRun = run
	s.lastEntities = 0
	s.mu.Unlock()

	run.Monitor.Start()
	defer run.Monitor.Stop()

	start := time.Now()
	entities, err := s.store.ListEntities(ctx, kind)
	if s.collector != nil {
		s.collector.RecordTiming(metrics.OpStoreList, time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s entities: %w", kind, err)
	}
	s.mu.Lock()
	s.lastEntities = len(entities)
	s.mu.Unlock()

	start = time.Now()
	groups, err := NewGrouper(run).Group(kind, entities, GroupOptions{
		Threshold:      threshold,
		UseApproximate: useApproximate,
		BatchSize:      s.batchSize,
	})
	if s.collector != nil {
		s.collector.RecordTiming(metrics.OpGrouping, time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("group %s entities: %w", kind, err)
	}

	s.logger.Info("similarity grouping finished",
		"run_id", run.ID,
		"kind", kind,
		"entities", len(entities),
		"groups", len(groups),
		"threshold", threshold,
		"approximate", useApproximate)
	return groups, nil
}

// PlanAndMerge finds similar entities and merges every group. It never
// returns an error; everything that went wrong is in the report, so one
// broken group cannot hide the merges that did land.
func (s *Service) PlanAndMerge(ctx context.Context, kind models.EntityKind, threshold float64, useApproximate bool) *MergeReport {
	groups, err := s.FindSimilar(ctx, kind, threshold, useApproximate)
	if err != nil {
		return &MergeReport{
			Errors: []string{err.Error()},
			Stats:  s.Stats(),
		}
	}

	plans := make([]models.MergePlan, 0, len(groups))
	for _, group := range groups {
		if len(group.Entities) < 2 {
			continue
		}
		plans = append(plans, Plan(group))
	}

	report := NewExecutor(s.store, s.logger, s.workers).MergeAll(ctx, plans)
	report.Stats = s.Stats()
	return report
}

// LastRunID returns the id of the most recent run, or "" before any run.
func (s *Service) LastRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return ""
	}
	return s.lastRun.ID
}

// LastEntityCount returns how many entities the most recent run examined.
func (s *Service) LastEntityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEntities
}

// Stats returns the performance snapshot of the most recent run, or a zero
// snapshot when no run has happened yet.
func (s *Service) Stats() metrics.PerformanceSnapshot {
	s.mu.Lock()
	run := s.lastRun
	s.mu.Unlock()
	if run == nil {
		return metrics.PerformanceSnapshot{}
	}
	return run.Monitor.Snapshot()
}
