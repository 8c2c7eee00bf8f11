// Package consolidate implements fuzzy metadata consolidation: grouping
// near-duplicate tags, correspondents and document types and merging each
// group into one surviving entity.
package consolidate

import (
	"github.com/google/uuid"
	"github.com/raphaelgruber/paperflow/internal/metrics"
	"github.com/raphaelgruber/paperflow/internal/similarity"
)

// RunContext carries the per-run state of one consolidation pass: the
// memoizing scorer and the performance monitor it reports into. Creating a
// fresh context per run keeps concurrent runs from sharing cache or
// counters.
type RunContext struct {
	ID      string
	Scorer  *similarity.CachedScorer
	Monitor *metrics.PerformanceMonitor
}

// NewRunContext creates a run context around the given scorer.
func NewRunContext(scorer similarity.Scorer) *RunContext {
	monitor := metrics.NewPerformanceMonitor()
	return &RunContext{
		ID:      uuid.New().String()[:8],
		Scorer:  similarity.NewCachedScorer(scorer, monitor),
		Monitor: monitor,
	}
}
