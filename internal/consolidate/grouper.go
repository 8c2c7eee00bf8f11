package consolidate

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/raphaelgruber/paperflow/internal/models"
	"github.com/raphaelgruber/paperflow/internal/similarity"
)

const (
	// DefaultBatchSize bounds peak memory on the approximate path.
	DefaultBatchSize = 1000

	// approximateCutover is the entity count below which the exhaustive
	// pairwise scan is always used, even when approximation is requested.
	approximateCutover = 5000
)

// GroupOptions configures one grouping pass.
type GroupOptions struct {
	// Threshold is the minimum similarity in [0,1] for two names to be
	// considered the same concept. Out-of-range values are rejected.
	Threshold float64

	// UseApproximate selects the indexed matcher for large entity sets.
	UseApproximate bool

	// BatchSize overrides DefaultBatchSize on the approximate path.
	BatchSize int
}

// Grouper partitions entities into similarity clusters.
type Grouper struct {
	run *RunContext
}

// NewGrouper creates a grouper bound to a run context.
func NewGrouper(run *RunContext) *Grouper {
	return &Grouper{run: run}
}

// Group clusters entities whose lower-cased names score at or above the
// threshold. Membership is seed-based: an entity joins a group when it is
// similar enough to the group's first member, not to every member. Groups
// therefore depend on input order and are not a transitive partition; that
// mirrors the run-to-run behavior callers already rely on. Every returned
// group has at least two members and no entity appears in two groups.
func (g *Grouper) Group(kind models.EntityKind, entities []models.NamedEntity, opts GroupOptions) ([]models.SimilarityGroup, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, models.ErrInvalidThreshold
	}
	if len(entities) == 0 {
		return nil, nil
	}

	if opts.UseApproximate && len(entities) >= approximateCutover {
		batch := opts.BatchSize
		if batch <= 0 {
			batch = DefaultBatchSize
		}
		return g.groupApproximate(kind, entities, opts.Threshold, batch), nil
	}
	return g.groupExhaustive(kind, entities, opts.Threshold), nil
}

// groupExhaustive runs the O(n²) seed-based scan.
func (g *Grouper) groupExhaustive(kind models.EntityKind, entities []models.NamedEntity, threshold float64) []models.SimilarityGroup {
	n := len(entities)
	names := lowerNames(entities)
	processed := make([]bool, n)

	var groups []models.SimilarityGroup
	for i := 0; i < n; i++ {
		if processed[i] {
			continue
		}
		processed[i] = true

		members := []models.NamedEntity{entities[i]}
		for j := i + 1; j < n; j++ {
			if processed[j] {
				continue
			}
			if g.run.Scorer.Score(names[i], names[j]) >= threshold {
				processed[j] = true
				members = append(members, entities[j])
			}
		}

		if len(members) >= 2 {
			groups = append(groups, models.SimilarityGroup{Kind: kind, Entities: members})
		}
	}
	return groups
}

// groupApproximate processes entities in fixed-size batches. Each batch gets
// one bigram index; seeds query it for near matches instead of scoring every
// pair, so work and peak memory scale with batch size rather than total
// entity count. Matches across batch boundaries are missed; that is the
// accepted trade of the approximate path. No entity joins more than one
// group.
func (g *Grouper) groupApproximate(kind models.EntityKind, entities []models.NamedEntity, threshold float64, batchSize int) []models.SimilarityGroup {
	n := len(entities)
	names := lowerNames(entities)
	processed := make([]bool, n)

	var groups []models.SimilarityGroup
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		index := similarity.NewNgramIndex(names[start:end])

		for i := start; i < end; i++ {
			if processed[i] {
				continue
			}
			processed[i] = true
			seed := names[i]

			members := []models.NamedEntity{entities[i]}
			for _, m := range index.Query(seed, distanceBudget(seed, threshold)) {
				j := start + m.Index
				if j <= i || processed[j] {
					continue
				}
				g.run.Monitor.RecordComparison()
				if editSimilarity(seed, names[j], m.Distance) >= threshold {
					processed[j] = true
					members = append(members, entities[j])
				}
			}

			if len(members) >= 2 {
				groups = append(groups, models.SimilarityGroup{Kind: kind, Entities: members})
			}
		}
	}
	return groups
}

func lowerNames(entities []models.NamedEntity) []string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = strings.ToLower(e.Name)
	}
	return names
}

// distanceBudget converts a similarity threshold into a maximum edit
// distance for the query string.
func distanceBudget(query string, threshold float64) int {
	return int(math.Floor((1 - threshold) * float64(utf8.RuneCountInString(query))))
}

// editSimilarity converts an edit distance back to a normalized score.
func editSimilarity(a, b string, distance int) float64 {
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	return float64(maxLen-distance) / float64(maxLen)
}
