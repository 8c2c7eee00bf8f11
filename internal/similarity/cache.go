package similarity

import "sync"

// StatsRecorder receives scoring events for performance tracking.
type StatsRecorder interface {
	RecordComparison()
	RecordCacheLookup(hit bool)
}

// CachedScorer memoizes another scorer behind an order-independent key, so
// Score(a,b) and Score(b,a) share one cache slot. The cache is scoped to a
// single consolidation run; create a fresh CachedScorer per run.
type CachedScorer struct {
	scorer Scorer
	stats  StatsRecorder

	mu    sync.Mutex
	cache map[string]float64
}

// NewCachedScorer wraps scorer with a run-scoped memo cache. stats may be
// nil when no performance tracking is wanted.
func NewCachedScorer(scorer Scorer, stats StatsRecorder) *CachedScorer {
	return &CachedScorer{
		scorer: scorer,
		stats:  stats,
		cache:  make(map[string]float64),
	}
}

// cacheKey builds an order-independent key for a string pair. The NUL
// separator cannot occur in entity names, so keys are unambiguous.
func cacheKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// Score returns the memoized similarity of a and b.
func (c *CachedScorer) Score(a, b string) float64 {
	key := cacheKey(a, b)

	c.mu.Lock()
	score, hit := c.cache[key]
	c.mu.Unlock()

	if c.stats != nil {
		c.stats.RecordCacheLookup(hit)
	}
	if hit {
		return score
	}

	if c.stats != nil {
		c.stats.RecordComparison()
	}
	score = c.scorer.Score(a, b)

	c.mu.Lock()
	c.cache[key] = score
	c.mu.Unlock()

	return score
}

// Name returns the underlying scorer's name.
func (c *CachedScorer) Name() string { return c.scorer.Name() }

// Size returns the number of distinct pairs cached so far.
func (c *CachedScorer) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
