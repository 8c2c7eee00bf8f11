package similarity

import (
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Match is one approximate-match result: the candidate's index in the input
// slice and its edit distance from the query.
type Match struct {
	Index    int
	Distance int
}

// ApproximateMatcher finds candidates within an edit-distance budget of a
// query without scoring every pair. Implementations may miss matches an
// exhaustive scan would find; that is an accepted trade for sub-quadratic
// behavior on large entity sets.
type ApproximateMatcher interface {
	NearMatches(query string, candidates []string, maxDistance int) []Match
}

// NgramIndex is a bigram inverted index over a fixed candidate list.
// Build it once per candidate set and query it repeatedly; queries only pay
// for candidates that share at least one bigram with the query.
type NgramIndex struct {
	candidates []string
	lengths    []int
	grams      map[string][]int
	// Candidates too short to produce a bigram; checked on every query.
	short []int
}

// NewNgramIndex indexes the given candidates.
func NewNgramIndex(candidates []string) *NgramIndex {
	idx := &NgramIndex{
		candidates: candidates,
		lengths:    make([]int, len(candidates)),
		grams:      make(map[string][]int),
	}
	for i, cand := range candidates {
		idx.lengths[i] = utf8.RuneCountInString(cand)
		grams := bigrams(cand)
		if len(grams) == 0 {
			idx.short = append(idx.short, i)
			continue
		}
		for _, g := range grams {
			idx.grams[g] = append(idx.grams[g], i)
		}
	}
	return idx
}

// Query returns all candidates within maxDistance edits of query, sorted by
// distance then index.
func (x *NgramIndex) Query(query string, maxDistance int) []Match {
	if maxDistance < 0 || len(x.candidates) == 0 {
		return nil
	}

	queryLen := utf8.RuneCountInString(query)
	seen := make(map[int]bool)
	var matches []Match

	verify := func(i int) {
		if seen[i] {
			return
		}
		seen[i] = true
		diff := x.lengths[i] - queryLen
		if diff < 0 {
			diff = -diff
		}
		// Length difference is a lower bound on edit distance.
		if diff > maxDistance {
			return
		}
		if d := levenshtein.ComputeDistance(query, x.candidates[i]); d <= maxDistance {
			matches = append(matches, Match{Index: i, Distance: d})
		}
	}

	queryGrams := bigrams(query)
	for _, g := range queryGrams {
		for _, i := range x.grams[g] {
			verify(i)
		}
	}
	for _, i := range x.short {
		verify(i)
	}
	// A query with no bigrams shares nothing with the index; fall back to
	// verifying everything so one-letter names can still match.
	if len(queryGrams) == 0 {
		for i := range x.candidates {
			verify(i)
		}
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Distance != matches[b].Distance {
			return matches[a].Distance < matches[b].Distance
		}
		return matches[a].Index < matches[b].Index
	})
	return matches
}

func bigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	grams := make([]string, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		grams = append(grams, string(runes[i:i+2]))
	}
	return grams
}

// ngramMatcher is the one-shot convenience form: it builds a throwaway index
// per call. Callers with a stable candidate set should hold an NgramIndex.
type ngramMatcher struct{}

// NewNgramMatcher returns the bigram-index approximate matcher.
func NewNgramMatcher() ApproximateMatcher {
	return ngramMatcher{}
}

func (ngramMatcher) NearMatches(query string, candidates []string, maxDistance int) []Match {
	if len(candidates) == 0 {
		return nil
	}
	return NewNgramIndex(candidates).Query(query, maxDistance)
}
