package similarity

import (
	"math"
	"testing"
)

func TestScorers_SymmetryAndIdentity(t *testing.T) {
	pairs := [][2]string{
		{"invoice", "invoce"},
		{"Receipt", "receipt"},
		{"acme corp", "acme corporation"},
		{"", "invoice"},
		{"a", "b"},
		{"", ""},
	}

	for _, scorer := range []Scorer{NewLevenshteinScorer(), NewDiceScorer()} {
		for _, p := range pairs {
			ab := scorer.Score(p[0], p[1])
			ba := scorer.Score(p[1], p[0])
			if ab != ba {
				t.Errorf("%s: Score(%q,%q)=%v but Score(%q,%q)=%v",
					scorer.Name(), p[0], p[1], ab, p[1], p[0], ba)
			}
			if ab < 0 || ab > 1 {
				t.Errorf("%s: Score(%q,%q)=%v outside [0,1]", scorer.Name(), p[0], p[1], ab)
			}
		}

		for _, s := range []string{"", "x", "invoice", "a longer entity name"} {
			if got := scorer.Score(s, s); got != 1.0 {
				t.Errorf("%s: Score(%q,%q)=%v, want 1.0", scorer.Name(), s, s, got)
			}
		}
	}
}

func TestLevenshteinScorer_KnownDistances(t *testing.T) {
	scorer := NewLevenshteinScorer()

	tests := []struct {
		a, b string
		want float64
	}{
		{"invoice", "invoice", 1.0},
		{"invoice", "invoce", 6.0 / 7.0},  // one deletion, maxLen 7
		{"kitten", "sitting", 4.0 / 7.0},  // classic distance 3, maxLen 7
		{"", "abc", 0.0},                  // distance = length of the other
		{"abc", "", 0.0},
		{"", "", 1.0},
	}

	for _, tt := range tests {
		got := scorer.Score(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Score(%q,%q)=%v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDiceScorer_Bigrams(t *testing.T) {
	scorer := NewDiceScorer()

	// "night" and "nacht": bigrams {ni,ig,gh,ht} vs {na,ac,ch,ht}; one shared.
	got := scorer.Score("night", "nacht")
	if math.Abs(got-0.25) > 1e-9 {
		t.Errorf("Score(night,nacht)=%v, want 0.25", got)
	}

	// Single-character strings have no bigrams; only exact matches score.
	if got := scorer.Score("a", "b"); got != 0.0 {
		t.Errorf("Score(a,b)=%v, want 0", got)
	}
	if got := scorer.Score("a", "a"); got != 1.0 {
		t.Errorf("Score(a,a)=%v, want 1", got)
	}
}

// fakeStats counts recorder callbacks for cache verification.
type fakeStats struct {
	comparisons int
	attempts    int
	hits        int
}

func (f *fakeStats) RecordComparison()          { f.comparisons++ }
func (f *fakeStats) RecordCacheLookup(hit bool) {
	f.attempts++
	if hit {
		f.hits++
	}
}

func TestCachedScorer_Counters(t *testing.T) {
	stats := &fakeStats{}
	cached := NewCachedScorer(NewLevenshteinScorer(), stats)

	// 6 calls over 3 distinct unordered pairs: attempts == calls,
	// hits == calls - distinct pairs.
	calls := [][2]string{
		{"invoice", "invoce"},
		{"invoce", "invoice"}, // reversed pair hits the same slot
		{"invoice", "receipt"},
		{"invoice", "invoce"},
		{"receipt", "invoice"},
		{"alpha", "beta"},
	}
	for _, c := range calls {
		cached.Score(c[0], c[1])
	}

	if stats.attempts != 6 {
		t.Errorf("attempts = %d, want 6", stats.attempts)
	}
	if stats.hits != 3 {
		t.Errorf("hits = %d, want 3", stats.hits)
	}
	if stats.comparisons != 3 {
		t.Errorf("comparisons = %d, want 3", stats.comparisons)
	}
	if cached.Size() != 3 {
		t.Errorf("cache size = %d, want 3", cached.Size())
	}
}

func TestCachedScorer_SameValueBothDirections(t *testing.T) {
	cached := NewCachedScorer(NewDiceScorer(), nil)
	ab := cached.Score("acme corp", "acme corporation")
	ba := cached.Score("acme corporation", "acme corp")
	if ab != ba {
		t.Errorf("cached scores differ across argument order: %v vs %v", ab, ba)
	}
	if cached.Size() != 1 {
		t.Errorf("cache size = %d, want 1", cached.Size())
	}
}
