package similarity

import "testing"

func TestNgramMatcher_NearMatches(t *testing.T) {
	matcher := NewNgramMatcher()
	candidates := []string{"invoce", "receipt", "invoices", "statement", "invoice"}

	matches := matcher.NearMatches("invoice", candidates, 1)

	want := map[int]int{4: 0, 0: 1, 2: 1} // index -> distance
	if len(matches) != len(want) {
		t.Fatalf("got %d matches %v, want %d", len(matches), matches, len(want))
	}
	for _, m := range matches {
		if d, ok := want[m.Index]; !ok || d != m.Distance {
			t.Errorf("unexpected match %+v", m)
		}
	}

	// Exact match sorts first.
	if matches[0].Index != 4 || matches[0].Distance != 0 {
		t.Errorf("first match = %+v, want exact match at index 4", matches[0])
	}
}

func TestNgramMatcher_LengthPrefilter(t *testing.T) {
	matcher := NewNgramMatcher()
	// Shares bigrams but is far longer than the budget allows.
	matches := matcher.NearMatches("tax", []string{"tax return 2024 statement"}, 2)
	if len(matches) != 0 {
		t.Errorf("got %v, want no matches", matches)
	}
}

func TestNgramMatcher_ShortStrings(t *testing.T) {
	matcher := NewNgramMatcher()

	// Single-character candidates produce no bigrams but must still be
	// reachable within the distance budget.
	matches := matcher.NearMatches("a", []string{"b", "a", "ab"}, 1)
	found := make(map[int]bool)
	for _, m := range matches {
		found[m.Index] = true
	}
	for _, idx := range []int{0, 1, 2} {
		if !found[idx] {
			t.Errorf("candidate %d missing from matches %v", idx, matches)
		}
	}
}

func TestNgramMatcher_NegativeBudget(t *testing.T) {
	matcher := NewNgramMatcher()
	if got := matcher.NearMatches("x", []string{"x"}, -1); got != nil {
		t.Errorf("got %v, want nil for negative budget", got)
	}
}
