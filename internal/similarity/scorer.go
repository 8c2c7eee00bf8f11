// Package similarity provides string-similarity scoring for entity names.
package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Scorer computes a similarity score in [0,1] for two strings.
// Implementations must be symmetric and score identical strings as 1.
type Scorer interface {
	Score(a, b string) float64
	Name() string
}

// levenshteinScorer scores by normalized edit distance.
type levenshteinScorer struct{}

// NewLevenshteinScorer returns a scorer based on normalized Levenshtein
// distance: (maxLen - distance) / maxLen.
func NewLevenshteinScorer() Scorer {
	return levenshteinScorer{}
}

func (levenshteinScorer) Name() string { return "levenshtein" }

func (levenshteinScorer) Score(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}

// diceScorer scores by the Sørensen–Dice coefficient over character bigrams.
// Cheaper than edit distance on long names, so it is the default.
type diceScorer struct{}

// NewDiceScorer returns a bigram Dice-coefficient scorer.
func NewDiceScorer() Scorer {
	return diceScorer{}
}

func (diceScorer) Name() string { return "dice" }

func (diceScorer) Score(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		// No bigrams to compare; only exact matches count.
		return 0.0
	}

	counts := make(map[string]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[string(ra[i:i+2])]++
	}

	shared := 0
	for i := 0; i < len(rb)-1; i++ {
		bigram := string(rb[i : i+2])
		if counts[bigram] > 0 {
			counts[bigram]--
			shared++
		}
	}

	return 2.0 * float64(shared) / float64(len(ra)+len(rb)-2)
}

// ByName returns the scorer registered under the given name, defaulting to
// the Dice scorer for unknown names.
func ByName(name string) Scorer {
	if name == "levenshtein" {
		return NewLevenshteinScorer()
	}
	return NewDiceScorer()
}
