package heuristics

import "strings"

// DefaultRepetitionPercent is the share of all words a single word may reach
// before the text counts as repetitive.
const DefaultRepetitionPercent = 30

// Repetition flags text dominated by one word. Words are split on whitespace
// and compared lowercased.
type Repetition struct {
	// Percent is the exclusive upper bound on the most frequent word's share.
	Percent int
}

// NewRepetition returns a check with the given threshold percent.
func NewRepetition(percent int) Repetition {
	return Repetition{Percent: percent}
}

// Repetitive reports whether the most frequent word occurs in more than
// Percent percent of all words. Text with no words is never repetitive.
func (r Repetition) Repetitive(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return false
	}
	return MaxWordCount(words)*100 > len(words)*r.Percent
}

// MaxWordCount returns the count of the most frequent word. Which word wins a
// tie does not matter; only the count is used.
func MaxWordCount(words []string) int {
	counts := make(map[string]int, len(words))
	highest := 0
	for _, w := range words {
		counts[w]++
		if counts[w] > highest {
			highest = counts[w]
		}
	}
	return highest
}
