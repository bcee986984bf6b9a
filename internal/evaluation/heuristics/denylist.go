// Package heuristics holds the content checks the trust score is built from.
// Each check is a small strategy so the word list or threshold can be swapped
// without touching the evaluation pipeline.
package heuristics

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// DefaultSuspiciousTokens are low-effort placeholder fragments. Matching is by
// substring, so "contest" contains "test".
var DefaultSuspiciousTokens = []string{"asdf", "test", "dummy", "lorem", "xxx"}

// Denylist flags text containing any of a fixed set of tokens, ignoring case.
// It is safe for concurrent use.
type Denylist struct {
	tokens  []string
	matcher *ahocorasick.Matcher
}

// NewDenylist builds a matcher over tokens. Empty tokens are ignored.
func NewDenylist(tokens []string) *Denylist {
	cleaned := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.ToLower(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	d := &Denylist{tokens: cleaned}
	if len(cleaned) > 0 {
		d.matcher = ahocorasick.NewStringMatcher(cleaned)
	}
	return d
}

// Suspicious reports whether the lowercased text contains any token.
func (d *Denylist) Suspicious(text string) bool {
	if d.matcher == nil || text == "" {
		return false
	}
	return len(d.matcher.MatchThreadSafe([]byte(strings.ToLower(text)))) > 0
}

// Tokens returns the normalized token list.
func (d *Denylist) Tokens() []string {
	return append([]string(nil), d.tokens...)
}
