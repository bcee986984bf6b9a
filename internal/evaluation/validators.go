package evaluation

import (
	"regexp"

	"screener/internal/evaluation/heuristics"
)

// emailPattern accepts local@domain.tld where local and domain are word
// characters, dots and hyphens, and the TLD is word characters. Word
// characters are Unicode letters, digits and underscore. A single trailing
// newline is tolerated.
var emailPattern = regexp.MustCompile(`^[\p{L}\p{N}_.-]+@[\p{L}\p{N}_.-]+\.[\p{L}\p{N}_]+\n?$`)

// SuspicionCheck flags placeholder or low-effort content.
type SuspicionCheck interface {
	Suspicious(text string) bool
}

// RepetitionCheck flags text dominated by a single word.
type RepetitionCheck interface {
	Repetitive(text string) bool
}

var (
	defaultSuspicion  SuspicionCheck  = heuristics.NewDenylist(heuristics.DefaultSuspiciousTokens)
	defaultRepetition RepetitionCheck = heuristics.NewRepetition(heuristics.DefaultRepetitionPercent)
)

// IsValidEmail reports whether email has the local@domain.tld shape.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ContainsSuspiciousContent applies the default denylist.
func ContainsSuspiciousContent(text string) bool {
	return defaultSuspicion.Suspicious(text)
}

// HasExcessiveRepetition applies the default 30% repetition threshold.
func HasExcessiveRepetition(text string) bool {
	return defaultRepetition.Repetitive(text)
}
