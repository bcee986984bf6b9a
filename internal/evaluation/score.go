package evaluation

import "unicode/utf8"

// Point table. Every point is traceable to one observable property of the
// submission; there are no interaction effects between rules.
const (
	PointsValidEmail      = 10
	PointsLongDescription = 10
	PointsNoSuspicious    = 10
	PointsNoRepetition    = 15
	PointsFilePresent     = 10
	PointsFileValid       = 10

	// MaxTrustScore is the sum of the point table.
	MaxTrustScore = PointsValidEmail + PointsLongDescription + PointsNoSuspicious +
		PointsNoRepetition + PointsFilePresent + PointsFileValid

	// LongDescriptionChars must be strictly exceeded to earn the length bonus.
	LongDescriptionChars = 300
)

// Classification thresholds. AcceptThreshold is above MaxTrustScore, so no
// scored submission is Accepted under the current point table. Changing that
// is a product decision about the table or the threshold, not a code fix.
const (
	AcceptThreshold = 80
	FlagThreshold   = 50
)

// Rule names a single line of the point table.
type Rule string

const (
	RuleValidEmail      Rule = "valid_email"
	RuleLongDescription Rule = "long_description"
	RuleNoSuspicious    Rule = "no_suspicious_content"
	RuleNoRepetition    Rule = "no_excessive_repetition"
	RuleFilePresent     Rule = "file_present"
	RuleFileValid       Rule = "file_valid"
)

// Award is one rule that contributed points.
type Award struct {
	Rule   Rule
	Points int
}

// ScoreInput is everything the score depends on.
type ScoreInput struct {
	Email       string
	Description string
	FilePresent bool
	FileValid   bool
}

// Scorer computes trust scores with pluggable content checks.
type Scorer struct {
	suspicion  SuspicionCheck
	repetition RepetitionCheck
}

// NewScorer builds a scorer. Nil checks fall back to the defaults.
func NewScorer(suspicion SuspicionCheck, repetition RepetitionCheck) *Scorer {
	if suspicion == nil {
		suspicion = defaultSuspicion
	}
	if repetition == nil {
		repetition = defaultRepetition
	}
	return &Scorer{suspicion: suspicion, repetition: repetition}
}

// Explain lists the rules the input satisfies, in table order.
func (s *Scorer) Explain(in ScoreInput) []Award {
	var awards []Award
	add := func(ok bool, rule Rule, points int) {
		if ok {
			awards = append(awards, Award{Rule: rule, Points: points})
		}
	}
	add(IsValidEmail(in.Email), RuleValidEmail, PointsValidEmail)
	add(utf8.RuneCountInString(in.Description) > LongDescriptionChars, RuleLongDescription, PointsLongDescription)
	add(!s.suspicion.Suspicious(in.Description), RuleNoSuspicious, PointsNoSuspicious)
	add(!s.repetition.Repetitive(in.Description), RuleNoRepetition, PointsNoRepetition)
	add(in.FilePresent, RuleFilePresent, PointsFilePresent)
	add(in.FileValid, RuleFileValid, PointsFileValid)
	return awards
}

// Compute returns the trust score, between 0 and MaxTrustScore.
func (s *Scorer) Compute(in ScoreInput) int {
	total := 0
	for _, a := range s.Explain(in) {
		total += a.Points
	}
	return total
}

// ComputeTrustScore scores with the default checks.
func ComputeTrustScore(email, description string, filePresent, fileValid bool) int {
	return NewScorer(nil, nil).Compute(ScoreInput{
		Email:       email,
		Description: description,
		FilePresent: filePresent,
		FileValid:   fileValid,
	})
}

// Classify maps a trust score onto a disposition.
func Classify(score int) Result {
	switch {
	case score >= AcceptThreshold:
		return Result{Status: StatusAccepted, Reason: ReasonVerified, TrustScore: score}
	case score >= FlagThreshold:
		return Result{Status: StatusFlagged, Reason: ReasonManualReview, TrustScore: score}
	default:
		return Result{Status: StatusRejected, Reason: ReasonLowTrust, TrustScore: score}
	}
}
