package evaluation

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"screener/pkg/fingerprint"
)

// MinDescriptionChars is the shortest description the pipeline will score.
const MinDescriptionChars = 100

var tracer = otel.Tracer("screener/internal/evaluation")

// DuplicateChecker answers whether a fingerprint pair was seen before.
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, pair fingerprint.Pair) (bool, error)
}

// state is threaded through the gates of one evaluation.
type state struct {
	sub         Submission
	pair        fingerprint.Pair
	filePresent bool
	fileValid   bool
}

// gate either returns a terminal result or nil to let the next gate run.
type gate struct {
	stage Stage
	run   func(ctx context.Context, st *state) (*Result, error)
}

// Pipeline runs the ordered gates that turn a submission into a disposition.
// It holds no per-call state and is safe for concurrent use.
type Pipeline struct {
	duplicates DuplicateChecker
	scorer     *Scorer
	gates      []gate
}

// NewPipeline wires the gates. scorer may be nil for the default checks.
func NewPipeline(duplicates DuplicateChecker, scorer *Scorer) *Pipeline {
	if scorer == nil {
		scorer = NewScorer(nil, nil)
	}
	p := &Pipeline{duplicates: duplicates, scorer: scorer}
	p.gates = []gate{
		{StageRequiredFields, requireFields},
		{StageEmail, requireValidEmail},
		{StageDescription, requireDescriptionLength},
		{StageFingerprint, fingerprintContent},
		{StageDuplicate, p.rejectDuplicates},
		{StageScore, p.score},
	}
	return p
}

// Evaluate applies the gates in order and stops at the first terminal result.
// Input problems come back as Rejected results; only I/O faults (unreadable
// attachment, unreachable store) are returned as errors.
func (p *Pipeline) Evaluate(ctx context.Context, sub Submission) (*Evaluation, error) {
	ctx, span := tracer.Start(ctx, "evaluation.Pipeline.Evaluate")
	defer span.End()

	st := &state{sub: sub}
	for _, g := range p.gates {
		res, err := g.run(ctx, st)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if res != nil {
			span.SetAttributes(
				attribute.String("evaluation.stage", string(g.stage)),
				attribute.String("evaluation.status", string(res.Status)),
				attribute.Int("evaluation.trust_score", res.TrustScore),
			)
			return &Evaluation{Result: *res, Fingerprints: st.pair, Stage: g.stage}, nil
		}
	}
	// The score gate always terminates.
	return nil, fmt.Errorf("evaluation pipeline ended without a result")
}

func requireFields(_ context.Context, st *state) (*Result, error) {
	s := st.sub
	if s.Name == "" || s.Email == "" || s.SubmissionType == "" || s.Description == "" {
		return rejected(ReasonMissingFields, ScoreMissingFields), nil
	}
	return nil, nil
}

func requireValidEmail(_ context.Context, st *state) (*Result, error) {
	if !IsValidEmail(st.sub.Email) {
		return rejected(ReasonInvalidEmail, ScoreInvalidEmail), nil
	}
	return nil, nil
}

func requireDescriptionLength(_ context.Context, st *state) (*Result, error) {
	if utf8.RuneCountInString(st.sub.Description) < MinDescriptionChars {
		return rejected(ReasonShortDescription, ScoreShortDescription), nil
	}
	return nil, nil
}

// fingerprintContent never terminates. An attached file is assumed valid: its
// extension was checked at the boundary and its content is not inspected.
func fingerprintContent(_ context.Context, st *state) (*Result, error) {
	pair, err := Fingerprint(st.sub)
	if err != nil {
		return nil, err
	}
	st.pair = pair
	if st.sub.Attachment != nil {
		st.filePresent = true
		st.fileValid = true
	}
	return nil, nil
}

func (p *Pipeline) rejectDuplicates(ctx context.Context, st *state) (*Result, error) {
	dup, err := p.duplicates.IsDuplicate(ctx, st.pair)
	if err != nil {
		return nil, err
	}
	if dup {
		return rejected(ReasonDuplicate, ScoreDuplicate), nil
	}
	return nil, nil
}

func (p *Pipeline) score(_ context.Context, st *state) (*Result, error) {
	res := Classify(p.scorer.Compute(ScoreInput{
		Email:       st.sub.Email,
		Description: st.sub.Description,
		FilePresent: st.filePresent,
		FileValid:   st.fileValid,
	}))
	return &res, nil
}

// Fingerprint computes the text fingerprint and, with an attachment, the file
// fingerprint of sub.
func Fingerprint(sub Submission) (fingerprint.Pair, error) {
	pair := fingerprint.Pair{TextHash: fingerprint.Text(sub.Description)}
	if sub.Attachment == nil {
		return pair, nil
	}
	if sub.Attachment.Content == nil {
		return fingerprint.Pair{}, fmt.Errorf("attachment %q has no content", sub.Attachment.FileName)
	}
	fileHash, err := fingerprint.File(sub.Attachment.Content)
	if err != nil {
		return fingerprint.Pair{}, fmt.Errorf("fingerprint attachment %q: %w", sub.Attachment.FileName, err)
	}
	pair.FileHash = fileHash
	return pair, nil
}
