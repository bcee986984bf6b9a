package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"screener/internal/evaluation/metrics"
	"screener/pkg/fingerprint"
	"screener/pkg/platform/audit"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
)

// Outcome is what Submit hands back to the boundary.
type Outcome struct {
	Result       Result
	Stage        Stage
	Fingerprints fingerprint.Pair
	RecordID     RecordID
	// Persisted is false when the record could not be stored. The result is
	// still authoritative for the caller.
	Persisted bool
}

// Service evaluates submissions and records every disposition.
type Service struct {
	store    RecordStore
	cache    FingerprintCache
	scorer   *Scorer
	auditor  AuditPublisher
	security SecurityPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	detector *Detector
	pipeline *Pipeline
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditPublisher sets where evaluation events are recorded.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithSecurityPublisher sets where abuse signals such as lost fingerprint
// claims are recorded.
func WithSecurityPublisher(p SecurityPublisher) Option {
	return func(s *Service) {
		s.security = p
	}
}

// WithFingerprintCache puts a cache in front of duplicate lookups.
func WithFingerprintCache(c FingerprintCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithScorer replaces the default scorer, e.g. to plug in other heuristics.
func WithScorer(sc *Scorer) Option {
	return func(s *Service) {
		s.scorer = sc
	}
}

// New wires a Service over store.
func New(store RecordStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	detectorOpts := []DetectorOption{
		WithDetectorLogger(s.logger),
		WithDetectorMetrics(s.metrics),
	}
	if s.cache != nil {
		detectorOpts = append(detectorOpts, WithCache(s.cache))
	}
	detector, err := NewDetector(store, detectorOpts...)
	if err != nil {
		return nil, err
	}
	s.detector = detector
	s.pipeline = NewPipeline(detector, s.scorer)
	return s, nil
}

// Submit evaluates sub, stores the resulting record and returns the
// disposition. Only I/O faults while evaluating are returned as errors; a
// failed insert is logged and the disposition is returned anyway.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "evaluation.Service.Submit")
	defer span.End()

	start := time.Now()
	ev, err := s.pipeline.Evaluate(ctx, sub)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "submission evaluation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, fmt.Errorf("evaluate submission: %w", err)
	}

	pair := ev.Fingerprints
	if pair.TextHash == "" {
		// A structural gate stopped before hashing; the record still carries
		// its fingerprints.
		if pair, err = Fingerprint(sub); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("fingerprint rejected submission: %w", err)
		}
	}

	out := &Outcome{Result: ev.Result, Stage: ev.Stage, Fingerprints: pair}
	rec := Record{
		Name:               sub.Name,
		Email:              sub.Email,
		SubmissionType:     sub.SubmissionType,
		Description:        sub.Description,
		FileName:           sub.FileName(),
		Fingerprints:       pair,
		Result:             ev.Result,
		CreatedAt:          requestcontext.Now(ctx).UTC(),
		ClaimsFingerprints: ev.Stage == StageScore,
	}

	s.persist(ctx, rec, out)

	s.metrics.IncrementOutcome(string(out.Result.Status), string(out.Stage))
	s.metrics.ObserveEvaluateLatency(time.Since(start))
	s.logger.InfoContext(ctx, "submission evaluated",
		"request_id", requestcontext.RequestID(ctx),
		"status", out.Result.Status,
		"reason", out.Result.Reason,
		"trust_score", out.Result.TrustScore,
		"stage", out.Stage,
		"record_id", out.RecordID,
		"persisted", out.Persisted,
	)
	s.emitAudit(ctx, out, sub.Email)
	return out, nil
}

// persist inserts rec and updates out. A lost fingerprint claim means a
// concurrent identical submission won the race; the loser becomes a duplicate
// and is stored without a claim.
func (s *Service) persist(ctx context.Context, rec Record, out *Outcome) {
	id, err := s.insert(ctx, rec)
	if err != nil && rec.ClaimsFingerprints && errors.Is(err, sentinel.ErrConflict) {
		s.metrics.IncrementClaimConflicts()
		s.logger.WarnContext(ctx, "fingerprint claim lost to concurrent submission",
			"request_id", requestcontext.RequestID(ctx),
			"text_hash", rec.Fingerprints.TextHash,
		)
		s.emitClaimConflict(ctx, rec.Fingerprints)
		out.Result = DuplicateResult()
		out.Stage = StageDuplicate
		rec.Result = out.Result
		rec.ClaimsFingerprints = false
		id, err = s.insert(ctx, rec)
	}
	if err != nil {
		s.metrics.IncrementPersistFailures()
		s.logger.ErrorContext(ctx, "failed to store evaluated submission",
			"request_id", requestcontext.RequestID(ctx),
			"status", out.Result.Status,
			"error", err,
		)
		return
	}

	out.RecordID = id
	out.Persisted = true
	s.detector.Remember(ctx, rec.Fingerprints)
}

func (s *Service) insert(ctx context.Context, rec Record) (RecordID, error) {
	ctx, span := tracer.Start(ctx, "evaluation.RecordStore.Insert")
	defer span.End()

	start := time.Now()
	id, err := s.store.Insert(ctx, rec)
	s.metrics.ObserveStoreLatency("insert", time.Since(start))
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return id, nil
}

func (s *Service) emitClaimConflict(ctx context.Context, pair fingerprint.Pair) {
	if s.security == nil {
		return
	}
	s.security.Emit(ctx, audit.SecurityEvent{
		Timestamp: requestcontext.Now(ctx),
		Subject:   pair.TextHash,
		Action:    string(audit.EventFingerprintClaimConflict),
		Reason:    string(ReasonDuplicate),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgentFamily(ctx),
	})
}

// emitAudit records the disposition. Audit failures are logged; the submitter
// still gets their result.
func (s *Service) emitAudit(ctx context.Context, out *Outcome, email string) {
	if s.auditor == nil {
		return
	}
	action := audit.EventSubmissionEvaluated
	subject := ""
	if out.Persisted {
		subject = strconv.FormatInt(int64(out.RecordID), 10)
	} else {
		action = audit.EventSubmissionPersistFailed
	}
	var emailHash string
	if email != "" {
		emailHash = fingerprint.Text(strings.ToLower(email))
	}

	event := audit.ComplianceEvent{
		Timestamp:     requestcontext.Now(ctx),
		Subject:       subject,
		Action:        string(action),
		Decision:      string(out.Result.Status),
		Reason:        string(out.Result.Reason),
		Stage:         string(out.Stage),
		TrustScore:    out.Result.TrustScore,
		SubjectIDHash: emailHash,
		RequestID:     requestcontext.RequestID(ctx),
		ClientIP:      requestcontext.ClientIP(ctx),
		UserAgent:     requestcontext.UserAgentFamily(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"request_id", event.RequestID,
			"action", event.Action,
			"error", err,
		)
	}
}
