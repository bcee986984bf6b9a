package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"screener/internal/evaluation/metrics"
	"screener/pkg/fingerprint"
)

// Detector finds prior submissions sharing a text or file fingerprint.
// Matching is content-addressed, so changing the name or email of a
// resubmission does not get it past the check.
type Detector struct {
	store   RecordStore
	cache   FingerprintCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithCache puts a fingerprint cache in front of the store.
func WithCache(cache FingerprintCache) DetectorOption {
	return func(d *Detector) {
		d.cache = cache
	}
}

// WithDetectorLogger sets the logger used for cache degradation warnings.
func WithDetectorLogger(logger *slog.Logger) DetectorOption {
	return func(d *Detector) {
		d.logger = logger
	}
}

// WithDetectorMetrics sets the metrics collector.
func WithDetectorMetrics(m *metrics.Metrics) DetectorOption {
	return func(d *Detector) {
		d.metrics = m
	}
}

// NewDetector builds a detector over store.
func NewDetector(store RecordStore, opts ...DetectorOption) (*Detector, error) {
	if store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	d := &Detector{store: store}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// IsDuplicate reports whether a stored record has pair.TextHash, or
// pair.FileHash when the pair carries one. The check is read-only.
func (d *Detector) IsDuplicate(ctx context.Context, pair fingerprint.Pair) (bool, error) {
	if d.cachedHit(ctx, pair) {
		return true, nil
	}

	ctx, span := tracer.Start(ctx, "evaluation.Detector.FindByHash")
	defer span.End()

	start := time.Now()
	found, err := d.store.FindByHash(ctx, pair.TextHash, pair.FileHash)
	d.metrics.ObserveStoreLatency("find_by_hash", time.Since(start))
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("duplicate lookup: %w", err)
	}
	return found, nil
}

// Remember adds the fingerprints of a freshly stored record to the cache.
// Cache failures are logged and otherwise ignored; the store stays the source
// of truth.
func (d *Detector) Remember(ctx context.Context, pair fingerprint.Pair) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Add(ctx, CacheKeys(pair)...); err != nil && d.logger != nil {
		d.logger.WarnContext(ctx, "fingerprint cache add failed", "error", err)
	}
}

func (d *Detector) cachedHit(ctx context.Context, pair fingerprint.Pair) bool {
	if d.cache == nil {
		return false
	}
	for _, key := range CacheKeys(pair) {
		seen, err := d.cache.Contains(ctx, key)
		if err != nil {
			d.metrics.RecordCacheLookup("error")
			if d.logger != nil {
				d.logger.WarnContext(ctx, "fingerprint cache lookup failed, falling back to store", "error", err)
			}
			return false
		}
		if seen {
			d.metrics.RecordCacheLookup("hit")
			return true
		}
	}
	d.metrics.RecordCacheLookup("miss")
	return false
}

// CacheKeys returns the cache entries for pair. Text and file fingerprints
// live in separate namespaces, matching the store lookup.
func CacheKeys(pair fingerprint.Pair) []string {
	keys := []string{"text:" + pair.TextHash}
	if pair.HasFile() {
		keys = append(keys, "file:"+pair.FileHash)
	}
	return keys
}
