// Package outbox relays audit events written to the transactional outbox
// table onto the message broker.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Entry is one unpublished outbox row.
type Entry struct {
	ID        string
	Key       string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// Source hands out batches of unpublished entries. Implementations lock the
// batch for the duration of publish and mark it published only when publish
// returns nil, so a crashed relay never loses an entry.
type Source interface {
	ProcessPending(ctx context.Context, limit int, publish func(ctx context.Context, entries []Entry) error) (int, error)
}

// Producer publishes a batch of entries and returns once the broker has
// acknowledged all of them.
type Producer interface {
	Publish(ctx context.Context, entries []Entry) error
}

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// Relay polls the outbox and forwards entries to the producer.
type Relay struct {
	source    Source
	producer  Producer
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures the Relay.
type Option func(*Relay)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize sets how many entries are relayed per poll.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// NewRelay builds a relay.
func NewRelay(source Source, producer Producer, opts ...Option) *Relay {
	r := &Relay{
		source:    source,
		producer:  producer,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. A full batch triggers an immediate next
// poll so a backlog drains without waiting for the ticker.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "outbox relay started",
		"interval", r.interval,
		"batch_size", r.batchSize,
	)
	for {
		n, err := r.RelayOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
		}
		if err == nil && n == r.batchSize {
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.InfoContext(context.WithoutCancel(ctx), "outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RelayOnce forwards at most one batch and returns how many entries were
// published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := r.source.ProcessPending(ctx, r.batchSize, r.producer.Publish)
	if err != nil {
		r.metrics.IncFailures()
		return 0, fmt.Errorf("relay outbox batch: %w", err)
	}
	if n > 0 {
		r.metrics.AddPublished(n)
		r.metrics.ObserveBatchDuration(time.Since(start))
		r.logger.DebugContext(ctx, "outbox batch relayed", "count", n)
	}
	return n, nil
}
