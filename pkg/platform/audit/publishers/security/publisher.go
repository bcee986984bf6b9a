// Package security provides a best-effort audit publisher for abuse signals.
//
// Emit never blocks the request path. Events wait in a bounded buffer and a
// background loop flushes them to the audit store; when the buffer is full the
// oldest event is dropped.
//
// Use for: fingerprint_claim_conflict
package security

import (
	"context"
	"log/slog"
	"time"

	audit "screener/pkg/platform/audit"
)

const (
	DefaultBufferSize    = 1024
	DefaultFlushInterval = time.Second
	DefaultBatchSize     = 100
)

// Publisher buffers security events and flushes them asynchronously.
type Publisher struct {
	store     audit.Store
	buffer    *ring
	logger    *slog.Logger
	metrics   *Metrics
	interval  time.Duration
	batchSize int
	now       func() time.Time
	wake      chan struct{}
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func WithBufferSize(n int) Option {
	return func(p *Publisher) { p.buffer = newRing(n) }
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:     store,
		buffer:    newRing(DefaultBufferSize),
		logger:    slog.Default(),
		interval:  DefaultFlushInterval,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit queues event for the next flush.
func (p *Publisher) Emit(_ context.Context, event audit.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if p.buffer.push(event) {
		p.metrics.incDropped()
	}
	if p.buffer.len() >= p.batchSize {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
}

// Pending returns the number of events waiting to be flushed.
func (p *Publisher) Pending() int {
	return p.buffer.len()
}

// Dropped returns how many events were overwritten before a flush.
func (p *Publisher) Dropped() int64 {
	return p.buffer.droppedTotal()
}

// Run flushes on every tick until ctx is cancelled, then drains what is left.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			p.Flush(drainCtx)
			cancel()
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		case <-p.wake:
			p.Flush(ctx)
		}
	}
}

// Flush writes every buffered event to the store. Events that fail to persist
// are logged and discarded.
func (p *Publisher) Flush(ctx context.Context) int {
	written := 0
	for {
		batch := p.buffer.take(p.batchSize)
		if len(batch) == 0 {
			return written
		}
		for _, event := range batch {
			if err := p.store.Append(ctx, event.ToEvent()); err != nil {
				p.metrics.incPersistFailures()
				p.logger.WarnContext(ctx, "security audit write failed",
					"action", event.Action,
					"request_id", event.RequestID,
					"error", err,
				)
				continue
			}
			p.metrics.incEmitted()
			written++
		}
	}
}
