package cache

import (
	"context"
	"log/slog"

	"screener/internal/evaluation"
	"screener/pkg/platform/circuit"
)

// Guarded fronts a shared cache with a circuit breaker. While the circuit is
// open, lookups and writes go to the local fallback only. The fallback is
// always written so it is warm when the primary fails.
type Guarded struct {
	primary  evaluation.FingerprintCache
	fallback evaluation.FingerprintCache
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// NewGuarded wires primary and fallback behind breaker.
func NewGuarded(primary, fallback evaluation.FingerprintCache, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (g *Guarded) Contains(ctx context.Context, key string) (bool, error) {
	if g.breaker.Allow() {
		hit, err := g.primary.Contains(ctx, key)
		if err == nil {
			g.success(ctx)
			return hit, nil
		}
		g.failure(ctx, "contains", err)
	}
	return g.fallback.Contains(ctx, key)
}

func (g *Guarded) Add(ctx context.Context, keys ...string) error {
	if err := g.fallback.Add(ctx, keys...); err != nil {
		return err
	}
	if !g.breaker.Allow() {
		return nil
	}
	if err := g.primary.Add(ctx, keys...); err != nil {
		g.failure(ctx, "add", err)
		return nil
	}
	g.success(ctx)
	return nil
}

func (g *Guarded) success(ctx context.Context) {
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "fingerprint cache circuit closed", "breaker", g.breaker.Name())
	}
}

func (g *Guarded) failure(ctx context.Context, op string, err error) {
	_, change := g.breaker.RecordFailure()
	if change.Opened {
		g.logger.WarnContext(ctx, "fingerprint cache circuit opened, using local cache",
			"breaker", g.breaker.Name(),
			"operation", op,
			"error", err,
		)
		return
	}
	g.logger.DebugContext(ctx, "fingerprint cache call failed", "operation", op, "error", err)
}
