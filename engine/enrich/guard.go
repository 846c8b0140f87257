package enrich

import (
	"context"

	"github.com/AssesslyAI/assessly-mvp/pkg/resilience"
)

// Guarded wraps an Enricher with a circuit breaker so a dead enrichment
// upstream fails fast instead of holding every request for the full timeout.
type Guarded struct {
	inner   Enricher
	breaker *resilience.Breaker
}

// NewGuarded creates a breaker-guarded Enricher.
func NewGuarded(inner Enricher, breaker *resilience.Breaker) *Guarded {
	return &Guarded{inner: inner, breaker: breaker}
}

// Enrich implements Enricher.
func (g *Guarded) Enrich(ctx context.Context, query string) (string, error) {
	return resilience.Do(g.breaker, ctx, func(ctx context.Context) (string, error) {
		return g.inner.Enrich(ctx, query)
	})
}
