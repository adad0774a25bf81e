package engine

import (
	"context"

	"github.com/meepleai/gateway/resilience"
	"github.com/meepleai/gateway/stream"
)

// Guarded routes generation calls through a circuit breaker so a dead
// engine fails fast instead of pinning streams until their deadlines.
type Guarded struct {
	inner   stream.Engine
	breaker *resilience.CircuitBreaker
}

var _ stream.Engine = (*Guarded)(nil)

// Guard wraps an engine with a circuit breaker.
func Guard(inner stream.Engine, breaker *resilience.CircuitBreaker) *Guarded {
	return &Guarded{inner: inner, breaker: breaker}
}

// Generate calls the inner engine when the breaker admits it. Returns
// resilience.ErrCircuitOpen while the breaker is shedding.
func (g *Guarded) Generate(ctx context.Context, req stream.Request) (*stream.Generation, error) {
	if err := g.breaker.Allow(); err != nil {
		return nil, err
	}

	gen, err := g.inner.Generate(ctx, req)

	// A call cut short by the caller says nothing about engine health.
	success := err == nil || ctx.Err() != nil
	g.breaker.Record(success)

	if err != nil {
		return nil, err
	}
	return gen, nil
}
