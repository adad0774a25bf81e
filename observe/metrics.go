package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records gateway request metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordAdmission records a rate-limit decision.
	RecordAdmission(ctx context.Context, tier string, allowed bool)

	// RecordCacheLookup records a response-cache lookup outcome.
	RecordCacheLookup(ctx context.Context, gameID string, hit bool)

	// RecordSessionLookup records a session-cache lookup outcome.
	RecordSessionLookup(ctx context.Context, hit bool)

	// RecordStream records a finished stream with its outcome
	// (completed|cached|cancelled|failed) and relayed token count.
	RecordStream(ctx context.Context, outcome string, duration time.Duration, tokens int)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	admissionCount metric.Int64Counter
	cacheLookups   metric.Int64Counter
	sessionLookups metric.Int64Counter
	streamCount    metric.Int64Counter
	streamDuration metric.Float64Histogram
	streamTokens   metric.Int64Histogram
}

// NewMetrics creates a Metrics instance on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	admissionCount, err := meter.Int64Counter(
		"gateway.admission.total",
		metric.WithDescription("Rate-limit admission decisions"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"gateway.answer_cache.lookups",
		metric.WithDescription("Response cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	sessionLookups, err := meter.Int64Counter(
		"gateway.session_cache.lookups",
		metric.WithDescription("Session cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	streamCount, err := meter.Int64Counter(
		"gateway.stream.total",
		metric.WithDescription("Finished answer streams"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, err
	}

	streamDuration, err := meter.Float64Histogram(
		"gateway.stream.duration_ms",
		metric.WithDescription("Answer stream duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	streamTokens, err := meter.Int64Histogram(
		"gateway.stream.tokens",
		metric.WithDescription("Token events relayed per stream"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		admissionCount: admissionCount,
		cacheLookups:   cacheLookups,
		sessionLookups: sessionLookups,
		streamCount:    streamCount,
		streamDuration: streamDuration,
		streamTokens:   streamTokens,
	}, nil
}

func (m *metricsImpl) RecordAdmission(ctx context.Context, tier string, allowed bool) {
	m.admissionCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier),
		attribute.Bool("allowed", allowed),
	))
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, gameID string, hit bool) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("game", gameID),
		attribute.Bool("hit", hit),
	))
}

func (m *metricsImpl) RecordSessionLookup(ctx context.Context, hit bool) {
	m.sessionLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("hit", hit),
	))
}

func (m *metricsImpl) RecordStream(ctx context.Context, outcome string, duration time.Duration, tokens int) {
	opt := metric.WithAttributes(attribute.String("outcome", outcome))
	m.streamCount.Add(ctx, 1, opt)
	m.streamDuration.Record(ctx, float64(duration.Milliseconds()), opt)
	m.streamTokens.Record(ctx, int64(tokens), opt)
}

// nopMetrics is a metrics implementation that does nothing.
type nopMetrics struct{}

func (nopMetrics) RecordAdmission(context.Context, string, bool)            {}
func (nopMetrics) RecordCacheLookup(context.Context, string, bool)          {}
func (nopMetrics) RecordSessionLookup(context.Context, bool)                {}
func (nopMetrics) RecordStream(context.Context, string, time.Duration, int) {}

// NopMetrics returns a metrics recorder that discards everything.
func NopMetrics() Metrics {
	return nopMetrics{}
}
