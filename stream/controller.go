package stream

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meepleai/gateway/answercache"
	"github.com/meepleai/gateway/auth"
	"github.com/meepleai/gateway/observe"
	"github.com/meepleai/gateway/ratelimit"
)

// DefaultGenerationTimeout bounds one engine call when no timeout is
// configured.
const DefaultGenerationTimeout = 60 * time.Second

// statusGenerating is the status carried by the state event.
const statusGenerating = "generating"

// Stream outcome labels recorded on the stream metric.
const (
	outcomeCacheHit  = "cache_hit"
	outcomeCompleted = "completed"
	outcomeTimeout   = "timeout"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
)

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	// Limiter admits or rejects requests per principal. Required.
	Limiter *ratelimit.Limiter

	// Cache replays finished answers and receives completed ones. Required.
	Cache *answercache.Cache

	// Engine generates answers on a cache miss. Required.
	Engine Engine

	// GenerationTimeout bounds one engine call. Defaults to
	// DefaultGenerationTimeout.
	GenerationTimeout time.Duration

	// Logger defaults to a no-op logger.
	Logger observe.Logger

	// Metrics defaults to no-op metrics.
	Metrics observe.Metrics

	// Tracer defaults to a no-op tracer.
	Tracer observe.Tracer
}

// Controller runs the per-request state machine: admission, cache
// check, then either a cached replay or a live relay of engine output.
//
// One goroutine serves each stream. Events are delivered through an
// unbuffered channel so the producer never outruns the transport;
// cancellation of ctx stops delivery between any two events.
type Controller struct {
	limiter *ratelimit.Limiter
	cache   *answercache.Cache
	engine  Engine
	timeout time.Duration
	logger  observe.Logger
	metrics observe.Metrics
	tracer  observe.Tracer

	// newRequestID is swapped in tests for deterministic IDs.
	newRequestID func() string
}

// NewController creates a stream controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Limiter == nil {
		return nil, errors.New("stream: limiter is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("stream: cache is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("stream: engine is required")
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NopMetrics()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observe.NopTracer()
	}
	return &Controller{
		limiter:      cfg.Limiter,
		cache:        cfg.Cache,
		engine:       cfg.Engine,
		timeout:      cfg.GenerationTimeout,
		logger:       cfg.Logger.WithComponent("stream"),
		metrics:      cfg.Metrics,
		tracer:       cfg.Tracer,
		newRequestID: uuid.NewString,
	}, nil
}

// Stream admits the principal and, on success, starts the event
// producer. The returned channel is closed when the stream terminates.
//
// On rejection the error is ratelimit.ErrRateLimitExceeded, no events
// are produced, and the Decision carries the retry delay for the
// transport's rejection headers. The Decision is valid in both cases.
func (c *Controller) Stream(ctx context.Context, principal *auth.Principal, gameID, question string) (<-chan Event, ratelimit.Decision, error) {
	decision, err := c.limiter.Consume(principal.ID, principal.Tier)
	c.metrics.RecordAdmission(ctx, string(principal.Tier), decision.Allowed)
	if err != nil {
		return nil, decision, err
	}

	events := make(chan Event)
	go c.run(ctx, gameID, question, events)
	return events, decision, nil
}

func (c *Controller) run(ctx context.Context, gameID, question string, events chan<- Event) {
	defer close(events)
	started := time.Now()
	requestID := c.newRequestID()

	ctx, span := c.tracer.StartSpan(ctx, "answer_stream",
		attribute.String("request.id", requestID),
		attribute.String("game.id", gameID))
	var spanErr error
	defer func() { c.tracer.EndSpan(span, spanErr) }()

	answer, hit := c.cache.Lookup(gameID, question)
	c.metrics.RecordCacheLookup(ctx, gameID, hit)
	if hit {
		// Cached answers collapse to a single complete event; the
		// state/citations/token preamble is reserved for live generation.
		c.emit(ctx, events, completeEvent(answer.Text, answer.Citations, true))
		c.metrics.RecordStream(ctx, outcomeCacheHit, time.Since(started), 0)
		return
	}

	engineCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if !c.emit(ctx, events, stateEvent(statusGenerating)) {
		c.finishCancelled(ctx, requestID, started, 0)
		return
	}

	gen, err := c.engine.Generate(engineCtx, Request{
		RequestID: requestID,
		GameID:    gameID,
		Question:  question,
	})
	if err != nil {
		spanErr = err
		c.finishFailure(ctx, events, requestID, started, 0, err)
		return
	}

	if !c.emit(ctx, events, citationsEvent(gen.Citations)) {
		c.finishCancelled(ctx, requestID, started, 0)
		return
	}

	var assembled strings.Builder
	index := 0
	for {
		select {
		case <-engineCtx.Done():
			spanErr = engineCtx.Err()
			c.finishFailure(ctx, events, requestID, started, index, engineCtx.Err())
			return
		case chunk, ok := <-gen.Chunks:
			if !ok {
				// An engine honoring cancellation closes its channel; that
				// close must not be mistaken for a clean finish.
				if engineCtx.Err() != nil {
					spanErr = engineCtx.Err()
					c.finishFailure(ctx, events, requestID, started, index, engineCtx.Err())
					return
				}
				// Store before the channel closes so a follow-up lookup
				// for the same fingerprint hits.
				c.cache.Store(gameID, question, answercache.Answer{
					Text:      assembled.String(),
					Citations: gen.Citations,
				}, nil)
				c.emit(ctx, events, completeEvent(assembled.String(), gen.Citations, false))
				c.metrics.RecordStream(ctx, outcomeCompleted, time.Since(started), index)
				return
			}
			if chunk.Err != nil {
				spanErr = chunk.Err
				c.finishFailure(ctx, events, requestID, started, index, chunk.Err)
				return
			}
			if !c.emit(ctx, events, tokenEvent(chunk.Text, index)) {
				c.finishCancelled(ctx, requestID, started, index)
				return
			}
			assembled.WriteString(chunk.Text)
			index++
		}
	}
}

// emit delivers one event, or reports false if the client went away
// first. Checked between every relayed unit.
func (c *Controller) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- ev:
		return true
	}
}

// finishFailure terminates a failed stream. Client cancellation is
// silent; every other failure gets a terminal error event.
func (c *Controller) finishFailure(ctx context.Context, events chan<- Event, requestID string, started time.Time, tokens int, err error) {
	if ctx.Err() != nil {
		c.finishCancelled(ctx, requestID, started, tokens)
		return
	}

	code := CodeGenerationFailed
	message := "answer generation failed"
	outcome := outcomeFailed
	if errors.Is(err, context.DeadlineExceeded) {
		code = CodeGenerationTimeout
		message = "answer generation timed out"
		outcome = outcomeTimeout
	}

	c.logger.Error(ctx, "generation failed",
		observe.Field{Key: "request_id", Value: requestID},
		observe.Field{Key: "code", Value: code},
		observe.Field{Key: "error", Value: err.Error()})

	c.emit(ctx, events, errorEvent(code, message))
	c.metrics.RecordStream(ctx, outcome, time.Since(started), tokens)
}

func (c *Controller) finishCancelled(ctx context.Context, requestID string, started time.Time, tokens int) {
	c.logger.Debug(ctx, "stream cancelled",
		observe.Field{Key: "request_id", Value: requestID})
	c.metrics.RecordStream(ctx, outcomeCancelled, time.Since(started), tokens)
}
