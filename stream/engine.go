package stream

import (
	"context"

	"github.com/meepleai/gateway/answercache"
)

// Request identifies one generation call to the reasoning engine.
type Request struct {
	// RequestID correlates engine work with the originating stream.
	RequestID string

	// GameID scopes the question to one game's rulebook.
	GameID string

	// Question is the raw client question.
	Question string
}

// Chunk is one unit of engine output. A non-nil Err terminates the
// chunk sequence; the channel is closed after a clean finish.
type Chunk struct {
	Text string
	Err  error
}

// Generation is a live engine response. Citations are complete before
// the first chunk is read; Chunks yields answer fragments in order.
type Generation struct {
	Citations []answercache.Citation
	Chunks    <-chan Chunk
}

// Engine produces answers for rulebook questions.
//
// Contract: Generate returns once citations are resolved, with Chunks
// still streaming. The implementation must honor ctx cancellation by
// closing Chunks promptly, and must never send on Chunks after an
// error chunk. The caller owns ctx; the engine owns the channel.
type Engine interface {
	Generate(ctx context.Context, req Request) (*Generation, error)
}
