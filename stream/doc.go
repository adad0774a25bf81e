// Package stream orchestrates a single question-answering request into an
// ordered sequence of protocol events.
//
// The Controller admits the request through the rate limiter, consults the
// answer cache, and on a miss relays the reasoning engine's output live.
// Every stream follows the same grammar: one state event, one citations
// event, zero or more token events, then exactly one of complete or error.
// Cache hits collapse to a single complete event. Cancellation halts the
// stream silently mid-sequence.
package stream
