// Package observe provides observability primitives for the gateway.
//
// It is a pure instrumentation library: structured JSON logging, request
// metrics, and tracing over OpenTelemetry, with no transport concerns of
// its own. The HTTP layer and the streaming controller wire the observer
// in; everything degrades to no-ops when disabled.
package observe
