package resilience

import "errors"

// Sentinel errors for capacity protection.
var (
	// ErrCircuitOpen is returned while the breaker is shedding engine calls.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrBulkheadFull is returned when every stream slot is occupied.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")
)
