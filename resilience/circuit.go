package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/meepleai/gateway/observe"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed admits every call.
	StateClosed State = iota
	// StateOpen sheds every call until the cooldown elapses.
	StateOpen
	// StateHalfOpen admits a limited number of probe calls.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit. Default: 5.
	FailureThreshold int

	// Cooldown is how long the circuit stays open before probing.
	// Default: 30 seconds.
	Cooldown time.Duration

	// MaxProbes is the number of calls admitted while half-open.
	// Default: 1.
	MaxProbes int

	// Logger defaults to a no-op logger.
	Logger observe.Logger
}

// CircuitBreaker sheds reasoning-engine calls after consecutive
// failures so a dead upstream fails fast instead of holding streams
// open until their deadlines.
//
// Usage: Allow before the call, then Record with the outcome. A call
// rejected by Allow must not be recorded.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration
	maxProbes int
	logger    observe.Logger

	mu          sync.Mutex
	state       State
	failures    int
	probes      int
	lastFailure time.Time

	clock func() time.Time
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.MaxProbes <= 0 {
		cfg.MaxProbes = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &CircuitBreaker{
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
		maxProbes: cfg.MaxProbes,
		logger:    cfg.Logger.WithComponent("breaker"),
		state:     StateClosed,
		clock:     time.Now,
	}
}

// Allow reports whether a call may proceed. Returns ErrCircuitOpen
// while the circuit is shedding.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.maxProbes {
			return ErrCircuitOpen
		}
		cb.probes++
	}
	return nil
}

// Record reports the outcome of a call admitted by Allow.
func (cb *CircuitBreaker) Record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from := cb.state
	switch cb.state {
	case StateClosed:
		if success {
			cb.failures = 0
			break
		}
		cb.failures++
		cb.lastFailure = cb.clock()
		if cb.failures >= cb.threshold {
			cb.state = StateOpen
		}
	case StateHalfOpen:
		if success {
			cb.state = StateClosed
			cb.failures = 0
		} else {
			cb.lastFailure = cb.clock()
			cb.state = StateOpen
		}
	case StateOpen:
		// A straggler from before the circuit opened; the cooldown
		// already covers it.
		if !success {
			cb.lastFailure = cb.clock()
		}
	}

	if from != cb.state {
		cb.logger.Warn(context.Background(), "circuit state changed",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: cb.state.String()})
	}
}

// State returns the current state, promoting open to half-open once
// the cooldown has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

// Reset forces the circuit closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && cb.clock().Sub(cb.lastFailure) >= cb.cooldown {
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.logger.Warn(context.Background(), "circuit state changed",
			observe.Field{Key: "from", Value: StateOpen.String()},
			observe.Field{Key: "to", Value: StateHalfOpen.String()})
	}
	return cb.state
}
