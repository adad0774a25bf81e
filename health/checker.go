package health

import (
	"context"
	"time"
)

// Status is the health of one component.
type Status int

const (
	// StatusHealthy means the component is fully functional.
	StatusHealthy Status = iota
	// StatusDegraded means the component works with reduced capability.
	StatusDegraded
	// StatusUnhealthy means the component is down.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	}
	return "unknown"
}

// Result is the outcome of one check.
type Result struct {
	Status   Status
	Message  string
	Err      error
	Duration time.Duration
}

// Checker probes one component.
type Checker interface {
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context) Result

func (f CheckerFunc) Check(ctx context.Context) Result { return f(ctx) }

// Pinger is the reachability probe shared by the SQLite store and the
// Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker adapts a Pinger: reachable is healthy, anything else is
// unhealthy.
func PingChecker(p Pinger) Checker {
	return CheckerFunc(func(ctx context.Context) Result {
		if err := p.Ping(ctx); err != nil {
			return Result{Status: StatusUnhealthy, Message: "unreachable", Err: err}
		}
		return Result{Status: StatusHealthy, Message: "reachable"}
	})
}

// StateFunc reports a circuit state as its string form.
type StateFunc func() string

// BreakerChecker derives engine health from its circuit breaker:
// closed is healthy, half-open degraded, open unhealthy.
func BreakerChecker(state StateFunc) Checker {
	return CheckerFunc(func(ctx context.Context) Result {
		switch s := state(); s {
		case "closed":
			return Result{Status: StatusHealthy, Message: "circuit closed"}
		case "half-open":
			return Result{Status: StatusDegraded, Message: "circuit probing"}
		default:
			return Result{Status: StatusUnhealthy, Message: "circuit " + s}
		}
	})
}
