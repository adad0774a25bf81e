package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds one full registry sweep.
const DefaultCheckTimeout = 5 * time.Second

// Registry holds the gateway's component checkers and runs them as one
// parallel sweep.
type Registry struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewRegistry creates a registry. A non-positive timeout falls back to
// DefaultCheckTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Registry{
		timeout:  timeout,
		checkers: make(map[string]Checker),
	}
}

// Register adds a checker under a component name. Re-registering a
// name replaces the checker but keeps its position.
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.checkers[name]; !ok {
		r.order = append(r.order, name)
	}
	r.checkers[name] = checker
}

// Check runs one named checker.
func (r *Registry) Check(ctx context.Context, name string) (Result, error) {
	r.mu.RLock()
	checker, ok := r.checkers[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}
	return r.run(ctx, checker), nil
}

// CheckAll sweeps every registered checker in parallel under the
// registry deadline.
func (r *Registry) CheckAll(ctx context.Context) map[string]Result {
	r.mu.RLock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	checkers := make(map[string]Checker, len(r.checkers))
	for name, c := range r.checkers {
		checkers[name] = c
	}
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results := make(map[string]Result, len(names))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			res := r.run(ctx, checkers[name])
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return results
}

// Overall folds a sweep into a single status: any unhealthy component
// makes the gateway unhealthy, otherwise any degraded one makes it
// degraded.
func Overall(results map[string]Result) Status {
	overall := StatusHealthy
	for _, res := range results {
		switch res.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// run executes one checker, converting a blown deadline into an
// unhealthy result so a stuck dependency cannot stall the sweep.
func (r *Registry) run(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		done <- checker.Check(ctx)
	}()

	select {
	case res := <-done:
		res.Duration = time.Since(start)
		return res
	case <-ctx.Done():
		return Result{
			Status:   StatusUnhealthy,
			Message:  "check timed out",
			Err:      ErrCheckTimeout,
			Duration: time.Since(start),
		}
	}
}
