// Package health reports the liveness of the gateway's dependencies.
//
// Each dependency registers a Checker: the session store and Redis
// through ping adapters, the reasoning engine through its circuit
// breaker's state. The Registry runs all checks in parallel under one
// deadline and folds the results into a single status for /healthz.
package health
