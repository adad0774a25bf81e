// Package resilience protects the gateway's capacity and its upstream.
//
// Bulkhead caps the number of in-flight answer streams so a burst of
// long-lived connections cannot exhaust the process; admission is
// all-or-nothing, a full bulkhead rejects immediately. CircuitBreaker
// tracks consecutive reasoning-engine failures and sheds calls while
// the engine is unhealthy, probing for recovery after a cooldown.
package resilience
