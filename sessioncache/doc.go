// Package sessioncache provides a fail-open, TTL-bound cache of
// validated sessions in front of the durable session store.
//
// A miss never means the session is invalid, only that the caller must
// re-validate against the durable store. Backend failures are treated
// exactly like misses: the cache is a pure optimization layer and never
// a source of truth. Entries carry a secondary user index so every
// session for a user can be dropped at once on logout-everywhere or
// credential rotation.
package sessioncache
