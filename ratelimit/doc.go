// Package ratelimit provides per-principal admission control using
// tiered token buckets.
//
// Buckets live in a sharded map so unrelated principals never contend,
// and each bucket's state is updated through a compare-and-swap loop so
// concurrent calls for the same principal never double-spend a token.
package ratelimit
