// Package answercache stores previously generated answers keyed by a
// deterministic fingerprint of the normalized (game, question) pair.
//
// It provides tag- and game-scoped invalidation with linearizable
// semantics, hit/miss statistics computed from live state, and SHA-256
// based fingerprinting that is insensitive to question casing and
// whitespace. Entries live in a sharded map so unrelated fingerprints
// never contend.
package answercache
