// Package auth provides the principal model and session-token primitives
// for the gateway.
//
// It defines rate-limit tiers, an HMAC-signed session token codec, and
// context plumbing so downstream packages can retrieve the authenticated
// principal without depending on the transport layer.
package auth
