// Package secret resolves sensitive configuration values.
//
// Values pass through strict environment expansion first; values of
// the form "secretref:<provider>:<ref>" are then handed to a named
// provider. The gateway registers the env and file providers and runs
// its session signing key and Redis password through a Resolver, so a
// deployment can point either at a mounted secret file instead of
// inlining it.
package secret
