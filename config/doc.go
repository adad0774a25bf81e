// Package config loads the gateway's runtime configuration.
//
// Scalar settings come from environment variables; the rate-limit tier
// table comes from an optional YAML file. Sensitive values (the session
// signing key, the Redis password) may be secret references resolved
// through the secret package.
package config
