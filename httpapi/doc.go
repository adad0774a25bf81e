// Package httpapi is the gateway's HTTP surface.
//
// One streaming endpoint serves answers as server-sent events; admin
// endpoints expose cache statistics and invalidation; /healthz reports
// component health. Every response carries the caller's rate-limit
// telemetry headers. Session resolution happens in middleware so
// handlers only ever see a principal.
package httpapi
