// Package sessionstore provides the durable session source of truth the
// session cache falls back to on a miss.
//
// It defines the Store interface with a SQLite implementation. The
// session cache in front of this store is a pure optimization layer;
// this store decides whether a token is actually valid.
package sessionstore
