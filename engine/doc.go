// Package engine is the HTTP client for the external reasoning engine.
//
// The engine speaks newline-delimited JSON: the first frame of a
// generation carries the citation set, subsequent frames carry answer
// fragments, and a final frame marks completion. The client adapts
// that wire protocol to the stream.Engine contract.
package engine
