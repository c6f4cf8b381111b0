// Package trace records the handler calls of a harness run.
//
// A Recorder decorates a handler table so that every call becomes an
// Event. Events render to RFC 8785 canonical JSON, one event per line, so
// traces can be hashed, stored and compared against golden files
// byte-for-byte.
package trace
