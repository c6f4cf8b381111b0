// Package store provides SQLite-backed storage for suite runs.
//
// Each run is stored with its totals, one row per case teardown and the
// full recorded trace:
//   - runs: one row per suite run, keyed by a UUIDv7
//   - case_results: case teardowns in the order they happened
//   - events: the trace, each event content-addressed by trace.EventID
//
// Runs are ordered by a logical seq assigned on write, never by their
// timestamp, so listings are stable regardless of wall time. Every query
// ends in ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
