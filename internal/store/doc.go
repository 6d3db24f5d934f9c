// Package store provides SQLite-backed durable storage for forge run logs.
//
// The store implements an append-only log with:
//   - Runs: one row per execution, holding the canonical program, its hash,
//     the step bound and, once finished, the final storage and state
//   - Firings: one row per committed recipe application, keyed by
//     (run_id, seq)
//
// # Ordering
//
// All ordering uses seq INTEGER (logical clock), never timestamps. Queries
// over firings use ORDER BY seq ASC, and run listings order by id, which is
// a time-sortable UUIDv7 for runs created by the executor. Identical logs
// therefore read back identically.
//
// # Idempotency
//
// Firing writes use ON CONFLICT DO NOTHING on (run_id, seq), so replaying a
// recorder flush is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Programs and multisets are stored as canonical JSON produced by
// ir.MarshalCanonical, and the program hash comes from ir.ProgramHash.
package store
