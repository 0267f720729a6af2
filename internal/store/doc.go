// Package store provides SQLite-backed durable storage for exprstate.
//
// The store holds three tables:
//   - expressions: content-addressed expression payloads (append-only)
//   - projects: project snapshots keyed by project hash, with a logical seq
//   - session_kv: session-scoped key/value records for the persistence adapter
//
// # Critical Patterns
//
// Content addressing:
//   - expressions.hash is the PRIMARY KEY; writes use ON CONFLICT DO NOTHING
//   - a second write of different content under the same hash is reported as
//     a *contentstore.ConflictError, never silently accepted
//
// Payload encoding:
//   - expression payloads are JSON compressed with zstd
//   - project binding maps are stored as canonical JSON (RFC 8785)
//
// Deterministic reads:
//   - LatestProject orders by seq DESC, hash ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
