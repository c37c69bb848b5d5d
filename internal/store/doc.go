// Package store provides SQLite-backed durable storage for pending sale
// intents and the reference-data caches around them.
//
// The store holds three kinds of records:
//   - Intents: one row per finalized sale, keyed by local_id
//   - Cache records: replace-all snapshots of remote reference data
//     (products, payment methods)
//   - Settings: a small key/value table
//
// # Intent invariants
//
//   - local_id is UNIQUE. Append fails on conflict, it never overwrites.
//   - status moves pending -> synced only. No method writes pending.
//   - remote_id is set iff status = synced (CHECK constraint).
//   - ListAll orders by seq ASC, local_id ASC COLLATE BINARY, so
//     processing order is insertion order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=FULL: a commit is on disk before the call returns
//   - busy_timeout=5000: wait for locks up to 5 seconds
//
// Every error returned from a Store method is a *sale.Error with code
// STORAGE.
package store
