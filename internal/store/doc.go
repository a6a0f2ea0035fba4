// Package store provides SQLite-backed durable storage for the UAM
// provenance ledger.
//
// The store is an append-only log of ledger.Record rows:
//   - Records are only ever inserted, never updated or deleted
//   - "Current value" of a name is the last record with that kind+name;
//     earlier records remain as revision history
//   - Every record is hash-linked to its predecessor; the first record
//     links to the genesis hash
//
// Appends are serialized by a mutex scoped to the store handle and run
// in a single transaction: the chain head is read, the new record's
// previous_hash and signature are filled in, and the row is inserted
// atomically. Readers never observe a partially written record.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - single connection: SQLite allows one writer at a time
//
// Signatures are computed via internal/ledger using canonical JSON and
// SHA-256 with domain separation.
package store
