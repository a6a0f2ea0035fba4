// Package ledger defines the record model of the UAM provenance ledger:
// typed records (constants, derivations, datasets, failures), canonical
// JSON serialization, content-addressed signatures, and hash-chain
// verification.
//
// # Structure
//
//   - Record: one logged event, hash-linked to its predecessor
//   - Value: constrained value types used inside payloads
//   - MarshalCanonical: deterministic serialization used for signing
//   - SignatureOf / VerifyChain: integrity primitives
//
// All signatures are SHA-256 with domain separation over canonical JSON.
// Canonical serialization sorts object keys by UTF-16 code units and NFC
// normalizes strings, so two records with identical field values always
// produce identical bytes and therefore identical signatures.
//
// The chain is anchored by a fixed genesis marker: the previous_hash of
// the first record is SHA256(GenesisMarker). Any mutation of a stored
// record, any reordering, and any truncation in the middle of the chain
// is detectable by VerifyChain.
package ledger
