package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRecord is the domain-separation prefix for record signatures.
// The version suffix enables future algorithm migration.
const DomainRecord = "uam/record/v1"

// GenesisMarker is the fixed string anchoring the chain. Its SHA-256
// hash seeds the previous_hash of the first record. Changing this value
// invalidates every existing ledger, so it is versioned.
const GenesisMarker = "uam/ledger/genesis/v1"

// GenesisHash returns hex(SHA-256(GenesisMarker)), the previous_hash of
// the first record and the head of an empty chain.
func GenesisHash() string {
	sum := sha256.Sum256([]byte(GenesisMarker))
	return hex.EncodeToString(sum[:])
}

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SignatureOf computes the content signature of a record: the
// domain-separated SHA-256 of its canonical serialization, covering
// every field except Position and the signature itself. It is a pure
// function - recomputing it for a stored record must reproduce the
// stored signature exactly.
func SignatureOf(r Record) (string, error) {
	canonical, err := MarshalCanonical(r.signedObject())
	if err != nil {
		return "", fmt.Errorf("SignatureOf: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// MustSignatureOf is like SignatureOf but panics on error. Use only in
// tests or when inputs are known to be valid.
func MustSignatureOf(r Record) string {
	sig, err := SignatureOf(r)
	if err != nil {
		panic(err)
	}
	return sig
}
