package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/uamlab/uam/internal/ledger"
)

// createTestStore creates a fresh on-disk store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// constantDraft builds an unappended constant record. PreviousHash and
// Signature are filled in by Append.
func constantDraft(name string, value float64, at time.Time) ledger.Record {
	return ledger.Record{
		Kind: ledger.KindConstant,
		Name: name,
		Payload: ledger.ConstantPayload{
			Value: ledger.Float(value),
			Scale: ledger.ScaleDimensionless,
		},
		Timestamp:     at,
		SchemaVersion: ledger.SchemaVersion,
	}
}

// failureDraft builds an unappended failure record.
func failureDraft(name, context, reason string, at time.Time) ledger.Record {
	return ledger.Record{
		Kind: ledger.KindFailure,
		Name: name,
		Payload: ledger.FailurePayload{
			Context: context,
			Reason:  reason,
		},
		Timestamp:     at,
		SchemaVersion: ledger.SchemaVersion,
	}
}

var testBase = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
