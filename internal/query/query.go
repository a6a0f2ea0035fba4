// Package query is the read side of the UAM provenance ledger:
// current-value and history lookups, full-text search over serialized
// records, chain verification, and derivation replay.
//
// All operations re-read from durable state; nothing is cached across
// calls. The only write this package ever performs is the single record
// a replay appends to summarize its own outcome.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/uamlab/uam/internal/ledger"
	"github.com/uamlab/uam/internal/store"
)

// Query provides read-only inspection over a store.
type Query struct {
	store *store.Store
}

// New creates a Query over an opened store.
func New(st *store.Store) *Query {
	return &Query{store: st}
}

// Current returns the most recent record matching kind+name.
// Returns store.ErrNotFound (wrapped) if none exists.
func (q *Query) Current(ctx context.Context, kind ledger.Kind, name string) (ledger.Record, error) {
	return q.store.Last(ctx, kind, name)
}

// History returns all records for kind+name in insertion order: the full
// revision history, oldest first. Empty slice when none exist.
func (q *Query) History(ctx context.Context, kind ledger.Kind, name string) ([]ledger.Record, error) {
	return q.store.ReadByName(ctx, kind, name)
}

// Hit identifies a record matched by Search.
type Hit struct {
	Position int64       `json:"position"`
	Kind     ledger.Kind `json:"kind"`
	Name     string      `json:"name"`
}

// SkippedRow reports a row the search scan could not interpret.
// Damaged rows are skipped, not silently dropped: history must remain
// inspectable even if one entry is broken, and the caller must know.
type SkippedRow struct {
	Position int64  `json:"position"`
	Reason   string `json:"reason"`
}

// Search performs a case-insensitive substring match over the serialized
// content of every record (kind, name, payload, timestamp). Matches are
// returned in store order, unranked. Rows whose kind or payload cannot
// be parsed are skipped and reported in the second return value.
func (q *Query) Search(ctx context.Context, text string) ([]Hit, []SkippedRow, error) {
	needle := strings.ToLower(text)
	hits := []Hit{}
	skipped := []SkippedRow{}

	err := q.store.ScanRaw(ctx, func(raw store.RawRecord) error {
		if _, err := ledger.ParseKind(raw.Kind); err != nil {
			skipped = append(skipped, SkippedRow{Position: raw.Position, Reason: err.Error()})
			return nil
		}
		if _, err := ledger.UnmarshalPayload(ledger.Kind(raw.Kind), raw.Payload); err != nil {
			skipped = append(skipped, SkippedRow{Position: raw.Position, Reason: err.Error()})
			return nil
		}

		haystack := strings.ToLower(strings.Join([]string{
			raw.Kind, raw.Name, raw.Payload, raw.Timestamp,
		}, "\n"))
		if strings.Contains(haystack, needle) {
			hits = append(hits, Hit{
				Position: raw.Position,
				Kind:     ledger.Kind(raw.Kind),
				Name:     raw.Name,
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("search: %w", err)
	}

	return hits, skipped, nil
}

// VerifyChain re-reads the full store and walks the hash chain.
// The returned report carries the first break index on failure; the
// error (a ledger.ChainError) is returned alongside it.
func (q *Query) VerifyChain(ctx context.Context) (ledger.ChainReport, error) {
	records, err := q.store.ReadAll(ctx)
	if err != nil {
		return ledger.ChainReport{}, fmt.Errorf("verify chain: %w", err)
	}
	return ledger.VerifyChain(records)
}
