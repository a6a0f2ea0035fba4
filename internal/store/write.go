package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uamlab/uam/internal/ledger"
)

// Append durably appends a record after all existing records.
//
// The caller supplies Kind, Name, Payload, Timestamp, and SchemaVersion;
// PreviousHash, Signature, and Position are filled in here, inside a
// single transaction, so the chain linkage is always computed against
// the actual head at commit time. Appends are serialized by the store
// mutex; either the full record is durably appended or nothing is.
//
// The timestamp is clamped to the head record's timestamp, so store
// timestamps never decrease even across process restarts with a
// stepped-back wall clock. The registry clock only guards within one
// process; the durable head is the cross-restart floor.
func (s *Store) Append(ctx context.Context, rec ledger.Record) (ledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: append: begin tx: %w", ErrUnavailable, err)
	}
	defer tx.Rollback() // No-op if committed

	head, err := headState(ctx, tx)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("append: %w", err)
	}
	rec.PreviousHash = head.signature

	rec.Timestamp = rec.Timestamp.UTC().Truncate(time.Second)
	if rec.Timestamp.Before(head.timestamp) {
		rec.Timestamp = head.timestamp
	}

	sig, err := ledger.SignatureOf(rec)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("append: %w", err)
	}
	rec.Signature = sig

	payload, err := rec.MarshalPayload()
	if err != nil {
		return ledger.Record{}, fmt.Errorf("append: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO records
		(kind, name, payload, timestamp, previous_hash, signature, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		string(rec.Kind),
		rec.Name,
		payload,
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.PreviousHash,
		rec.Signature,
		rec.SchemaVersion,
	)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: append: insert: %w", ErrUnavailable, err)
	}

	rowid, err := result.LastInsertId()
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: append: last insert id: %w", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return ledger.Record{}, fmt.Errorf("%w: append: commit: %w", ErrUnavailable, err)
	}

	// rowid is 1-based; exposed positions are zero-based insertion indexes.
	rec.Position = rowid - 1
	rec.RawPayload = payload
	return rec, nil
}

// Head returns the signature of the most recent record, or the genesis
// hash for an empty store.
func (s *Store) Head(ctx context.Context) (string, error) {
	head, err := headState(ctx, s.db)
	if err != nil {
		return "", err
	}
	return head.signature, nil
}

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// chainHead is the state Append links against: the last record's
// signature and timestamp. An empty store has the genesis hash and a
// zero timestamp.
type chainHead struct {
	signature string
	timestamp time.Time
}

func headState(ctx context.Context, q querier) (chainHead, error) {
	var sig, ts string
	err := q.QueryRowContext(ctx, `
		SELECT signature, timestamp FROM records
		ORDER BY position DESC LIMIT 1
	`).Scan(&sig, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return chainHead{signature: ledger.GenesisHash()}, nil
	}
	if err != nil {
		return chainHead{}, fmt.Errorf("%w: head: %w", ErrUnavailable, err)
	}

	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return chainHead{}, fmt.Errorf("%w: head: parse timestamp: %w", ErrCorrupt, err)
	}
	return chainHead{signature: sig, timestamp: parsed.UTC()}, nil
}
