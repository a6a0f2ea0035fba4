package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uamlab/uam/internal/ledger"
)

// RawRecord is an unparsed row, read exactly as persisted. Used by the
// lenient scan path (search, diagnostics) where a single damaged row
// must not abort the whole pass.
type RawRecord struct {
	Position      int64
	Kind          string
	Name          string
	Payload       string
	Timestamp     string
	PreviousHash  string
	Signature     string
	SchemaVersion int
}

// ReadAll returns every record in insertion order. Each call re-reads
// from durable state; results are not cached across calls. Fails with
// ErrCorrupt if any row cannot be deserialized (strict path - chain
// verification needs every record or none).
func (s *Store) ReadAll(ctx context.Context) ([]ledger.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, kind, name, payload, timestamp, previous_hash, signature, schema_version
		FROM records
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %w", ErrUnavailable, err)
	}

	if records == nil {
		records = []ledger.Record{}
	}

	return records, nil
}

// ReadByName returns all records for a kind+name in insertion order.
// Returns an empty slice (not nil) when none exist.
func (s *Store) ReadByName(ctx context.Context, kind ledger.Kind, name string) ([]ledger.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, kind, name, payload, timestamp, previous_hash, signature, schema_version
		FROM records
		WHERE kind = ? AND name = ?
		ORDER BY position ASC
	`, string(kind), name)
	if err != nil {
		return nil, fmt.Errorf("%w: query records by name: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records by name: %w", ErrUnavailable, err)
	}

	if records == nil {
		records = []ledger.Record{}
	}

	return records, nil
}

// Last returns the most recent record for a kind+name, or ErrNotFound.
func (s *Store) Last(ctx context.Context, kind ledger.Kind, name string) (ledger.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT position, kind, name, payload, timestamp, previous_hash, signature, schema_version
		FROM records
		WHERE kind = ? AND name = ?
		ORDER BY position DESC LIMIT 1
	`, string(kind), name)

	rec, err := scanRecordRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Record{}, fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
	}
	return rec, err
}

// Count returns the number of records in the store.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count records: %w", ErrUnavailable, err)
	}
	return n, nil
}

// ScanRaw streams every row in insertion order without parsing payloads.
// The callback may return an error to stop the scan early.
func (s *Store) ScanRaw(ctx context.Context, fn func(RawRecord) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, kind, name, payload, timestamp, previous_hash, signature, schema_version
		FROM records
		ORDER BY position ASC
	`)
	if err != nil {
		return fmt.Errorf("%w: query raw records: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw RawRecord
		var pos int64
		if err := rows.Scan(
			&pos, &raw.Kind, &raw.Name, &raw.Payload, &raw.Timestamp,
			&raw.PreviousHash, &raw.Signature, &raw.SchemaVersion,
		); err != nil {
			return fmt.Errorf("%w: scan raw record: %w", ErrUnavailable, err)
		}
		raw.Position = pos - 1
		if err := fn(raw); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate raw records: %w", ErrUnavailable, err)
	}

	return nil
}

// scanner is implemented by both *sql.Rows and *sql.Row.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(rows *sql.Rows) (ledger.Record, error) {
	rec, err := scanFrom(rows)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return rec, nil
}

func scanRecordRow(row *sql.Row) (ledger.Record, error) {
	rec, err := scanFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Record{}, err
		}
		return ledger.Record{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return rec, nil
}

func scanFrom(sc scanner) (ledger.Record, error) {
	var (
		pos           int64
		kindStr       string
		name          string
		payload       string
		timestamp     string
		previousHash  string
		signature     string
		schemaVersion int
	)
	if err := sc.Scan(&pos, &kindStr, &name, &payload, &timestamp, &previousHash, &signature, &schemaVersion); err != nil {
		return ledger.Record{}, err
	}

	kind, err := ledger.ParseKind(kindStr)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("record %d: %w", pos-1, err)
	}

	p, err := ledger.UnmarshalPayload(kind, payload)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("record %d: %w", pos-1, err)
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("record %d: parse timestamp: %w", pos-1, err)
	}

	return ledger.Record{
		Position:      pos - 1,
		Kind:          kind,
		Name:          name,
		Payload:       p,
		RawPayload:    payload,
		Timestamp:     ts.UTC(),
		PreviousHash:  previousHash,
		Signature:     signature,
		SchemaVersion: schemaVersion,
	}, nil
}
