package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookup operations when no record matches.
// It is a benign, expected outcome, not a failure of the store.
var ErrNotFound = errors.New("record not found")

// ErrUnavailable wraps failures of the underlying medium: the database
// cannot be opened or written. Never retried internally; retry policy
// belongs to the caller.
var ErrUnavailable = errors.New("store unavailable")

// ErrCorrupt wraps failures to deserialize persisted data. The store
// fails closed: no further appends are accepted until resolved.
var ErrCorrupt = errors.New("store corrupt")

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnavailable reports whether err is (or wraps) ErrUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsCorrupt reports whether err is (or wraps) ErrCorrupt.
func IsCorrupt(err error) bool { return errors.Is(err, ErrCorrupt) }

// classifyOpenError distinguishes a corrupt database file from an
// unavailable one. mattn/go-sqlite3 reports ErrNotADB when the file
// exists but is not a SQLite database.
func classifyOpenError(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrNotADB {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
