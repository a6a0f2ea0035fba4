package ledger

import (
	"errors"
	"fmt"
)

// BreakCode categorizes how a chain failed verification.
type BreakCode string

const (
	// BreakSignatureMismatch means a record's stored signature does not
	// match its recomputed content hash (the record was edited).
	BreakSignatureMismatch BreakCode = "SIGNATURE_MISMATCH"

	// BreakBrokenLink means a record's previous_hash does not match its
	// predecessor's signature (reordering, deletion, or splice).
	BreakBrokenLink BreakCode = "BROKEN_LINK"

	// BreakUnsignable means a record could not be canonically serialized
	// for verification.
	BreakUnsignable BreakCode = "UNSIGNABLE"
)

// ChainError reports the first integrity break found in a chain.
type ChainError struct {
	Code  BreakCode
	Index int64 // position of the offending record
	Err   error // underlying cause, if any
}

func (e *ChainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at record %d: %v", e.Code, e.Index, e.Err)
	}
	return fmt.Sprintf("%s at record %d", e.Code, e.Index)
}

func (e *ChainError) Unwrap() error { return e.Err }

// IsChainError reports whether err is (or wraps) a ChainError.
func IsChainError(err error) bool {
	var ce *ChainError
	return errors.As(err, &ce)
}

// ChainReport is the result of walking a chain.
type ChainReport struct {
	OK         bool   `json:"ok"`
	Records    int    `json:"records"`
	FirstBreak *int64 `json:"first_break_index,omitempty"`
	Head       string `json:"head"` // signature of the last record, or the genesis hash
	Detail     string `json:"detail,omitempty"`
}

// VerifyChain walks records in insertion order, recomputing each
// signature and checking previous_hash linkage. It stops at the first
// break and reports its index. An empty chain verifies OK with the
// genesis hash as head.
//
// Records must be the complete store content in insertion order;
// verifying a suffix will fail at its first record because the link to
// the (absent) predecessor cannot be checked against genesis.
func VerifyChain(records []Record) (ChainReport, error) {
	report := ChainReport{
		OK:      true,
		Records: len(records),
		Head:    GenesisHash(),
	}

	prev := GenesisHash()
	for i := range records {
		r := records[i]
		idx := int64(i)

		if r.PreviousHash != prev {
			report.OK = false
			report.FirstBreak = &idx
			report.Detail = string(BreakBrokenLink)
			return report, &ChainError{Code: BreakBrokenLink, Index: idx}
		}

		sig, err := SignatureOf(r)
		if err != nil {
			report.OK = false
			report.FirstBreak = &idx
			report.Detail = string(BreakUnsignable)
			return report, &ChainError{Code: BreakUnsignable, Index: idx, Err: err}
		}
		if r.RawPayload != "" {
			// Edits the typed roundtrip normalizes away (extraneous keys,
			// reformatting) still invalidate the record.
			canonical, err := r.MarshalPayload()
			if err != nil || canonical != r.RawPayload {
				report.OK = false
				report.FirstBreak = &idx
				report.Detail = string(BreakSignatureMismatch)
				return report, &ChainError{Code: BreakSignatureMismatch, Index: idx, Err: err}
			}
		}
		if sig != r.Signature {
			report.OK = false
			report.FirstBreak = &idx
			report.Detail = string(BreakSignatureMismatch)
			return report, &ChainError{Code: BreakSignatureMismatch, Index: idx}
		}

		prev = r.Signature
	}

	report.Head = prev
	return report, nil
}
