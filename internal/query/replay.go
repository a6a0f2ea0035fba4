package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/uamlab/uam/internal/ledger"
	"github.com/uamlab/uam/internal/registry"
)

// Checker is the pluggable expression-validity collaborator. The ledger
// core makes no claim about what "valid" means - that belongs to an
// external symbolic or numeric engine. Implementations report whether
// the expression holds up and a human-readable detail string.
type Checker interface {
	Check(expr string) (valid bool, detail string, err error)
}

// EvaluationError is the failure mode a Checker raises when it cannot
// evaluate the expression at all (as opposed to evaluating it and
// finding it unstable). Replay converts it to StatusUnparseable.
type EvaluationError struct {
	Expr string
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Expr, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// ReplayStatus classifies the outcome of replaying a derivation.
type ReplayStatus string

const (
	// StatusValid: the checker evaluated the formula and it held up.
	StatusValid ReplayStatus = "valid"

	// StatusUnstable: the checker evaluated the formula and it did not
	// hold up.
	StatusUnstable ReplayStatus = "unstable"

	// StatusUnparseable: the checker could not evaluate the formula.
	StatusUnparseable ReplayStatus = "unparseable"
)

// ReplayResult reports a replay outcome together with the ledger record
// that was appended to capture it.
type ReplayResult struct {
	Name    string        `json:"name"`
	Status  ReplayStatus  `json:"status"`
	Detail  string        `json:"detail,omitempty"`
	Outcome ledger.Record `json:"-"` // the record appended for this replay
}

// Replay loads the most recent derivation with the given name, re-runs
// its stored formula through the checker, and appends exactly one
// record capturing the outcome:
//
//   - StatusValid: a superseding derivation record with reproducible
//     set true (the informational record - the derivation's current
//     value now reflects the successful replay)
//   - StatusUnstable, StatusUnparseable: a failure record
//
// A checker failure never corrupts the ledger; it becomes part of it.
// Returns store.ErrNotFound (wrapped) if no derivation has that name.
func (q *Query) Replay(ctx context.Context, reg *registry.Registry, checker Checker, name string) (ReplayResult, error) {
	rec, err := q.store.Last(ctx, ledger.KindDerivation, name)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %q: %w", name, err)
	}
	payload := rec.Payload.(ledger.DerivationPayload)

	result := ReplayResult{Name: name}

	valid, detail, err := checker.Check(payload.Formula)
	switch {
	case err != nil:
		var evalErr *EvaluationError
		if !errors.As(err, &evalErr) {
			// Generic checker errors are treated the same way: the
			// formula could not be evaluated.
			evalErr = &EvaluationError{Expr: payload.Formula, Err: err}
		}
		result.Status = StatusUnparseable
		result.Detail = evalErr.Error()
	case valid:
		result.Status = StatusValid
		result.Detail = detail
	default:
		result.Status = StatusUnstable
		result.Detail = detail
	}

	outcome, err := q.logOutcome(ctx, reg, payload, result)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %q: %w", name, err)
	}
	result.Outcome = outcome

	return result, nil
}

// logOutcome appends the single record summarizing a replay.
func (q *Query) logOutcome(ctx context.Context, reg *registry.Registry, payload ledger.DerivationPayload, result ReplayResult) (ledger.Record, error) {
	if result.Status == StatusValid {
		description := payload.Description
		if result.Detail != "" {
			description = fmt.Sprintf("%s (replay: %s)", payload.Description, result.Detail)
		}
		return reg.RegisterDerivation(ctx, result.Name, payload.Formula, description, payload.Scale, true)
	}

	reason := fmt.Sprintf("%s: %s", result.Status, result.Detail)
	return reg.RegisterFailure(ctx, fmt.Sprintf("replay %s", result.Name), reason)
}
