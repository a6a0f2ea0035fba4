// Package registry is the only writer path into the UAM provenance
// ledger. It builds kind-specific payloads, stamps them with a
// monotonic timestamp, and appends them through the store, which fills
// in the hash-chain linkage.
//
// Registration is append-only with full history: registering a constant
// or dataset under an existing name does not overwrite it - it appends a
// superseding record, and "current value" queries resolve to the most
// recent one. Failure records accumulate and are never superseded.
package registry

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/uamlab/uam/internal/ledger"
	"github.com/uamlab/uam/internal/store"
)

// Registry is the write-side facade over a Store.
type Registry struct {
	store *store.Store
	clock Clock
}

// New creates a Registry over an opened store using the wall-clock
// based monotonic clock.
func New(st *store.Store) *Registry {
	return NewWithClock(st, NewClock())
}

// NewWithClock creates a Registry with an explicit clock. Tests use a
// fixed clock for deterministic signatures.
func NewWithClock(st *store.Store, clock Clock) *Registry {
	return &Registry{store: st, clock: clock}
}

// Store exposes the underlying store for read-side collaborators.
func (r *Registry) Store() *store.Store {
	return r.store
}

// RegisterConstant appends a constant record. A later registration with
// the same name supersedes earlier ones for current-value queries; the
// full revision history is retained.
func (r *Registry) RegisterConstant(ctx context.Context, name string, value ledger.Value, derivationNote string, scale ledger.Scale, source, explanation string) (ledger.Record, error) {
	if name == "" {
		return ledger.Record{}, fmt.Errorf("register constant: name is required")
	}
	if value == nil {
		return ledger.Record{}, fmt.Errorf("register constant %q: value is required", name)
	}
	if !ledger.ValidScales[scale] {
		return ledger.Record{}, fmt.Errorf("register constant %q: unknown scale %q", name, scale)
	}

	return r.append(ctx, name, ledger.ConstantPayload{
		Value:          value,
		DerivationNote: derivationNote,
		Scale:          scale,
		Source:         source,
		Explanation:    explanation,
	})
}

// RegisterDerivation appends a derivation record. The formula is stored
// as an opaque string; no validity claim is made here.
func (r *Registry) RegisterDerivation(ctx context.Context, name, formula, description string, scale ledger.Scale, reproducible bool) (ledger.Record, error) {
	if name == "" {
		return ledger.Record{}, fmt.Errorf("register derivation: name is required")
	}
	if formula == "" {
		return ledger.Record{}, fmt.Errorf("register derivation %q: formula is required", name)
	}
	if !ledger.ValidScales[scale] {
		return ledger.Record{}, fmt.Errorf("register derivation %q: unknown scale %q", name, scale)
	}

	return r.append(ctx, name, ledger.DerivationPayload{
		Formula:      formula,
		Description:  description,
		Scale:        scale,
		Reproducible: reproducible,
	})
}

// RegisterDataset appends a dataset record.
func (r *Registry) RegisterDataset(ctx context.Context, name, description, source string, validated bool) (ledger.Record, error) {
	if name == "" {
		return ledger.Record{}, fmt.Errorf("register dataset: name is required")
	}

	return r.append(ctx, name, ledger.DatasetPayload{
		Description: description,
		Source:      source,
		Validated:   validated,
	})
}

// RegisterFailure appends a failure record. Failures have no caller
// supplied key; each gets a generated UUID name so individual failures
// remain addressable in history queries.
func (r *Registry) RegisterFailure(ctx context.Context, failureContext, reason string) (ledger.Record, error) {
	if failureContext == "" {
		return ledger.Record{}, fmt.Errorf("register failure: context is required")
	}

	return r.append(ctx, uuid.NewString(), ledger.FailurePayload{
		Context: failureContext,
		Reason:  reason,
	})
}

// append stamps and durably appends one record. The store fills in
// previous_hash and signature inside its transaction; either the full
// record lands or nothing does.
func (r *Registry) append(ctx context.Context, name string, payload ledger.Payload) (ledger.Record, error) {
	rec := ledger.Record{
		Kind:          payload.Kind(),
		Name:          name,
		Payload:       payload,
		Timestamp:     r.clock.Now(),
		SchemaVersion: ledger.SchemaVersion,
	}

	appended, err := r.store.Append(ctx, rec)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("register %s %q: %w", rec.Kind, name, err)
	}
	return appended, nil
}
