package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the current record schema version. Version is data:
// older records keep the version they were written with, and readers can
// branch on it instead of maintaining parallel code paths.
const SchemaVersion = 1

// Kind tags the variant of a Record.
type Kind string

const (
	KindConstant   Kind = "constant"
	KindDerivation Kind = "derivation"
	KindDataset    Kind = "dataset"
	KindFailure    Kind = "failure"
)

// ValidKinds defines the allowed record kinds.
var ValidKinds = map[Kind]bool{
	KindConstant:   true,
	KindDerivation: true,
	KindDataset:    true,
	KindFailure:    true,
}

// ParseKind converts a string to a Kind, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !ValidKinds[k] {
		return "", fmt.Errorf("unknown record kind %q", s)
	}
	return k, nil
}

// Scale classifies the regime a constant or derivation belongs to.
type Scale string

const (
	ScaleAnalytic      Scale = "analytic"
	ScaleContinuum     Scale = "continuum"
	ScaleDimensionless Scale = "dimensionless"
	ScaleMacroscopic   Scale = "macroscopic"
	ScaleQuantum       Scale = "quantum"
	ScaleCosmic        Scale = "cosmic"
	ScaleFluid         Scale = "fluid"
)

// ValidScales defines the allowed scales.
var ValidScales = map[Scale]bool{
	ScaleAnalytic:      true,
	ScaleContinuum:     true,
	ScaleDimensionless: true,
	ScaleMacroscopic:   true,
	ScaleQuantum:       true,
	ScaleCosmic:        true,
	ScaleFluid:         true,
}

// ParseScale converts a string to a Scale, rejecting unknown values.
func ParseScale(s string) (Scale, error) {
	sc := Scale(s)
	if !ValidScales[sc] {
		return "", fmt.Errorf("unknown scale %q", s)
	}
	return sc, nil
}

// Payload is the kind-specific body of a Record. Sealed: exactly one
// implementation per Kind.
type Payload interface {
	Kind() Kind
	// object returns the canonical form used for signing and storage.
	object() Object
}

// ConstantPayload records a mathematical or physical constant.
type ConstantPayload struct {
	Value          Value  `json:"value"`
	DerivationNote string `json:"derivation_note"`
	Scale          Scale  `json:"scale"`
	Source         string `json:"source"`
	Explanation    string `json:"explanation"`
}

func (ConstantPayload) Kind() Kind { return KindConstant }

func (p ConstantPayload) object() Object {
	return Object{
		"value":           p.Value,
		"derivation_note": String(p.DerivationNote),
		"scale":           String(p.Scale),
		"source":          String(p.Source),
		"explanation":     String(p.Explanation),
	}
}

// DerivationPayload records a derived equation or formula. The formula
// is an opaque string; this package makes no validity claims about it.
type DerivationPayload struct {
	Formula      string `json:"formula"`
	Description  string `json:"description"`
	Scale        Scale  `json:"scale"`
	Reproducible bool   `json:"reproducible"`
}

func (DerivationPayload) Kind() Kind { return KindDerivation }

func (p DerivationPayload) object() Object {
	return Object{
		"formula":      String(p.Formula),
		"description":  String(p.Description),
		"scale":        String(p.Scale),
		"reproducible": Bool(p.Reproducible),
	}
}

// DatasetPayload records a dataset or experimental reference.
type DatasetPayload struct {
	Description string `json:"description"`
	Source      string `json:"source"`
	Validated   bool   `json:"validated"`
}

func (DatasetPayload) Kind() Kind { return KindDataset }

func (p DatasetPayload) object() Object {
	return Object{
		"description": String(p.Description),
		"source":      String(p.Source),
		"validated":   Bool(p.Validated),
	}
}

// FailurePayload records a failed derivation or experiment. Failure
// records accumulate: they are never superseded.
type FailurePayload struct {
	Context string `json:"context"`
	Reason  string `json:"reason"`
}

func (FailurePayload) Kind() Kind { return KindFailure }

func (p FailurePayload) object() Object {
	return Object{
		"context": String(p.Context),
		"reason":  String(p.Reason),
	}
}

// Record is the atomic unit of the ledger. Once appended it is never
// mutated or deleted; a later record with the same kind and name
// supersedes it for "current value" queries while the full history
// remains.
type Record struct {
	// Position is the insertion index in the store, assigned at append
	// time. Zero-based for the first real record.
	Position int64

	Kind    Kind
	Name    string
	Payload Payload

	// RawPayload is the canonical payload text exactly as persisted.
	// Filled on read; verification compares it against the re-serialized
	// typed payload so edits the typed roundtrip would normalize away
	// (extraneous keys, whitespace) are still caught.
	RawPayload string

	Timestamp time.Time // UTC, monotonically non-decreasing across the store

	// PreviousHash is the signature of the immediately preceding record,
	// or GenesisHash() for the first record.
	PreviousHash string

	// Signature is the content hash of all other fields (except Position,
	// which is storage bookkeeping, and Signature itself).
	Signature string

	SchemaVersion int
}

// signedObject returns the canonical object covered by the signature.
func (r Record) signedObject() Object {
	return Object{
		"kind":           String(r.Kind),
		"name":           String(r.Name),
		"payload":        r.Payload.object(),
		"timestamp":      String(r.Timestamp.UTC().Format(time.RFC3339)),
		"previous_hash":  String(r.PreviousHash),
		"schema_version": Int(r.SchemaVersion),
	}
}

// MarshalPayload serializes the payload to canonical JSON for storage.
func (r Record) MarshalPayload() (string, error) {
	data, err := MarshalCanonical(r.Payload.object())
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", r.Kind, err)
	}
	return string(data), nil
}

// UnmarshalPayload parses stored canonical JSON into the typed payload
// for the given kind.
func UnmarshalPayload(kind Kind, data string) (Payload, error) {
	switch kind {
	case KindConstant:
		var obj Object
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			return nil, fmt.Errorf("unmarshal constant payload: %w", err)
		}
		p := ConstantPayload{Value: obj["value"]}
		p.DerivationNote = objString(obj, "derivation_note")
		p.Scale = Scale(objString(obj, "scale"))
		p.Source = objString(obj, "source")
		p.Explanation = objString(obj, "explanation")
		if p.Value == nil {
			return nil, fmt.Errorf("unmarshal constant payload: missing value")
		}
		return p, nil
	case KindDerivation:
		var p DerivationPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("unmarshal derivation payload: %w", err)
		}
		return p, nil
	case KindDataset:
		var p DatasetPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("unmarshal dataset payload: %w", err)
		}
		return p, nil
	case KindFailure:
		var p FailurePayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("unmarshal failure payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

func objString(obj Object, key string) string {
	if s, ok := obj[key].(String); ok {
		return string(s)
	}
	return ""
}
