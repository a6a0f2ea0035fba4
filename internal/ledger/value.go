package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the types a payload field may carry.
// Only String, Int, Float, Bool, Array, and Object implement it.
// Null is forbidden: absent fields are simply omitted.
type Value interface {
	ledgerValue()
}

// String is a string payload value.
type String string

func (String) ledgerValue() {}

// Int is an integer payload value. Always int64.
type Int int64

func (Int) ledgerValue() {}

// Float is a floating-point payload value.
//
// Unlike logical-clock event logs, a constants ledger is dominated by
// numeric values (0.678, 1.189207, ...), so floats are first-class here.
// Canonical serialization uses strconv shortest-form formatting, which is
// deterministic for a given bit pattern. NaN and infinities are rejected
// at serialization time.
type Float float64

func (Float) ledgerValue() {}

// Bool is a boolean payload value.
type Bool bool

func (Bool) ledgerValue() {}

// Array is an ordered list of Values.
type Array []Value

func (Array) ledgerValue() {}

// Object maps string keys to Values. Use SortedKeys for deterministic
// iteration.
type Object map[string]Value

func (Object) ledgerValue() {}

// SortedKeys returns keys in canonical order (UTF-16 code units, per
// RFC 8785). Go's sort.Strings compares UTF-8 bytes, which produces a
// different order for strings containing supplementary-plane characters.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units as required for
// canonical key ordering. utf16.Encode handles surrogate pairs correctly.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := len(a16)
	if len(b16) < n {
		n = len(b16)
	}
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// ToValue converts a plain Go value (as produced by json.Unmarshal or
// flag parsing) into a Value. Numbers arriving as json.Number are kept
// integral when possible.
func ToValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in ledger values")
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case float32:
		return Float(val), nil
	case bool:
		return Bool(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val.String(), err)
		}
		return Float(f), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			lv, err := ToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = lv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			lv, err := ToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = lv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported ledger value type: %T", v)
	}
}

// ToGo converts a Value back to plain Go types, for display and for
// encoding with encoding/json outside the canonical path.
func ToGo(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}

// MustValue is like ToValue but panics on error. Use only in tests or
// when inputs are known to be valid.
func MustValue(v any) Value {
	lv, err := ToValue(v)
	if err != nil {
		panic(err)
	}
	return lv
}

// UnmarshalJSON decodes arbitrary JSON into an Object, preserving
// integer precision via json.Number.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(Object, len(raw))
	for k, v := range raw {
		lv, err := ToValue(v)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = lv
	}
	*obj = out
	return nil
}

// MarshalJSON encodes the Object canonically so that stored payloads and
// signed payloads share one representation.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}
