package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON for hashing.
// CRITICAL: This is the ONLY serialization that should be used for
// content-addressed identity computation.
//
// Key differences from standard json.Marshal:
// 1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
// 2. No HTML escaping (< > & are NOT escaped)
// 3. Strings are NFC normalized
// 4. No floats, no null (returns error)
//
// Supported values: Program, Recipe, Limit, Multiset, string, Item, int,
// int64, bool, []any and map[string]any.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case Program:
		return writeCanonical(buf, val.canonicalMap())
	case Recipe:
		return writeCanonical(buf, val.canonicalMap())
	case Limit:
		return writeCanonical(buf, val.canonicalMap())
	case Multiset:
		obj := make(map[string]any, len(val))
		for item, qty := range val {
			obj[string(item)] = qty
		}
		return writeCanonicalObject(buf, obj)
	case Item:
		return writeCanonicalString(buf, string(val))
	case string:
		return writeCanonicalString(buf, val)
	case int64:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case int:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		return writeCanonicalObject(buf, val)
	case float64, float32:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// writeCanonicalString writes a JSON string with NFC normalization and no
// HTML escaping.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds trailing newline, remove it
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// writeCanonicalObject writes an object with RFC 8785 key ordering.
func writeCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// compareUTF16 orders strings by UTF-16 code units as RFC 8785 requires.
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

func (r Recipe) canonicalMap() map[string]any {
	return map[string]any{
		"in":  nonNil(r.Inputs),
		"out": nonNil(r.Outputs),
	}
}

func (l Limit) canonicalMap() map[string]any {
	return map[string]any{
		"coefficients": nonNil(l.Coefficients),
		"bound":        l.Bound,
	}
}

func (p Program) canonicalMap() map[string]any {
	limits := make([]any, len(p.Limits))
	for i, l := range p.Limits {
		limits[i] = l.canonicalMap()
	}
	recipes := make([]any, len(p.Recipes))
	for i, r := range p.Recipes {
		recipes[i] = r.canonicalMap()
	}
	return map[string]any{
		"storage": nonNil(p.Initial),
		"limits":  limits,
		"recipes": recipes,
	}
}

// nonNil keeps nil multisets from encoding as null.
func nonNil(m Multiset) Multiset {
	if m == nil {
		return Multiset{}
	}
	return m
}
