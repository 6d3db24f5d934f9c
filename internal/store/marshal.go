package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Programs, recipes and multisets are written with ir.MarshalCanonical so
// the stored text is byte-stable and matches the hashes next to it. They are
// read back with encoding/json, which accepts canonical JSON unchanged.

func marshalProgram(p ir.Program) (string, error) {
	data, err := ir.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal program: %w", err)
	}
	return string(data), nil
}

func unmarshalProgram(s string) (ir.Program, error) {
	var p ir.Program
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return ir.Program{}, fmt.Errorf("unmarshal program: %w", err)
	}
	return p, nil
}

func marshalRecipe(r ir.Recipe) (string, error) {
	data, err := ir.MarshalCanonical(r)
	if err != nil {
		return "", fmt.Errorf("marshal recipe: %w", err)
	}
	return string(data), nil
}

func unmarshalRecipe(s string) (ir.Recipe, error) {
	var r ir.Recipe
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return ir.Recipe{}, fmt.Errorf("unmarshal recipe: %w", err)
	}
	return r, nil
}

func marshalMultiset(m ir.Multiset) (string, error) {
	if m == nil {
		m = ir.Multiset{}
	}
	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal multiset: %w", err)
	}
	return string(data), nil
}

func unmarshalMultiset(s string) (ir.Multiset, error) {
	m := ir.Multiset{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("unmarshal multiset: %w", err)
	}
	return m, nil
}
