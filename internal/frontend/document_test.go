package frontend

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/forge/internal/compiler"
	"github.com/roach88/forge/internal/ir"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDocument_Source(t *testing.T) {
	doc := Document{
		Storage: ir.Of("A", 2),
		Recipes: []ir.Recipe{ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1))},
		Blocks: []BlockEntry{
			{Copy: &compiler.Copy{From: "B", To: "C"}},
			{Function: &FunctionEntry{
				Name: "fn",
				Body: []BlockEntry{{Transfer: &compiler.Transfer{Target: "D", Source: "C"}}},
			}},
		},
	}
	src, err := doc.Source()
	require.NoError(t, err)

	require.Len(t, src.Blocks, 2)
	assert.Equal(t, compiler.Copy{From: "B", To: "C"}, src.Blocks[0])
	fn, ok := src.Blocks[1].(compiler.Function)
	require.True(t, ok)
	assert.Equal(t, ir.Item("fn"), fn.Name)
	assert.Equal(t, []compiler.Block{compiler.Transfer{Target: "D", Source: "C"}}, fn.Body)
}

func TestDocument_NormalizesItems(t *testing.T) {
	decomposed := ir.Item("cafe\u0301")
	composed := ir.Item("caf\u00e9")

	doc := Document{
		Storage: ir.Multiset{decomposed: 1, composed: 2},
		Blocks:  []BlockEntry{{Guard: &compiler.Guard{Target: "t", Conditions: []ir.Item{decomposed}}}},
	}
	src, err := doc.Source()
	require.NoError(t, err)

	assert.Equal(t, ir.Multiset{composed: 3}, src.Initial)
	assert.Equal(t, []ir.Item{composed}, src.Blocks[0].(compiler.Guard).Conditions)
}

func TestDocument_BlockEntryErrors(t *testing.T) {
	tests := []struct {
		name  string
		entry BlockEntry
		field string
		msg   string
	}{
		{"empty", BlockEntry{}, "blocks[0]", "empty"},
		{
			"two kinds",
			BlockEntry{Copy: &compiler.Copy{From: "a", To: "b"}, Loop: &compiler.Loop{Counter: "n"}},
			"blocks[0]",
			"loop, copy",
		},
		{
			"nested",
			BlockEntry{Function: &FunctionEntry{Name: "fn", Body: []BlockEntry{{}}}},
			"blocks[0].function.body[0]",
			"empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Document{Blocks: []BlockEntry{tt.entry}}.Source()
			var ce *compiler.CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.msg)
		})
	}
}
