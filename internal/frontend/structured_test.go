package frontend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/forge/internal/compiler"
	"github.com/roach88/forge/internal/engine"
	"github.com/roach88/forge/internal/ir"
)

func runSource(t *testing.T, src compiler.Source) ir.Multiset {
	t.Helper()
	p, err := src.Compile(compiler.NewNameAllocator())
	require.NoError(t, err)
	res, err := engine.RunProgram(context.Background(), p, engine.WithLogger(discardLogger()))
	require.NoError(t, err)
	return res.Final
}

// TestLoadFile_FormatsAgree loads the same program from YAML, JSON and CUE
// and checks they compile to identical programs.
func TestLoadFile_FormatsAgree(t *testing.T) {
	var programs []ir.Program
	for _, name := range []string{"chain.yaml", "chain.json", "chain.cue"} {
		src, err := LoadFile(filepath.Join("testdata", name))
		require.NoError(t, err, name)
		p, err := src.Compile(compiler.NewNameAllocator())
		require.NoError(t, err, name)
		programs = append(programs, p)
	}
	assert.Equal(t, programs[0], programs[1], "yaml vs json")
	assert.Equal(t, programs[0], programs[2], "yaml vs cue")

	src, err := LoadFile(filepath.Join("testdata", "chain.yaml"))
	require.NoError(t, err)
	final := runSource(t, src)
	assert.Equal(t, int64(3), final["x"])
	assert.Equal(t, int64(3), final["y"])
	assert.Equal(t, int64(3), final["z"])
	assert.Equal(t, int64(2), final["tick"])
	assert.Equal(t, int64(4), final["ticks"])
	assert.Equal(t, int64(0), final["count"])
}

func TestLoadFile_TextMatchesCompiledCopy(t *testing.T) {
	text, err := LoadFile(filepath.Join("testdata", "chain.txt"))
	require.NoError(t, err)
	fromText, err := text.Compile(nil)
	require.NoError(t, err)

	compiled, err := compiler.Source{
		Initial: ir.Of("x", 3),
		Blocks:  []compiler.Block{compiler.Copy{From: "x", To: "y"}},
	}.Compile(compiler.NewNameAllocator())
	require.NoError(t, err)

	assert.Equal(t, compiled.Recipes, fromText.Recipes)
	assert.Equal(t, compiled.Limits, fromText.Limits)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("a.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("a.YML"))
	assert.Equal(t, FormatJSON, FormatFor("a.json"))
	assert.Equal(t, FormatCUE, FormatFor("dir/a.cue"))
	assert.Equal(t, FormatText, FormatFor("a.txt"))
	assert.Equal(t, FormatText, FormatFor("a.recipes"))
	assert.Equal(t, FormatText, FormatFor("noext"))

	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("toml")
	assert.Error(t, err)
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse(nil, Format("toml"), "x.toml")
	assert.Error(t, err)
}

func TestParseYAML_RejectsUnknownFields(t *testing.T) {
	_, err := ParseYAML([]byte("storage: {A: 1}\nrecipe: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseYAML_Empty(t *testing.T) {
	src, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, src.Recipes)
	assert.Empty(t, src.Blocks)
}

func TestParseYAML_SequenceAndGuard(t *testing.T) {
	src, err := ParseYAML([]byte(`
storage: {main: 1, ready: 1}
limits:
  - coefficients: {go: 1}
    bound: 1
blocks:
  - sequence:
      name: main
      calls:
        - target: f
        - target: g
          args: {x: 2}
  - guard:
      target: go
      conditions: [ready]
`))
	require.NoError(t, err)
	require.Len(t, src.Blocks, 2)
	assert.Equal(t, compiler.Sequence{
		Name:  "main",
		Calls: []ir.FunctionCall{{Target: "f"}, {Target: "g", Args: ir.Of("x", 2)}},
	}, src.Blocks[0])

	final := runSource(t, src)
	assert.Equal(t, ir.Of("main", 0, "ready", 1, "go", 1, "f", 1, "g", 1, "x", 2, "main.token#0", 0), final)
}

func TestParseJSON_SchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown top-level field", `{"registers": {}}`},
		{"negative storage", `{"storage": {"A": -1}}`},
		{"empty item", `{"storage": {"": 1}}`},
		{"float quantity", `{"storage": {"A": 1.5}}`},
		{"two block kinds", `{"blocks": [{"copy": {"from": "a", "to": "b"}, "transfer": {"target": "b", "source": "a"}}]}`},
		{"empty block", `{"blocks": [{}]}`},
		{"missing limit bound", `{"limits": [{"coefficients": {"A": 1}}]}`},
		{"guard without conditions", `{"blocks": [{"guard": {"target": "t", "conditions": []}}]}`},
		{"nested function body", `{"blocks": [{"function": {"name": "f", "body": [{"copy": {"from": "a"}}]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid program")
		})
	}
}

func TestParseJSON_Malformed(t *testing.T) {
	_, err := ParseJSON([]byte(`{"storage": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse JSON")
}

func TestParseJSON_NegativeCoefficientAllowed(t *testing.T) {
	src, err := ParseJSON([]byte(`{"limits": [{"coefficients": {"Y": 1, "X": -1}, "bound": 0}]}`))
	require.NoError(t, err)
	assert.Equal(t, ir.NewLimit(ir.Of("Y", 1, "X", -1), 0), src.Limits[0])
}

func TestParseCUE_TopLevelDocument(t *testing.T) {
	src, err := ParseCUE([]byte(`
storage: A: 2
recipes: [{"in": {A: 1}, "out": {B: 1}}]
`), "top.cue")
	require.NoError(t, err)
	assert.Equal(t, ir.Of("A", 2), src.Initial)
	assert.Equal(t, ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1)), src.Recipes[0])
}

func TestParseCUE_SyntaxErrorHasPosition(t *testing.T) {
	_, err := ParseCUE([]byte("storage: {\n  A: 1\n"), "broken.cue")
	require.Error(t, err)

	var ce *compiler.CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestParseCUE_BlockErrorHasPosition(t *testing.T) {
	_, err := ParseCUE([]byte(`program: {
	blocks: [
		{copy: {from: "a", to: "b"}},
		{},
	]
}
`), "blocks.cue")
	require.Error(t, err)

	var ce *compiler.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "blocks[1]", ce.Field)
	require.True(t, ce.Pos.IsValid())
	assert.Equal(t, 4, ce.Pos.Line())
}

func TestParseCUE_Incomplete(t *testing.T) {
	_, err := ParseCUE([]byte(`storage: A: int`), "incomplete.cue")
	assert.Error(t, err)
}
