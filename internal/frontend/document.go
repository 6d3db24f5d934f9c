package frontend

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/forge/internal/compiler"
	"github.com/roach88/forge/internal/ir"
)

// Document is the structured program shape shared by YAML, JSON and CUE.
type Document struct {
	Storage ir.Multiset  `json:"storage,omitempty" yaml:"storage,omitempty"`
	Limits  []ir.Limit   `json:"limits,omitempty" yaml:"limits,omitempty"`
	Recipes []ir.Recipe  `json:"recipes,omitempty" yaml:"recipes,omitempty"`
	Blocks  []BlockEntry `json:"blocks,omitempty" yaml:"blocks,omitempty"`
}

// BlockEntry holds exactly one building block.
type BlockEntry struct {
	Sequence *compiler.Sequence `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Function *FunctionEntry     `json:"function,omitempty" yaml:"function,omitempty"`
	Guard    *compiler.Guard    `json:"guard,omitempty" yaml:"guard,omitempty"`
	Loop     *compiler.Loop     `json:"loop,omitempty" yaml:"loop,omitempty"`
	Copy     *compiler.Copy     `json:"copy,omitempty" yaml:"copy,omitempty"`
	Transfer *compiler.Transfer `json:"transfer,omitempty" yaml:"transfer,omitempty"`
	Rules    *compiler.Rules    `json:"rules,omitempty" yaml:"rules,omitempty"`
	Compare  *compiler.Compare  `json:"compare,omitempty" yaml:"compare,omitempty"`
}

// FunctionEntry is the document form of compiler.Function.
type FunctionEntry struct {
	Name ir.Item      `json:"name" yaml:"name"`
	Body []BlockEntry `json:"body,omitempty" yaml:"body,omitempty"`
}

// Source converts d into a compiler.Source with NFC-normalized item names.
func (d Document) Source() (compiler.Source, error) {
	return d.source(nil)
}

// source converts d. pos, when non-nil, maps a top-level block index to its
// position in the original document.
func (d Document) source(pos func(i int) token.Pos) (compiler.Source, error) {
	src := compiler.Source{
		Initial: normalizeMultiset(d.Storage),
		Limits:  make([]ir.Limit, len(d.Limits)),
		Recipes: make([]ir.Recipe, len(d.Recipes)),
		Blocks:  make([]compiler.Block, 0, len(d.Blocks)),
	}
	for i, l := range d.Limits {
		src.Limits[i] = ir.Limit{Coefficients: normalizeMultiset(l.Coefficients), Bound: l.Bound}
	}
	for i, r := range d.Recipes {
		src.Recipes[i] = normalizeRecipe(r)
	}
	for i, entry := range d.Blocks {
		b, err := entry.block(fmt.Sprintf("blocks[%d]", i))
		if err != nil {
			var ce *compiler.CompileError
			if errors.As(err, &ce) && pos != nil && !ce.Pos.IsValid() {
				ce.Pos = pos(i)
			}
			return compiler.Source{}, err
		}
		src.Blocks = append(src.Blocks, b)
	}
	return src, nil
}

// block returns the single block held by e.
func (e BlockEntry) block(field string) (compiler.Block, error) {
	var (
		set   []string
		block compiler.Block
	)
	if e.Sequence != nil {
		set = append(set, compiler.KindSequence)
		s := *e.Sequence
		s.Name = normalizeItem(s.Name)
		s.Calls = make([]ir.FunctionCall, len(e.Sequence.Calls))
		for i, c := range e.Sequence.Calls {
			s.Calls[i] = normalizeCall(c)
		}
		block = s
	}
	if e.Function != nil {
		set = append(set, compiler.KindFunction)
		fn := compiler.Function{Name: normalizeItem(e.Function.Name)}
		for i, child := range e.Function.Body {
			b, err := child.block(fmt.Sprintf("%s.function.body[%d]", field, i))
			if err != nil {
				return nil, err
			}
			fn.Body = append(fn.Body, b)
		}
		block = fn
	}
	if e.Guard != nil {
		set = append(set, compiler.KindGuard)
		g := compiler.Guard{Target: normalizeItem(e.Guard.Target)}
		for _, c := range e.Guard.Conditions {
			g.Conditions = append(g.Conditions, normalizeItem(c))
		}
		block = g
	}
	if e.Loop != nil {
		set = append(set, compiler.KindLoop)
		block = compiler.Loop{Call: normalizeCall(e.Loop.Call), Counter: normalizeItem(e.Loop.Counter)}
	}
	if e.Copy != nil {
		set = append(set, compiler.KindCopy)
		block = compiler.Copy{From: normalizeItem(e.Copy.From), To: normalizeItem(e.Copy.To)}
	}
	if e.Transfer != nil {
		set = append(set, compiler.KindTransfer)
		block = compiler.Transfer{Target: normalizeItem(e.Transfer.Target), Source: normalizeItem(e.Transfer.Source)}
	}
	if e.Rules != nil {
		set = append(set, compiler.KindRules)
		r := compiler.Rules{}
		for _, rec := range e.Rules.Recipes {
			r.Recipes = append(r.Recipes, normalizeRecipe(rec))
		}
		for _, l := range e.Rules.Limits {
			r.Limits = append(r.Limits, ir.Limit{Coefficients: normalizeMultiset(l.Coefficients), Bound: l.Bound})
		}
		block = r
	}
	if e.Compare != nil {
		set = append(set, compiler.KindCompare)
		block = compiler.Compare{
			Left:   normalizeItem(e.Compare.Left),
			Right:  normalizeItem(e.Compare.Right),
			Output: normalizeItem(e.Compare.Output),
		}
	}

	if len(set) != 1 {
		msg := "block entry is empty"
		if len(set) > 1 {
			msg = fmt.Sprintf("block entry sets %s; exactly one is allowed", strings.Join(set, ", "))
		}
		return nil, &compiler.CompileError{Block: "document", Field: field, Message: msg}
	}
	return block, nil
}

func normalizeItem(item ir.Item) ir.Item {
	return ir.Item(norm.NFC.String(string(item)))
}

// normalizeMultiset returns a copy of m with NFC keys. Keys that normalize to
// the same item are summed.
func normalizeMultiset(m ir.Multiset) ir.Multiset {
	out := make(ir.Multiset, len(m))
	for item, qty := range m {
		out[normalizeItem(item)] += qty
	}
	return out
}

func normalizeRecipe(r ir.Recipe) ir.Recipe {
	return ir.Recipe{Inputs: normalizeMultiset(r.Inputs), Outputs: normalizeMultiset(r.Outputs)}
}

func normalizeCall(c ir.FunctionCall) ir.FunctionCall {
	out := ir.FunctionCall{Target: normalizeItem(c.Target)}
	if len(c.Args) > 0 {
		out.Args = normalizeMultiset(c.Args)
	}
	return out
}
