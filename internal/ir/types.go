package ir

import (
	"strconv"
	"strings"
)

// Recipe is one production rule: consume Inputs, produce Outputs.
type Recipe struct {
	Inputs  Multiset `json:"in" yaml:"in"`
	Outputs Multiset `json:"out" yaml:"out"`
}

// NewRecipe returns a recipe over independent copies of in and out.
func NewRecipe(in, out Multiset) Recipe {
	return Recipe{Inputs: in.Clone(), Outputs: out.Clone()}
}

// Clone returns a deep copy of r.
func (r Recipe) Clone() Recipe {
	return NewRecipe(r.Inputs, r.Outputs)
}

// Items returns every item referenced by r, sorted and deduplicated.
func (r Recipe) Items() []Item {
	seen := make(Multiset, len(r.Inputs)+len(r.Outputs))
	for item := range r.Inputs {
		seen[item] = 1
	}
	for item := range r.Outputs {
		seen[item] = 1
	}
	return seen.Items()
}

// Consuming reports whether firing r can never be repeated indefinitely on
// its own, i.e. some input item is consumed more than it is produced.
func (r Recipe) Consuming() bool {
	for item, qty := range r.Inputs {
		if qty > r.Outputs[item] {
			return true
		}
	}
	return false
}

// String renders r in the instruction grammar: "1 A + 2 B -> 3 C".
func (r Recipe) String() string {
	return r.Inputs.String() + " -> " + r.Outputs.String()
}

// Limit is a global linear constraint: Σ Coefficients[i]*q[i] <= Bound.
// Coefficients may be negative.
type Limit struct {
	Coefficients Multiset `json:"coefficients" yaml:"coefficients"`
	Bound        int64    `json:"bound" yaml:"bound"`
}

// NewLimit returns a limit over an independent copy of coefficients.
func NewLimit(coefficients Multiset, bound int64) Limit {
	return Limit{Coefficients: coefficients.Clone(), Bound: bound}
}

// Clone returns a deep copy of l.
func (l Limit) Clone() Limit {
	return NewLimit(l.Coefficients, l.Bound)
}

// Total returns Σ Coefficients[i]*m[i].
func (l Limit) Total(m Multiset) int64 {
	var total int64
	for item, coeff := range l.Coefficients {
		total += coeff * m[item]
	}
	return total
}

// IsSatisfied reports whether m respects the limit.
func (l Limit) IsSatisfied(m Multiset) bool {
	return l.Total(m) <= l.Bound
}

// String renders l in the instruction grammar: "2 X + 1 Y <= 5".
func (l Limit) String() string {
	return l.Coefficients.String() + " <= " + strconv.FormatInt(l.Bound, 10)
}

// FunctionCall requests one invocation of Target together with the declared
// output arguments in Args.
type FunctionCall struct {
	Target Item     `json:"target" yaml:"target"`
	Args   Multiset `json:"args,omitempty" yaml:"args,omitempty"`
}

// Outputs returns the multiset produced by one invocation: 1 Target plus Args.
func (c FunctionCall) Outputs() Multiset {
	return c.Args.Clone().Add(c.Target, 1)
}

// CodeBlock is an ordered recipe list plus the limits it relies on.
// Blocks compose by value: Append deep-copies, so mutating one block never
// affects another.
type CodeBlock struct {
	Recipes []Recipe `json:"recipes" yaml:"recipes"`
	Limits  []Limit  `json:"limits,omitempty" yaml:"limits,omitempty"`
}

// Clone returns a deep copy of b.
func (b CodeBlock) Clone() CodeBlock {
	out := CodeBlock{
		Recipes: make([]Recipe, len(b.Recipes)),
	}
	for i, r := range b.Recipes {
		out.Recipes[i] = r.Clone()
	}
	if len(b.Limits) > 0 {
		out.Limits = make([]Limit, len(b.Limits))
		for i, l := range b.Limits {
			out.Limits[i] = l.Clone()
		}
	}
	return out
}

// Append returns a new block holding b's rules followed by other's.
// Neither input is modified or aliased.
func (b CodeBlock) Append(other CodeBlock) CodeBlock {
	out := b.Clone()
	for _, r := range other.Recipes {
		out.Recipes = append(out.Recipes, r.Clone())
	}
	for _, l := range other.Limits {
		out.Limits = append(out.Limits, l.Clone())
	}
	return out
}

// Concat appends blocks in order into a fresh block.
func Concat(blocks ...CodeBlock) CodeBlock {
	out := CodeBlock{Recipes: []Recipe{}}
	for _, b := range blocks {
		out = out.Append(b)
	}
	return out
}

// Program is the triple consumed by the engine: an initial multiset, the
// limit set and the ordered recipe list.
type Program struct {
	Initial Multiset `json:"storage" yaml:"storage"`
	Limits  []Limit  `json:"limits" yaml:"limits"`
	Recipes []Recipe `json:"recipes" yaml:"recipes"`
}

// Items returns every item referenced anywhere in p, sorted.
func (p Program) Items() []Item {
	seen := make(Multiset)
	for item := range p.Initial {
		seen[item] = 1
	}
	for _, l := range p.Limits {
		for item := range l.Coefficients {
			seen[item] = 1
		}
	}
	for _, r := range p.Recipes {
		for _, item := range r.Items() {
			seen[item] = 1
		}
	}
	return seen.Items()
}

// String renders p in the instruction grammar, one rule per line.
func (p Program) String() string {
	var b strings.Builder
	b.WriteString("Initial storage:\n")
	for _, item := range p.Initial.Items() {
		b.WriteString(strconv.FormatInt(p.Initial[item], 10) + " " + string(item) + "\n")
	}
	b.WriteString("\nLimits:\n")
	for _, l := range p.Limits {
		b.WriteString(l.String() + "\n")
	}
	b.WriteString("\nInstructions:\n")
	for _, r := range p.Recipes {
		b.WriteString(r.String() + "\n")
	}
	return b.String()
}
