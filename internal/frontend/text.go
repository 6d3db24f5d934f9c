package frontend

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/forge/internal/compiler"
	"github.com/roach88/forge/internal/ir"
)

// Section headers of the text grammar.
const (
	SectionStorage      = "Initial storage:"
	SectionLimits       = "Limits:"
	SectionInstructions = "Instructions:"
)

var (
	// Identifiers may carry combining marks; they are NFC-normalized after
	// matching, so "cafe\u0301" and "café" name the same item.
	identPattern     = regexp.MustCompile(`^[\p{L}_][\p{L}\p{M}\p{N}_#.\-]*$`)
	qtyPattern       = regexp.MustCompile(`^[0-9]+$`)
	signedQtyPattern = regexp.MustCompile(`^-?[0-9]+$`)
)

// ParseError reports a malformed line in a text program.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ParseText reads a program in the text grammar. filename is only used in
// error messages.
//
// Lines before the first section header, and unknown headers, are errors.
// Each section may appear at most once.
func ParseText(r io.Reader, filename string) (compiler.Source, error) {
	src := compiler.Source{Initial: ir.Multiset{}}
	seen := make(map[string]bool)
	section := ""

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		fail := func(format string, args ...any) error {
			return &ParseError{File: filename, Line: lineNo, Message: fmt.Sprintf(format, args...)}
		}

		if strings.HasSuffix(line, ":") {
			switch line {
			case SectionStorage, SectionLimits, SectionInstructions:
			default:
				return compiler.Source{}, fail("unknown section %q", line)
			}
			if seen[line] {
				return compiler.Source{}, fail("duplicate section %q", line)
			}
			seen[line] = true
			section = line
			continue
		}

		switch section {
		case SectionStorage:
			qty, item, err := parseTerm(line, false)
			if err != nil {
				return compiler.Source{}, fail("%v", err)
			}
			src.Initial[item] += qty

		case SectionLimits:
			lhs, rhs, ok := strings.Cut(line, "<=")
			if !ok {
				return compiler.Source{}, fail("limit must have the form `terms <= bound`")
			}
			coeffs, err := parseSide(lhs, true)
			if err != nil {
				return compiler.Source{}, fail("%v", err)
			}
			bound, err := strconv.ParseInt(strings.TrimSpace(rhs), 10, 64)
			if err != nil {
				return compiler.Source{}, fail("invalid bound %q", strings.TrimSpace(rhs))
			}
			src.Limits = append(src.Limits, ir.Limit{Coefficients: coeffs, Bound: bound})

		case SectionInstructions:
			lhs, rhs, ok := strings.Cut(line, "->")
			if !ok {
				return compiler.Source{}, fail("instruction must have the form `inputs -> outputs`")
			}
			in, err := parseSide(lhs, false)
			if err != nil {
				return compiler.Source{}, fail("inputs: %v", err)
			}
			out, err := parseSide(rhs, false)
			if err != nil {
				return compiler.Source{}, fail("outputs: %v", err)
			}
			src.Recipes = append(src.Recipes, ir.Recipe{Inputs: in, Outputs: out})

		default:
			return compiler.Source{}, fail("line outside of any section")
		}
	}
	if err := sc.Err(); err != nil {
		return compiler.Source{}, fmt.Errorf("read %s: %w", filename, err)
	}
	return src, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// parseSide parses "2 A + B" into a multiset. A lone "0" is the empty side.
// signed permits negative quantities, which only limit coefficients may have.
func parseSide(s string, signed bool) (ir.Multiset, error) {
	s = strings.TrimSpace(s)
	m := ir.Multiset{}
	if s == "0" {
		return m, nil
	}
	if s == "" {
		return nil, fmt.Errorf("empty side; write 0 for no items")
	}
	for _, term := range strings.Split(s, "+") {
		qty, item, err := parseTerm(term, signed)
		if err != nil {
			return nil, err
		}
		m[item] += qty
	}
	return m, nil
}

// parseTerm parses "3 A" or "A" (quantity 1), or "-3 A" when signed.
func parseTerm(term string, signed bool) (int64, ir.Item, error) {
	pattern := qtyPattern
	if signed {
		pattern = signedQtyPattern
	}
	fields := strings.Fields(term)
	switch len(fields) {
	case 1:
		if !identPattern.MatchString(fields[0]) {
			return 0, "", fmt.Errorf("invalid identifier %q", fields[0])
		}
		return 1, normalizeItem(ir.Item(fields[0])), nil
	case 2:
		if !pattern.MatchString(fields[0]) {
			return 0, "", fmt.Errorf("invalid quantity %q", fields[0])
		}
		qty, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return 0, "", fmt.Errorf("quantity %q out of range", fields[0])
		}
		if !identPattern.MatchString(fields[1]) {
			return 0, "", fmt.Errorf("invalid identifier %q", fields[1])
		}
		return qty, normalizeItem(ir.Item(fields[1])), nil
	default:
		return 0, "", fmt.Errorf("invalid term %q", strings.TrimSpace(term))
	}
}

// WriteText renders p in the text grammar. The output parses back with
// ParseText into an equivalent program.
//
// Programs the grammar cannot express are rejected before anything is
// written: item names outside the identifier syntax (spaces, '+', '->'),
// and negative quantities anywhere but in limit coefficients.
func WriteText(w io.Writer, p ir.Program) error {
	if err := checkTextual(p); err != nil {
		return err
	}
	_, err := io.WriteString(w, p.String())
	return err
}

func checkTextual(p ir.Program) error {
	check := func(where string, m ir.Multiset, signed bool) error {
		for _, item := range m.Items() {
			if !identPattern.MatchString(string(item)) {
				return fmt.Errorf("%s: item %q cannot be written in the text grammar", where, item)
			}
			if m[item] < 0 && !signed {
				return fmt.Errorf("%s: negative quantity %d of %q cannot be written in the text grammar", where, m[item], item)
			}
		}
		return nil
	}

	if err := check("initial storage", p.Initial, false); err != nil {
		return err
	}
	for i, l := range p.Limits {
		if err := check(fmt.Sprintf("limit %d", i), l.Coefficients, true); err != nil {
			return err
		}
	}
	for i, r := range p.Recipes {
		where := fmt.Sprintf("recipe %d", i)
		if err := check(where, r.Inputs, false); err != nil {
			return err
		}
		if err := check(where, r.Outputs, false); err != nil {
			return err
		}
	}
	return nil
}
