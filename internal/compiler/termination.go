package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/forge/internal/ir"
)

// TerminationWarning flags a recipe or recipe cycle that may keep a run from
// reaching quiescence.
//
// These are warnings, not errors. Recipes that never consume anything on net
// are the usual way to keep a flag or guard alive, and regeneration cycles
// are how Copy restores its source. The analysis is a hint, not a proof.
type TerminationWarning struct {
	Recipes []int  `json:"recipes"` // Recipe indices: [3] or a cycle [1, 4, 1]
	Message string `json:"message"` // Human-readable description
	Level   string `json:"level"`   // "warning" or "info"
}

// AnalyzeTermination performs static termination analysis on p.
//
// The analysis:
//  1. Every recipe that consumes nothing on net can fire forever once
//     eligible. It is reported as "warning", or "info" when a limit with a
//     positive coefficient bounds an item the recipe produces on net.
//  2. A graph links recipe i to recipe j when i produces on net an item j
//     consumes on net. Tarjan's algorithm finds strongly connected
//     components; each one is a regeneration cycle, reported as "info".
//
// Results are ordered by first recipe index.
func AnalyzeTermination(p ir.Program) []TerminationWarning {
	warnings := []TerminationWarning{}
	if len(p.Recipes) == 0 {
		return warnings
	}

	for i, r := range p.Recipes {
		if r.Consuming() {
			continue
		}
		level := "warning"
		msg := fmt.Sprintf("recipe %d (%s) consumes nothing on net and can fire indefinitely", i, r)
		if item, ok := boundedOutput(r, p.Limits); ok {
			level = "info"
			msg = fmt.Sprintf("recipe %d (%s) consumes nothing on net; a limit on %s bounds it", i, r, item)
		}
		warnings = append(warnings, TerminationWarning{
			Recipes: []int{i},
			Message: msg,
			Level:   level,
		})
	}

	graph := buildRegenerationGraph(p.Recipes)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleToWarning(scc, graph))
		}
	}

	slices.SortStableFunc(warnings, func(a, b TerminationWarning) int {
		return a.Recipes[0] - b.Recipes[0]
	})
	return warnings
}

// boundedOutput returns an item r produces on net that some limit caps with
// a positive coefficient.
func boundedOutput(r ir.Recipe, limits []ir.Limit) (ir.Item, bool) {
	for _, item := range r.Outputs.Items() {
		if r.Outputs[item] <= r.Inputs[item] {
			continue
		}
		for _, l := range limits {
			if l.Coefficients[item] > 0 {
				return item, true
			}
		}
	}
	return "", false
}

// regenerationGraph maps recipe index → recipes that consume what it produces.
type regenerationGraph map[int][]int

// buildRegenerationGraph links producers to consumers by net item flow.
func buildRegenerationGraph(recipes []ir.Recipe) regenerationGraph {
	consumers := make(map[ir.Item][]int)
	for j, r := range recipes {
		for _, item := range r.Inputs.Items() {
			if r.Inputs[item] > r.Outputs[item] {
				consumers[item] = append(consumers[item], j)
			}
		}
	}

	graph := make(regenerationGraph, len(recipes))
	for i, r := range recipes {
		graph[i] = []int{}
		for _, item := range r.Outputs.Items() {
			if r.Outputs[item] > r.Inputs[item] {
				graph[i] = append(graph[i], consumers[item]...)
			}
		}
		slices.Sort(graph[i])
		graph[i] = slices.Compact(graph[i])
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node int, graph regenerationGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in ascending order and each SCC is returned sorted, so
// the output is deterministic.
func tarjanSCC(graph regenerationGraph) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make(map[int]int)
		lowlink = make(map[int]int)
		onStack = make(map[int]bool)
		sccs    [][]int
	)

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// Root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]int, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleToWarning converts an SCC to a TerminationWarning with a closed path
// through its members, starting at the lowest index.
func cycleToWarning(scc []int, graph regenerationGraph) TerminationWarning {
	path := reconstructCyclePath(scc, graph)

	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return TerminationWarning{
		Recipes: path,
		Message: fmt.Sprintf("recipes regenerate each other's inputs: %s", strings.Join(parts, " → ")),
		Level:   "info",
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []int, graph regenerationGraph) []int {
	inSCC := make(map[int]bool, len(scc))
	for _, n := range scc {
		inSCC[n] = true
	}

	start := scc[0]
	current := start
	path := []int{current}
	visited := make(map[int]bool)

	for {
		visited[current] = true

		next := -1
		for _, w := range graph[current] {
			if inSCC[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next < 0 {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
