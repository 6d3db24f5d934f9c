// Package frontend loads forge programs from text, YAML, JSON and CUE
// documents into a compiler.Source, and writes compiled programs back out in
// the text grammar.
//
// Text grammar:
//
//	Initial storage:
//	3 A
//	1 B
//
//	Limits: // only <= comparisons
//	2 A + 1 C <= 10
//
//	Instructions:
//	1 A + 2 B -> 3 C
//	0 -> 1 A        // no inputs
//	2 B -> 0        // no outputs
//
// Quantities are optional and default to 1. Identifiers match
// [A-Za-z_][A-Za-z0-9_#.]*, so compiled programs with synthetic names load
// back unchanged.
//
// YAML, JSON and CUE share one document shape:
//
//	storage: {A: 3}
//	limits:  [{coefficients: {A: 2, C: 1}, bound: 10}]
//	recipes: [{in: {A: 1}, out: {B: 1}}]
//	blocks:
//	  - copy: {from: A, to: B}
//	  - function: {name: fn, body: [{transfer: {target: C, source: B}}]}
//
// Every item name is NFC-normalized on load.
package frontend
