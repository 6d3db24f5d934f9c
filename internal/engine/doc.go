// Package engine implements the forge runtime substrate: Storage and the
// Executor that drives it to quiescence.
//
// ARCHITECTURE:
//
// Storage owns the live multiset and the immutable limit set. Its only
// mutation path is TryApply, which either commits a recipe's full
// input/output delta or leaves storage untouched.
//
// The Executor is a deterministic, single-threaded, greedy fixed-point
// search:
//  1. Scan the recipe list in declaration order
//  2. The first recipe whose TryApply succeeds fires; restart the scan
//  3. A full scan with zero firings means the run is Quiescent
//
// Firing order is part of the contract. When several recipes are eligible
// but mutually exclusive under a limit, the earliest one in the list wins,
// so the same (recipes, initial storage) pair always yields the same
// sequence of firings.
//
// CRITICAL PATTERNS:
//
// Logical Clock
// Every firing is stamped with a monotonic seq from Clock.Next().
// NEVER use wall-clock timestamps for ordering.
//
// Termination
// The only natural terminal condition is quiescence. A recipe that can fire
// with zero net consumption never lets the run end; that is a caller risk,
// not an engine error. Callers that need a bound use WithMaxSteps, which
// stops the run with StepsExceededError.
package engine
