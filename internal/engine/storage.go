package engine

import (
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Storage is the shared multiset every recipe reads and writes, together
// with the immutable limit set that every committed state must satisfy.
//
// Storage is built once by NewStorage, which pre-registers every item the
// recipes and limits mention. After construction the only mutation path is
// TryApply.
//
// Thread-safety: Storage is not safe for concurrent use. It is owned by a
// single Executor for the duration of a run.
type Storage struct {
	quantities ir.Multiset
	limits     []ir.Limit
}

// NewStorage creates storage from an initial multiset, the global limits and
// the recipes that will run against it.
//
// The initial multiset is copied. Every item referenced by a recipe or limit
// is registered at quantity 0 unless initial already holds it. Negative
// initial quantities and empty item identifiers are rejected with a
// *RuntimeError.
//
// Initial storage is not checked against limits: limits constrain the states
// produced by firings, never the starting state.
func NewStorage(initial ir.Multiset, limits []ir.Limit, recipes []ir.Recipe) (*Storage, error) {
	s := &Storage{
		quantities: make(ir.Multiset, len(initial)),
		limits:     make([]ir.Limit, len(limits)),
	}

	for _, item := range initial.Items() {
		qty := initial[item]
		if item == "" {
			return nil, newEmptyItemError("initial storage")
		}
		if qty < 0 {
			return nil, newNegativeQuantityError("initial storage", item, qty)
		}
		s.quantities[item] = qty
	}

	for i, l := range limits {
		where := fmt.Sprintf("limit %d", i)
		for item := range l.Coefficients {
			if item == "" {
				return nil, newEmptyItemError(where)
			}
			s.register(item)
		}
		s.limits[i] = l.Clone()
	}

	for i, r := range recipes {
		where := fmt.Sprintf("recipe %d", i)
		if err := checkRecipe(where, r); err != nil {
			return nil, err
		}
		for _, item := range r.Items() {
			s.register(item)
		}
	}

	return s, nil
}

func (s *Storage) register(item ir.Item) {
	if _, ok := s.quantities[item]; !ok {
		s.quantities[item] = 0
	}
}

// checkRecipe rejects empty identifiers and negative quantities on either
// side of r.
func checkRecipe(where string, r ir.Recipe) error {
	for _, side := range []ir.Multiset{r.Inputs, r.Outputs} {
		for _, item := range side.Items() {
			if item == "" {
				return newEmptyItemError(where)
			}
			if side[item] < 0 {
				return newNegativeQuantityError(where, item, side[item])
			}
		}
	}
	return nil
}

// Registered reports whether item is known to storage.
func (s *Storage) Registered(item ir.Item) bool {
	_, ok := s.quantities[item]
	return ok
}

// Quantity returns the current amount of item.
// Asking for an item that was never registered is a programming error and
// returns *UnregisteredItemError rather than a silent zero.
func (s *Storage) Quantity(item ir.Item) (int64, error) {
	qty, ok := s.quantities[item]
	if !ok {
		return 0, &UnregisteredItemError{Item: item, Recipe: -1}
	}
	return qty, nil
}

// Contains reports whether storage holds at least every quantity in m.
// Items absent from storage count as zero.
func (s *Storage) Contains(m ir.Multiset) bool {
	for item, qty := range m {
		if qty > s.quantities[item] {
			return false
		}
	}
	return true
}

// SatisfiesLimits reports whether candidate respects every limit.
func (s *Storage) SatisfiesLimits(candidate ir.Multiset) bool {
	for _, l := range s.limits {
		if !l.IsSatisfied(candidate) {
			return false
		}
	}
	return true
}

// TryApply fires r if it is eligible and reports whether it did.
//
// r is eligible when storage contains its inputs and the state after
// subtracting inputs and adding outputs satisfies every limit. An ineligible
// recipe leaves storage untouched and returns (false, nil). The exchange is
// all-or-nothing: no partial consumption is ever observable.
//
// A recipe mentioning an unregistered item returns *UnregisteredItemError.
func (s *Storage) TryApply(r ir.Recipe) (bool, error) {
	return s.tryApply(-1, r)
}

func (s *Storage) tryApply(index int, r ir.Recipe) (bool, error) {
	candidate, ok, err := s.next(index, r)
	if err != nil || !ok {
		return false, err
	}
	s.quantities = candidate
	return true, nil
}

// next computes the state after firing r without committing it.
// It reports false when r is ineligible.
func (s *Storage) next(index int, r ir.Recipe) (ir.Multiset, bool, error) {
	for _, item := range r.Items() {
		if !s.Registered(item) {
			return nil, false, &UnregisteredItemError{Item: item, Recipe: index}
		}
	}
	if !s.Contains(r.Inputs) {
		return nil, false, nil
	}

	candidate := s.quantities.Clone()
	for item, qty := range r.Inputs {
		candidate[item] -= qty
	}
	candidate.Merge(r.Outputs)

	if !s.SatisfiesLimits(candidate) {
		return nil, false, nil
	}
	return candidate, true, nil
}

// Snapshot returns a copy of the current quantities, including registered
// items at zero.
func (s *Storage) Snapshot() ir.Multiset {
	return s.quantities.Clone()
}

// Limits returns a copy of the limit set.
func (s *Storage) Limits() []ir.Limit {
	out := make([]ir.Limit, len(s.limits))
	for i, l := range s.limits {
		out[i] = l.Clone()
	}
	return out
}
