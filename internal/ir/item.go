package ir

import (
	"slices"
	"strconv"
	"strings"
)

// Item identifies one resource kind. Equality is by value.
type Item string

// Multiset maps items to non-negative quantities.
// Absent keys read as zero.
type Multiset map[Item]int64

// Get returns the quantity of item, or 0 if absent.
func (m Multiset) Get(item Item) int64 {
	return m[item]
}

// Add increases item by qty and returns m for chaining.
// A nil receiver is not allowed; use Multiset{} or Of.
func (m Multiset) Add(item Item, qty int64) Multiset {
	m[item] += qty
	return m
}

// Merge adds every quantity of other into m.
func (m Multiset) Merge(other Multiset) Multiset {
	for item, qty := range other {
		m[item] += qty
	}
	return m
}

// Clone returns an independent copy. Cloning nil yields an empty multiset.
func (m Multiset) Clone() Multiset {
	out := make(Multiset, len(m))
	for item, qty := range m {
		out[item] = qty
	}
	return out
}

// Items returns the keys in sorted order for deterministic iteration.
func (m Multiset) Items() []Item {
	items := make([]Item, 0, len(m))
	for item := range m {
		items = append(items, item)
	}
	slices.Sort(items)
	return items
}

// Equal reports whether m and other hold the same quantities.
// Zero-valued entries are treated as absent.
func (m Multiset) Equal(other Multiset) bool {
	for item, qty := range m {
		if other[item] != qty {
			return false
		}
	}
	for item, qty := range other {
		if m[item] != qty {
			return false
		}
	}
	return true
}

// String renders the multiset as "2 A + 1 B", or "0" when empty.
// Zero-valued entries are omitted.
func (m Multiset) String() string {
	var parts []string
	for _, item := range m.Items() {
		if m[item] == 0 {
			continue
		}
		parts = append(parts, strconv.FormatInt(m[item], 10)+" "+string(item))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " + ")
}

// Of builds a multiset from alternating item/quantity pairs.
//
//	ir.Of("A", 2, "B", 1) // {A: 2, B: 1}
//
// Panics on a malformed argument list; intended for literals in code and tests.
func Of(pairs ...any) Multiset {
	if len(pairs)%2 != 0 {
		panic("ir.Of: odd number of arguments")
	}
	m := make(Multiset, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		var item Item
		switch k := pairs[i].(type) {
		case string:
			item = Item(k)
		case Item:
			item = k
		default:
			panic("ir.Of: item must be string or Item")
		}
		switch q := pairs[i+1].(type) {
		case int:
			m[item] += int64(q)
		case int64:
			m[item] += q
		default:
			panic("ir.Of: quantity must be int or int64")
		}
	}
	return m
}
