package resolve

import (
	"encoding/json"
	"sort"
)

// Set is an unordered collection of unique strings.
type Set map[string]struct{}

// NewSet creates a set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Add inserts items.
func (s Set) Add(items ...string) {
	for _, it := range items {
		s[it] = struct{}{}
	}
}

// Has reports membership.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// Single returns the only member when the set has exactly one.
func (s Set) Single() (string, bool) {
	if len(s) != 1 {
		return "", false
	}
	for it := range s {
		return it, true
	}
	return "", false
}

// Equal reports whether both sets hold the same members.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for it := range s {
		if !other.Has(it) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}
