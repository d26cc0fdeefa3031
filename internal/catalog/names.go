package catalog

import (
	"sort"
	"strings"
)

// Collision is a name claimed by two entries of the same tier.
// The first registration is kept.
type Collision struct {
	Kind      Kind   `json:"kind"`
	Name      string `json:"name"`
	KeptID    string `json:"kept_id"`
	DroppedID string `json:"dropped_id"`
}

// NameIndex maps lowercased names to ids within one tier.
// It is immutable once built.
type NameIndex struct {
	kind       Kind
	ids        map[string]string
	collisions []Collision
}

// Named is a record that can be registered in a NameIndex.
type Named struct {
	ID    string
	Names []string
}

// NewNameIndex builds the reverse index for a collection of records.
// Entries are registered in the order given, so for a clashing name the
// earliest record keeps it.
func NewNameIndex(kind Kind, entries []Named) *NameIndex {
	ix := &NameIndex{
		kind: kind,
		ids:  make(map[string]string),
	}
	for _, e := range entries {
		for _, name := range e.Names {
			ix.register(normalise(name), e.ID)
		}
	}
	return ix
}

func (ix *NameIndex) register(name, id string) {
	if name == "" {
		return
	}
	kept, exists := ix.ids[name]
	if !exists {
		ix.ids[name] = id
		return
	}
	if kept == id {
		return
	}
	ix.collisions = append(ix.collisions, Collision{
		Kind:      ix.kind,
		Name:      name,
		KeptID:    kept,
		DroppedID: id,
	})
}

// Lookup returns the id registered for name, case-insensitively.
func (ix *NameIndex) Lookup(name string) (string, bool) {
	if ix == nil {
		return "", false
	}
	id, ok := ix.ids[normalise(name)]
	return id, ok
}

// Names returns every registered name, sorted.
func (ix *NameIndex) Names() []string {
	names := make([]string, 0, len(ix.ids))
	for n := range ix.ids {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (ix *NameIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ids)
}

// Collisions returns the clashes seen while building the index.
func (ix *NameIndex) Collisions() []Collision {
	return ix.collisions
}

func normalise(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normaliseAll lowercases and trims values, dropping empties and duplicates
// while keeping first-seen order.
func normaliseAll(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		n := normalise(v)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
