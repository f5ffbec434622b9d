// Package drift defines the domain types shared by the collector, the
// snapshot store, and the diff engine: an Item extracted from a surface,
// an insertion-ordered Set of items keyed by ID, and the set-difference
// computation between two labeled collections.
package drift

// Item is a single record extracted from a surface. Identity is the ID
// alone: two items with the same ID are the same entity regardless of
// field differences. Fields carry opaque scalar values (counts, text,
// timestamps, booleans) that the core neither validates nor transforms.
type Item struct {
	ID     string
	Fields map[string]any
}

// Set is an insertion-ordered collection of items keyed by ID. Order is
// first-seen order, which keeps diff output and test expectations stable.
// The zero value is not usable; call NewSet.
type Set struct {
	order []string
	items map[string]Item
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{items: make(map[string]Item)}
}

// Add inserts the item if its ID has not been seen before and reports
// whether it was new. Re-adding a known ID is a no-op: the stored fields
// are not updated (first write wins within a set).
func (s *Set) Add(it Item) bool {
	if _, ok := s.items[it.ID]; ok {
		return false
	}
	s.items[it.ID] = it
	s.order = append(s.order, it.ID)
	return true
}

// Has reports whether the given ID is in the set.
func (s *Set) Has(id string) bool {
	_, ok := s.items[id]
	return ok
}

// Get returns the item for the given ID.
func (s *Set) Get(id string) (Item, bool) {
	it, ok := s.items[id]
	return it, ok
}

// Len returns the number of items in the set.
func (s *Set) Len() int {
	return len(s.order)
}

// IDs returns the item IDs in insertion order. The returned slice is a
// copy and may be retained by the caller.
func (s *Set) IDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Items returns the items in insertion order.
func (s *Set) Items() []Item {
	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}
