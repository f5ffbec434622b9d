package drift

// DiffResult holds the membership changes between two labeled collections.
// Added lists items present in the current set but not the previous one;
// Removed lists items present in the previous set but not the current one.
// The result is derived and never persisted.
type DiffResult struct {
	Added   []Item
	Removed []Item
}

// Diff computes the exact-key set difference between a previous and a
// current collection. Neither input is mutated. Added follows the current
// set's insertion order and Removed follows the previous set's, so the
// same inputs always yield the same output.
//
// Diff is symmetric under argument swap: Diff(a, b).Added equals
// Diff(b, a).Removed item for item, and vice versa.
func Diff(previous, current *Set) DiffResult {
	var res DiffResult

	for _, it := range current.Items() {
		if !previous.Has(it.ID) {
			res.Added = append(res.Added, it)
		}
	}
	for _, it := range previous.Items() {
		if !current.Has(it.ID) {
			res.Removed = append(res.Removed, it)
		}
	}

	return res
}
