package collections

import (
	"cmp"
	"slices"
)

// SortedKeys returns the keys of items in ascending order.
func SortedKeys[K cmp.Ordered, V any](items map[K]V) []K {
	keys := make([]K, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// SetEqual reports whether a and b hold the same elements, ignoring
// order and duplicates.
func SetEqual[T comparable](a, b []T) bool {
	set := make(map[T]bool, len(a))
	for _, v := range a {
		set[v] = false
	}
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
		set[v] = true
	}
	for _, seen := range set {
		if !seen {
			return false
		}
	}
	return true
}
