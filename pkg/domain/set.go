package domain

import (
	"cmp"
	"maps"
	"slices"
)

// Set is an unordered collection of unique keys.
type Set[T cmp.Ordered] map[T]struct{}

// NewSet creates a new set from a slice of elements.
func NewSet[T cmp.Ordered](elements ...T) Set[T] {
	s := make(Set[T], len(elements))
	s.Add(elements...)
	return s
}

// Add adds elements to the set.
func (s Set[T]) Add(elements ...T) {
	for _, element := range elements {
		s[element] = struct{}{}
	}
}

// Has checks if an element exists in the set.
func (s Set[T]) Has(element T) bool {
	_, found := s[element]
	return found
}

// Size returns the number of elements in the set.
func (s Set[T]) Size() int {
	return len(s)
}

// Sorted returns the elements in ascending order, for stable iteration and messages.
func (s Set[T]) Sorted() []T {
	return slices.Sorted(maps.Keys(s))
}
