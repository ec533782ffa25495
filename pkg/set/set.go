package set

import "sort"

type Set[T comparable] map[T]struct{}

func Of[T comparable](vs ...T) Set[T] {
	s := make(Set[T], len(vs))
	s.Add(vs...)
	return s
}

func (s Set[T]) Add(vs ...T) {
	for _, v := range vs {
		s[v] = struct{}{}
	}
}

func (s Set[T]) Remove(v T) bool {
	_, ok := s[v]
	delete(s, v)
	return ok
}

func (s Set[T]) Contains(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Len() int {
	return len(s)
}

func (s Set[T]) ToSlice() []T {
	slice := make([]T, 0, len(s))
	for v := range s {
		slice = append(slice, v)
	}
	return slice
}

// Sorted returns the elements in the order given by less. Iteration order of
// the underlying map is random, so anything user-visible should go through
// this instead of [Set.ToSlice].
func Sorted[T comparable](s Set[T], less func(a, b T) bool) []T {
	slice := s.ToSlice()
	sort.Slice(slice, func(i, j int) bool { return less(slice[i], slice[j]) })
	return slice
}
