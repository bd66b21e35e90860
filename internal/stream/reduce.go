package stream

import (
	"errors"
	"sort"
)

// Count emits the number of values seen when the stream completes; 0 for an
// empty stream.
func Count[T any](s Stream[T]) Stream[int] {
	return Reduce(s, func(n int, _ T) int { return n + 1 }, 0)
}

// Some emits true as soon as a value satisfies pred and ignores the rest of the
// stream; it emits false at completion if no value did.
func Some[T any](s Stream[T], pred func(T) bool) Stream[bool] {
	return New(func(o Observer[bool]) {
		found := false
		s.Observe(Observer[T]{
			Next: func(v T) error {
				if found || !pred(v) {
					return nil
				}
				found = true
				return o.next(true)
			},
			Complete: func() error {
				var err error
				if !found {
					err = o.next(false)
				}
				return errors.Join(err, o.complete())
			},
		})
	})
}

// Reduce folds the stream from seed and emits the result at completion. An
// empty stream emits seed.
func Reduce[T, A any](s Stream[T], fn func(A, T) A, seed A) Stream[A] {
	return New(func(o Observer[A]) {
		acc := seed
		s.Observe(Observer[T]{
			Next: func(v T) error {
				acc = fn(acc, v)
				return nil
			},
			Complete: func() error {
				return errors.Join(o.next(acc), o.complete())
			},
		})
	})
}

// Reduce1 folds the stream using its first value as the seed. An empty stream
// emits nothing and completes with ErrNoElements.
func Reduce1[T any](s Stream[T], fn func(T, T) T) Stream[T] {
	return New(func(o Observer[T]) {
		var acc T
		seen := false
		s.Observe(Observer[T]{
			Next: func(v T) error {
				if !seen {
					acc, seen = v, true
					return nil
				}
				acc = fn(acc, v)
				return nil
			},
			Complete: func() error {
				if !seen {
					return errors.Join(ErrNoElements, o.complete())
				}
				return errors.Join(o.next(acc), o.complete())
			},
		})
	})
}

// Collect emits every value, in order, as one slice at completion.
func Collect[T any](s Stream[T]) Stream[[]T] {
	return Reduce(s, func(acc []T, v T) []T { return append(acc, v) }, []T{})
}

// Top emits, at completion, the n greatest values by less in descending
// order. Equal values keep their arrival order. Fewer than n values are all
// returned.
func Top[T any](s Stream[T], n int, less func(a, b T) bool) Stream[[]T] {
	return Map(Collect(s), func(values []T) []T {
		return TopN(values, n, less)
	})
}

// TopN is the slice form of Top.
func TopN[T any](values []T, n int, less func(a, b T) bool) []T {
	sorted := make([]T, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[j], sorted[i])
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
