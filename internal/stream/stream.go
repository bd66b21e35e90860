// Package stream implements the push-based operator algebra probes are built
// from. A Stream is a handle on a hot source: every operator returns a new
// handle, and each subscription through a handle gets its own operator state,
// so attaching several operators to one upstream fans out rather than
// partitions. Values are delivered synchronously, in source order, on the
// goroutine that pushes them.
package stream

import "errors"

// ErrNoElements is returned at completion by reductions that have no seed
// and saw no values.
var ErrNoElements = errors.New("reduction with no elements")

// Observer receives the values and the completion of a stream.
// Either callback may be nil.
type Observer[T any] struct {
	Next     func(T) error
	Complete func() error
}

func (o Observer[T]) next(v T) error {
	if o.Next == nil {
		return nil
	}
	return o.Next(v)
}

func (o Observer[T]) complete() error {
	if o.Complete == nil {
		return nil
	}
	return o.Complete()
}

// Stream is a subscribable sequence of T. The zero Stream never produces anything.
type Stream[T any] struct {
	observe func(Observer[T])
}

// New creates a stream from a subscription function.
func New[T any](observe func(Observer[T])) Stream[T] {
	return Stream[T]{observe: observe}
}

// Observe attaches o to the stream.
func (s Stream[T]) Observe(o Observer[T]) {
	if s.observe != nil {
		s.observe(o)
	}
}

// Of returns a cold stream that replays values and completes on each subscription.
// Errors raised downstream while replaying are dropped; use a Subject when the
// producer needs them.
func Of[T any](values ...T) Stream[T] {
	return New(func(o Observer[T]) {
		for _, v := range values {
			_ = o.next(v)
		}
		_ = o.complete()
	})
}

// Subject is the hot source at the root of a pipeline. Push and Complete
// return the errors raised by downstream operators and sinks, joined, so the
// producer sees them in its own call frame.
//
// A Subject is not safe for concurrent use.
type Subject[T any] struct {
	observers []Observer[T]
	done      bool
}

// NewSubject creates an open Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Stream returns a handle for wiring operators onto the subject.
// Observing a completed subject completes the observer immediately.
func (s *Subject[T]) Stream() Stream[T] {
	return New(func(o Observer[T]) {
		if s.done {
			_ = o.complete()
			return
		}
		s.observers = append(s.observers, o)
	})
}

// Push delivers v to every observer in subscription order. An error from one
// observer does not stop delivery to the others. Pushing after Complete is a no-op.
func (s *Subject[T]) Push(v T) error {
	if s.done {
		return nil
	}
	var errs []error
	for _, o := range s.observers {
		if err := o.next(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Complete ends the stream. Accumulators downstream emit their final values
// here. Completing twice is a no-op.
func (s *Subject[T]) Complete() error {
	if s.done {
		return nil
	}
	s.done = true
	observers := s.observers
	s.observers = nil
	var errs []error
	for _, o := range observers {
		if err := o.complete(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Done reports whether the subject has completed.
func (s *Subject[T]) Done() bool {
	return s.done
}

// Observers returns the number of attached observers.
func (s *Subject[T]) Observers() int {
	return len(s.observers)
}
