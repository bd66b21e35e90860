package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"probekit/internal/core"
	"probekit/internal/template"
)

// Filter passes through the values for which pred returns true.
func (s Stream[T]) Filter(pred func(T) bool) Stream[T] {
	return New(func(o Observer[T]) {
		s.Observe(Observer[T]{
			Next: func(v T) error {
				if !pred(v) {
					return nil
				}
				return o.next(v)
			},
			Complete: o.complete,
		})
	})
}

// Take passes through the first n values and drops the rest.
func (s Stream[T]) Take(n int) Stream[T] {
	return New(func(o Observer[T]) {
		seen := 0
		s.Observe(Observer[T]{
			Next: func(v T) error {
				if seen >= n {
					return nil
				}
				seen++
				return o.next(v)
			},
			Complete: o.complete,
		})
	})
}

// Isolate forwards values and completion unchanged. Errors raised downstream
// at completion go to onErr instead of the producer; errors raised by values
// still reach the producer.
func (s Stream[T]) Isolate(onErr func(error)) Stream[T] {
	return New(func(o Observer[T]) {
		s.Observe(Observer[T]{
			Next: o.next,
			Complete: func() error {
				if err := o.complete(); err != nil {
					onErr(err)
				}
				return nil
			},
		})
	})
}

// Subscribe calls fn once per value, in order.
func (s Stream[T]) Subscribe(fn func(T)) {
	s.Observe(Observer[T]{Next: func(v T) error {
		fn(v)
		return nil
	}})
}

// SubscribeErr is Subscribe for callbacks that can fail; the error is
// returned to the producer.
func (s Stream[T]) SubscribeErr(fn func(T) error) {
	s.Observe(Observer[T]{Next: fn})
}

// Pipe forwards every value to sink unchanged.
func (s Stream[T]) Pipe(sink core.Sink) {
	s.Observe(Observer[T]{Next: func(v T) error {
		return sink.Accept(v)
	}})
}

// Fail raises an *core.AssertionFailure for every value that does not satisfy
// ok; a nil ok fails on every value. The message is a template where ${value}
// is the offending value and, for events or maps, ${name} is one of its fields.
// The failure is returned synchronously from the producer's Push.
func (s Stream[T]) Fail(ok func(T) bool, message string) {
	s.Observe(Observer[T]{Next: func(v T) error {
		if ok != nil && ok(v) {
			return nil
		}
		return &core.AssertionFailure{Message: failMessage(message, v), Value: v}
	}})
}

func failMessage(message string, v any) string {
	vars := template.Chain{template.Map{"value": v}}
	switch x := v.(type) {
	case core.Event:
		vars = append(vars, x)
	case map[string]any:
		vars = append(vars, template.Map(x))
	}
	msg, err := template.Substitute(message, vars)
	if err != nil {
		return fmt.Sprintf("%s (value: %v)", message, v)
	}
	return msg
}

// Map projects each value through fn.
func Map[T, U any](s Stream[T], fn func(T) U) Stream[U] {
	return TryMap(s, func(v T) (U, error) { return fn(v), nil })
}

// TryMap projects each value through fn; an error is propagated to the
// producer and the value is not forwarded.
func TryMap[T, U any](s Stream[T], fn func(T) (U, error)) Stream[U] {
	return New(func(o Observer[U]) {
		s.Observe(Observer[T]{
			Next: func(v T) error {
				u, err := fn(v)
				if err != nil {
					return err
				}
				return o.next(u)
			},
			Complete: o.complete,
		})
	})
}

// GetItem projects each event to the value bound to key. An event without key
// raises *core.KeyNotPresentError.
func GetItem(s Stream[core.Event], key string) Stream[any] {
	return TryMap(s, func(e core.Event) (any, error) {
		return e.Lookup(key)
	})
}

// Pluck projects each value through a JSON path (gjson syntax, or JSONPath
// such as $.a.b[0]). Events and maps are encoded as JSON objects first; strings
// and byte slices are taken as JSON text. A path that matches nothing raises
// *core.KeyNotPresentError.
func Pluck[T any](s Stream[T], path string) Stream[any] {
	return TryMap(s, func(v T) (any, error) {
		body, err := jsonBody(v)
		if err != nil {
			return nil, fmt.Errorf("pluck %s: %w", path, err)
		}
		value, ok := template.Lookup(body, path)
		if !ok {
			var keys []string
			if e, isEvent := any(v).(core.Event); isEvent {
				keys = e.Keys()
			}
			return nil, &core.KeyNotPresentError{Key: path, Available: keys}
		}
		return value, nil
	})
}

func jsonBody(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case core.Event:
		return json.Marshal(x.Map())
	}
	return json.Marshal(v)
}

// Throttle lets through at most perSecond values per second on average, with
// bursts of up to burst values; the excess is dropped. Time is read from clock.
func Throttle[T any](s Stream[T], perSecond float64, burst int, clock core.Clock) Stream[T] {
	if clock == nil {
		clock = core.RealClock{}
	}
	return New(func(o Observer[T]) {
		limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
		s.Observe(Observer[T]{
			Next: func(v T) error {
				if !limiter.AllowN(clock.Now(), 1) {
					return nil
				}
				return o.next(v)
			},
			Complete: o.complete,
		})
	})
}

// IsPipelineError reports whether err was raised by a projection or a fail
// operator, as opposed to a producer-side problem.
func IsPipelineError(err error) bool {
	var knp *core.KeyNotPresentError
	var af *core.AssertionFailure
	return errors.As(err, &knp) || errors.As(err, &af)
}
