// Package core defines the shared data model for probekit: observed events,
// metric records, per-test results and the error taxonomy.
package core

import (
	"fmt"
	"strings"
)

// Field is one variable binding captured at an instrumented location.
type Field struct {
	Name  string
	Value any
}

// Event is an ordered, immutable mapping from variable name to observed value.
// Seq is the arrival order assigned by the source that produced it.
type Event struct {
	Location string
	Seq      uint64
	fields   []Field
}

// NewEvent builds an Event from fields, keeping their order. A repeated name
// keeps its first position and takes the last value.
func NewEvent(location string, fields ...Field) Event {
	out := make([]Field, 0, len(fields))
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		if i, ok := index[f.Name]; ok {
			out[i].Value = f.Value
			continue
		}
		index[f.Name] = len(out)
		out = append(out, f)
	}
	return Event{Location: location, fields: out}
}

// Pairs converts alternating name/value arguments into fields.
// A trailing name without a value is bound to nil.
func Pairs(kv ...any) []Field {
	fields := make([]Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		name := fmt.Sprint(kv[i])
		var value any
		if i+1 < len(kv) {
			value = kv[i+1]
		}
		fields = append(fields, Field{Name: name, Value: value})
	}
	return fields
}

// Get returns the value bound to name.
func (e Event) Get(name string) (any, bool) {
	for _, f := range e.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Lookup returns the value bound to name or a *KeyNotPresentError.
func (e Event) Lookup(name string) (any, error) {
	if v, ok := e.Get(name); ok {
		return v, nil
	}
	return nil, &KeyNotPresentError{Key: name, Location: e.Location, Available: e.Keys()}
}

// Has reports whether name is bound in the event.
func (e Event) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Keys returns variable names in capture order.
func (e Event) Keys() []string {
	keys := make([]string, len(e.fields))
	for i, f := range e.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the captured fields.
func (e Event) Fields() []Field {
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

// Len returns the number of captured variables.
func (e Event) Len() int {
	return len(e.fields)
}

// Map returns the fields as a plain map. Order is lost.
func (e Event) Map() map[string]any {
	m := make(map[string]any, len(e.fields))
	for _, f := range e.fields {
		m[f.Name] = f.Value
	}
	return m
}

func (e Event) String() string {
	var b strings.Builder
	b.WriteString(e.Location)
	b.WriteString(": ")
	for i, f := range e.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", f.Name, f.Value)
	}
	return b.String()
}
