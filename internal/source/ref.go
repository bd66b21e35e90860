// Package source adapts an instrumentation layer into probe event streams.
//
// A reference names a program location and, optionally, the variables to
// capture there:
//
//	app/handler                 every event at app/handler
//	app/handler > elapsed       events that bind elapsed
//	app/handler(req) > elapsed  events that bind elapsed, with req captured too
//
// Resolution is the instrumentation layer's job; this package only parses
// the syntax and windows the resulting notifications to one test.
package source

import (
	"fmt"
	"regexp"
	"strings"

	"probekit/internal/core"
)

var (
	locationPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-/]+$`)
	namePattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Ref is a parsed location reference.
type Ref struct {
	Raw      string
	Location string
	Captures []string
	Focus    string
}

func (r Ref) String() string {
	return r.Raw
}

// Selective reports whether the reference restricts which fields are captured.
func (r Ref) Selective() bool {
	return r.Focus != "" || len(r.Captures) > 0
}

// ParseRef parses a reference. Malformed input yields *core.UnresolvedReferenceError.
func ParseRef(raw string) (Ref, error) {
	ref := Ref{Raw: strings.TrimSpace(raw)}
	fail := func(reason string) (Ref, error) {
		return Ref{}, &core.UnresolvedReferenceError{Ref: raw, Reason: reason}
	}
	if ref.Raw == "" {
		return fail("empty reference")
	}

	loc, focus, hasFocus := strings.Cut(ref.Raw, ">")
	if hasFocus {
		if strings.Contains(focus, ">") {
			return fail("more than one '>'")
		}
		ref.Focus = strings.TrimSpace(focus)
		if !namePattern.MatchString(ref.Focus) {
			return fail(fmt.Sprintf("invalid variable name %q", ref.Focus))
		}
	}

	loc = strings.TrimSpace(loc)
	if open := strings.IndexByte(loc, '('); open >= 0 {
		if !strings.HasSuffix(loc, ")") {
			return fail("unbalanced parentheses")
		}
		for _, name := range strings.Split(loc[open+1:len(loc)-1], ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if !namePattern.MatchString(name) {
				return fail(fmt.Sprintf("invalid variable name %q", name))
			}
			ref.Captures = append(ref.Captures, name)
		}
		loc = strings.TrimSpace(loc[:open])
	}

	if !locationPattern.MatchString(loc) {
		return fail(fmt.Sprintf("invalid location %q", loc))
	}
	ref.Location = loc
	return ref, nil
}

// IsReference reports whether a selector looks like a location reference
// rather than a probe name.
func IsReference(selector string) bool {
	return strings.ContainsAny(selector, "/.>")
}

// project narrows an event to the fields the reference asks for. It returns
// false when the focus variable is not bound.
func (r Ref) project(e core.Event) (core.Event, bool) {
	if !r.Selective() {
		return e, true
	}
	if r.Focus != "" && !e.Has(r.Focus) {
		return core.Event{}, false
	}
	fields := make([]core.Field, 0, len(r.Captures)+1)
	for _, name := range r.Captures {
		if v, ok := e.Get(name); ok {
			fields = append(fields, core.Field{Name: name, Value: v})
		}
	}
	if r.Focus != "" {
		v, _ := e.Get(r.Focus)
		fields = append(fields, core.Field{Name: r.Focus, Value: v})
	}
	out := core.NewEvent(e.Location, fields...)
	out.Seq = e.Seq
	return out, true
}
