package source

import (
	"errors"
	"fmt"
	"sort"

	"probekit/internal/core"
)

// Handle is an opaque resolved reference.
type Handle struct {
	ref Ref
}

// Ref returns the reference the handle was resolved from.
func (h Handle) Ref() Ref {
	return h.ref
}

// Instrumentation is the external layer that can find program locations and
// notify about them.
type Instrumentation interface {
	Resolve(ref Ref) (Handle, error)
	Attach(h Handle, deliver func(core.Event) error) (detach func())
}

type site struct {
	vars      map[string]bool
	listeners []*listener
}

type listener struct {
	ref     Ref
	deliver func(core.Event) error
}

// Hub is an in-process Instrumentation: instrumented code calls Emit at its
// locations and the hub forwards to attached windows. Locations become
// resolvable once declared, either explicitly or by a first Emit.
//
// A Hub is not safe for concurrent use; tests are driven one at a time.
type Hub struct {
	sites map[string]*site
	seq   uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sites: make(map[string]*site)}
}

// Declare makes location resolvable with the given variables.
func (h *Hub) Declare(location string, vars ...string) {
	s := h.site(location)
	for _, v := range vars {
		s.vars[v] = true
	}
}

func (h *Hub) site(location string) *site {
	s, ok := h.sites[location]
	if !ok {
		s = &site{vars: make(map[string]bool)}
		h.sites[location] = s
	}
	return s
}

// Locations returns the declared locations, sorted.
func (h *Hub) Locations() []string {
	locs := make([]string, 0, len(h.sites))
	for loc := range h.sites {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	return locs
}

// Resolve checks that ref names a declared location and declared variables.
func (h *Hub) Resolve(ref Ref) (Handle, error) {
	s, ok := h.sites[ref.Location]
	if !ok {
		return Handle{}, &core.UnresolvedReferenceError{Ref: ref.Raw, Reason: "no such location"}
	}
	names := append([]string{}, ref.Captures...)
	if ref.Focus != "" {
		names = append(names, ref.Focus)
	}
	for _, name := range names {
		if !s.vars[name] {
			return Handle{}, &core.UnresolvedReferenceError{
				Ref:    ref.Raw,
				Reason: fmt.Sprintf("no variable %q at %s", name, ref.Location),
			}
		}
	}
	return Handle{ref: ref}, nil
}

// Attach registers deliver for events matching the handle until detach is called.
func (h *Hub) Attach(handle Handle, deliver func(core.Event) error) func() {
	s := h.site(handle.ref.Location)
	l := &listener{ref: handle.ref, deliver: deliver}
	s.listeners = append(s.listeners, l)
	return func() {
		for i, other := range s.listeners {
			if other == l {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Listeners returns how many windows are attached to location.
func (h *Hub) Listeners(location string) int {
	if s, ok := h.sites[location]; ok {
		return len(s.listeners)
	}
	return 0
}

// Emit is called by instrumented code when location is reached. Errors raised
// by probe pipelines (failed assertions, missing keys) are returned here, in
// the instrumented frame.
func (h *Hub) Emit(location string, fields ...core.Field) error {
	h.seq++
	event := core.NewEvent(location, fields...)
	event.Seq = h.seq

	s := h.site(location)
	for _, f := range fields {
		s.vars[f.Name] = true
	}

	var errs []error
	for _, l := range append([]*listener(nil), s.listeners...) {
		projected, ok := l.ref.project(event)
		if !ok {
			continue
		}
		if err := l.deliver(projected); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EmitPairs is Emit with alternating name/value arguments.
func (h *Hub) EmitPairs(location string, kv ...any) error {
	return h.Emit(location, core.Pairs(kv...)...)
}
