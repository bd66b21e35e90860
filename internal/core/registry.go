package core

import (
	"fmt"
	"sort"
)

// Registry holds named definitions, each registered under a scope (a
// slash-separated package path, "" for the root). Lookups resolve to the
// nearest scope enclosing the test.
type Registry[D any] struct {
	kind    string
	entries []registryEntry[D]
}

type registryEntry[D any] struct {
	name  string
	scope string
	def   D
}

// NewRegistry creates an empty registry; kind names its definitions in errors.
func NewRegistry[D any](kind string) *Registry[D] {
	return &Registry[D]{kind: kind}
}

// Register adds def under name and scope. A name may be registered once per scope.
func (r *Registry[D]) Register(name, scope string, def D) error {
	if name == "" {
		return fmt.Errorf("%s definition has no name", r.kind)
	}
	for _, e := range r.entries {
		if e.name == name && e.scope == scope {
			return fmt.Errorf("%s %q already registered in scope %q", r.kind, name, scope)
		}
	}
	r.entries = append(r.entries, registryEntry[D]{name: name, scope: scope, def: def})
	return nil
}

// Lookup returns the definition for name whose scope most closely encloses test.
func (r *Registry[D]) Lookup(name string, test TestContext) (D, bool) {
	var (
		best  D
		depth = -1
	)
	for _, e := range r.entries {
		if e.name != name {
			continue
		}
		if n, ok := test.ScopeDepth(e.scope); ok && n > depth {
			best, depth = e.def, n
		}
	}
	return best, depth >= 0
}

// Has reports whether name is registered in any scope.
func (r *Registry[D]) Has(name string) bool {
	for _, e := range r.entries {
		if e.name == name {
			return true
		}
	}
	return false
}

// All returns every definition sorted by name, then scope.
func (r *Registry[D]) All() []D {
	entries := append([]registryEntry[D](nil), r.entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].name != entries[j].name {
			return entries[i].name < entries[j].name
		}
		return entries[i].scope < entries[j].scope
	})
	out := make([]D, len(entries))
	for i, e := range entries {
		out[i] = e.def
	}
	return out
}
