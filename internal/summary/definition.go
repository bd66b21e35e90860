package summary

import (
	"probekit/internal/bus"
	"probekit/internal/core"
	"probekit/internal/stream"
)

// BeforeFunc runs when a summary is first required, while tests are still
// running. live carries every record appended from then on and completes
// when the bus freezes.
type BeforeFunc func(live stream.Stream[core.Record], s *Summary) error

// AfterFunc runs once after the bus is frozen.
type AfterFunc func(view *bus.View, s *Summary) error

// Definition is a named summary. If Channel is set, After only sees that
// channel's records.
type Definition struct {
	Name        string
	Scope       string
	Description string
	Channel     string
	Before      BeforeFunc
	After       AfterFunc
}

// Registry holds summary definitions by name and scope.
type Registry struct {
	defs *core.Registry[Definition]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: core.NewRegistry[Definition]("summary")}
}

// Register adds def. A name may be registered once per scope.
func (r *Registry) Register(def Definition) error {
	return r.defs.Register(def.Name, def.Scope, def)
}

// Lookup returns the definition named name whose scope most closely
// encloses test's package.
func (r *Registry) Lookup(name string, test core.TestContext) (Definition, bool) {
	return r.defs.Lookup(name, test)
}

// Has reports whether name is registered in any scope.
func (r *Registry) Has(name string) bool {
	return r.defs.Has(name)
}

// Definitions returns every definition sorted by name, then scope.
func (r *Registry) Definitions() []Definition {
	return r.defs.All()
}
