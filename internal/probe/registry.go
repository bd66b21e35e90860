package probe

import "probekit/internal/core"

// Registry holds probe definitions by name and scope.
type Registry struct {
	defs *core.Registry[Definition]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: core.NewRegistry[Definition]("probe")}
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
