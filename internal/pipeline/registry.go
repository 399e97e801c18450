package pipeline

import "sort"

// Registry holds the plugins registered for a pipeline run. Declaration
// order is retained; plugins with equal order execute in the order they were
// registered.
type Registry struct {
	plugins []Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a plugin.
func (r *Registry) Register(plugins ...Plugin) {
	r.plugins = append(r.plugins, plugins...)
}

// DeregisterAll empties the registry, mirroring a fresh host session.
func (r *Registry) DeregisterAll() {
	r.plugins = nil
}

// Plugins returns the registered plugins in declaration order.
func (r *Registry) Plugins() []Plugin {
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// sorted returns the plugins in ascending order. The sort is stable, so
// equal orders keep their declaration order.
func (r *Registry) sorted() []Plugin {
	out := r.Plugins()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order() < out[j].Order()
	})
	return out
}
