package provider

import (
	"lexgate/internal/logging"
	"lexgate/internal/session"
	"lexgate/internal/types"
)

// Registry resolves sources to adapters.
type Registry struct {
	adapters map[types.Source]Adapter
	order    []types.Source
}

// NewRegistry creates a registry. A later adapter for the same source replaces an earlier one.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[types.Source]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// NewDefaultRegistry builds engines for every built-in profile, sharing pages and cache.
func NewDefaultRegistry(pages Pages, cache *session.Cache, timing Timing) *Registry {
	adapters := make([]Adapter, 0, len(Profiles))
	for _, p := range Profiles {
		adapters = append(adapters, NewEngine(p, pages, cache, timing))
		logging.Provider("registered %s (%s)", p.Name, p.Origin)
	}
	return NewRegistry(adapters...)
}

// Register adds or replaces the adapter for a.Source().
func (r *Registry) Register(a Adapter) {
	if _, exists := r.adapters[a.Source()]; exists {
		logging.ProviderWarn("replacing adapter for %s", a.Source())
	} else {
		r.order = append(r.order, a.Source())
	}
	r.adapters[a.Source()] = a
}

// Get returns the adapter for source.
func (r *Registry) Get(source types.Source) (Adapter, bool) {
	a, ok := r.adapters[source]
	return a, ok
}

// Sources lists registered sources in registration order.
func (r *Registry) Sources() []types.Source {
	out := make([]types.Source, len(r.order))
	copy(out, r.order)
	return out
}
