package platforms

import "fmt"

// Registry maps platform names to their adapter. Built once at startup;
// read-only afterwards, so lookups need no locking.
type Registry struct {
	adapters map[Platform]Adapter
}

// NewRegistry builds a registry from the given adapters. Registering two
// adapters for the same platform is a wiring bug and panics at startup.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := r.adapters[a.Platform()]; dup {
			panic(fmt.Sprintf("duplicate adapter registered for platform %q", a.Platform()))
		}
		r.adapters[a.Platform()] = a
	}
	return r
}

// Get returns the adapter for a platform
func (r *Registry) Get(p Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, p)
	}
	return a, nil
}

// Platforms lists every registered platform
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}
