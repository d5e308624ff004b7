package plugin

import (
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrDuplicateIdentity is returned when a plugin identity is already
	// registered. Identity collisions are a configuration error.
	ErrDuplicateIdentity = errors.New("duplicate plugin identity")

	// ErrNotRegistered is returned by Lookup for unknown identities.
	ErrNotRegistered = errors.New("plugin not registered")
)

type entry struct {
	id     Identity
	plugin Plugin
}

// Registry maps plugin identities to plugin instances. It is append-only
// for the duration of a scan run; a run is torn down by discarding the
// whole registry. A Registry is owned by exactly one run and is not safe
// for concurrent registration.
type Registry struct {
	entries []entry
	index   map[Identity]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[Identity]int)}
}

// Register adds a plugin under the given identity. Registering an identity
// twice fails with ErrDuplicateIdentity.
func (r *Registry) Register(id Identity, p Plugin) error {
	if p == nil {
		return fmt.Errorf("nil plugin for identity %s", id)
	}
	if _, exists := r.index[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, id)
	}
	r.index[id] = len(r.entries)
	r.entries = append(r.entries, entry{id: id, plugin: p})
	return nil
}

// Lookup returns the plugin registered under id.
func (r *Registry) Lookup(id Identity) (Plugin, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	return r.entries[i].plugin, nil
}

// All enumerates registered plugins in registration order. The sequence is
// restartable and reflects the registry contents at iteration time.
func (r *Registry) All() iter.Seq2[Identity, Plugin] {
	return func(yield func(Identity, Plugin) bool) {
		for _, e := range r.entries {
			if !yield(e.id, e.plugin) {
				return
			}
		}
	}
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	return len(r.entries)
}
