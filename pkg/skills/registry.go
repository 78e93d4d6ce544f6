package skills

import (
	"sort"
	"sync"
)

// Registry is the in-memory name index of registered skills. It is
// exclusively owned by the Manager and must stay consistent under
// concurrent activations.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*Instance
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		skills: make(map[string]*Instance),
	}
}

// Register adds an instance under its descriptor name. Duplicate names
// are rejected with a ConflictError.
func (r *Registry) Register(inst *Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := inst.Descriptor.Name
	if _, exists := r.skills[name]; exists {
		return &ConflictError{Name: name}
	}
	r.skills[name] = inst
	return nil
}

// Deregister removes a skill by name, deactivating it first if active
func (r *Registry) Deregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, exists := r.skills[name]
	if !exists {
		return &NotFoundError{Name: name}
	}
	inst.setActive(false)
	delete(r.skills, name)
	return nil
}

// Get returns the instance registered under name
func (r *Registry) Get(name string) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, exists := r.skills[name]
	if !exists {
		return nil, &NotFoundError{Name: name}
	}
	return inst, nil
}

// Has reports whether a name is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.skills[name]
	return exists
}

// List returns all registered instances sorted by name
func (r *Registry) List() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Instance, 0, len(r.skills))
	for _, inst := range r.skills {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor.Name < out[j].Descriptor.Name
	})
	return out
}
