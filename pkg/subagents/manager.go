package subagents

import (
	"context"
	"sort"
	"sync"

	"github.com/crewkit/crewkit/pkg/logger"
	"github.com/crewkit/crewkit/pkg/usage"
)

// Manager is the facade over loader, spawner, and delegation. It
// exclusively owns the descriptor registry and the set of active
// fire-and-forget handles.
type Manager struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
	active      map[string]*DelegationHandle

	loader    *Loader
	spawner   *Spawner
	delegator *Delegator
	tracker   UsageRecorder
}

// NewManager creates a subagent manager bound to a host and a usage
// collaborator
func NewManager(host Host, tracker UsageRecorder, opts ...LoaderOption) (*Manager, error) {
	loader, err := NewLoader(opts...)
	if err != nil {
		return nil, err
	}

	spawner := NewSpawner(host)
	return &Manager{
		descriptors: make(map[string]*Descriptor),
		active:      make(map[string]*DelegationHandle),
		loader:      loader,
		spawner:     spawner,
		delegator:   NewDelegator(spawner, tracker),
		tracker:     tracker,
	}, nil
}

// Register adds a subagent descriptor, validating it against the host
// so that configuration mistakes surface now rather than at spawn time
func (m *Manager) Register(desc *Descriptor) error {
	if err := m.spawner.ValidateDescriptor(desc); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.descriptors[desc.Name]; exists {
		return &ConfigError{Name: desc.Name, Reason: "a subagent with this name is already registered"}
	}
	m.descriptors[desc.Name] = desc
	return nil
}

// Deregister removes a subagent by name
func (m *Manager) Deregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.descriptors[name]; !exists {
		return &NotFoundError{Name: name}
	}
	delete(m.descriptors, name)
	return nil
}

// Get returns a registered descriptor by name
func (m *Manager) Get(name string) (*Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	desc, exists := m.descriptors[name]
	if !exists {
		return nil, &NotFoundError{Name: name}
	}
	return desc, nil
}

// Has reports whether a subagent name is registered
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.descriptors[name]
	return exists
}

// List returns all registered descriptors sorted by name
func (m *Manager) List() []*Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Descriptor, 0, len(m.descriptors))
	for _, desc := range m.descriptors {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Discover loads subagent definitions from the project and user
// directories and registers the newly found ones
func (m *Manager) Discover(ctx context.Context) ([]*Descriptor, error) {
	found, err := m.loader.Discover(ctx, m.Has)
	if err != nil {
		return nil, err
	}

	var registered []*Descriptor
	for _, desc := range found {
		if err := m.Register(desc); err != nil {
			logger.G(ctx).WithField("subagent", desc.Name).WithError(err).Warn("Discovered subagent failed registration, skipping")
			continue
		}
		registered = append(registered, desc)
	}
	return registered, nil
}

// Delegate runs a task on a registered subagent, blocking until the
// outcome is available
func (m *Manager) Delegate(ctx context.Context, name, task string) (*DelegationOutcome, error) {
	desc, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return m.delegator.Delegate(ctx, desc, task, "")
}

// DelegateSync is the blocking convenience form of Delegate for call
// sites outside any concurrent workflow
func (m *Manager) DelegateSync(name, task string) (*DelegationOutcome, error) {
	desc, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return m.delegator.DelegateSync(desc, task, "")
}

// DelegateAsync starts a fire-and-forget delegation and returns its
// handle. The handle is tracked as active until the run completes.
func (m *Manager) DelegateAsync(ctx context.Context, name, task string) (*DelegationHandle, error) {
	desc, err := m.Get(name)
	if err != nil {
		return nil, err
	}

	handle, err := m.delegator.DelegateAsync(ctx, desc, task, "")
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.active[handle.ID] = handle
	m.mu.Unlock()

	go func() {
		<-handle.done
		m.mu.Lock()
		delete(m.active, handle.ID)
		m.mu.Unlock()
	}()

	return handle, nil
}

// SpawnDynamic delegates a task to a one-off descriptor that is never
// registered
func (m *Manager) SpawnDynamic(ctx context.Context, desc *Descriptor, task string) (*DelegationOutcome, error) {
	return m.delegator.Delegate(ctx, desc, task, "")
}

// ActiveDelegations returns the currently running fire-and-forget
// handles
func (m *Manager) ActiveDelegations() []*DelegationHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*DelegationHandle, 0, len(m.active))
	for _, h := range m.active {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UsageBreakdown returns the per-subagent usage rollup from the
// tracking collaborator
func (m *Manager) UsageBreakdown() map[string]usage.SubagentUsage {
	if m.tracker == nil {
		return nil
	}
	return m.tracker.Breakdown()
}
