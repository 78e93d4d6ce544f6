package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/crewkit/crewkit/pkg/logger"
	tooltypes "github.com/crewkit/crewkit/pkg/types/tools"
)

// ForkActivator runs a fork-mode activation through the integration
// layer. The manager holds it as an opaque callback so that the skill
// subsystem never references the subagent manager directly; the owning
// host wires both sides through the mediator.
type ForkActivator func(ctx context.Context, inst *Instance, args Arguments, source InvocationSource) (string, error)

// Manager is the facade over discovery, registry, validator, and
// invocation. It exclusively owns the registry.
type Manager struct {
	registry  *Registry
	validator *Validator
	discovery *Discovery

	forkActivator ForkActivator
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithValidator replaces the default validator
func WithValidator(v *Validator) ManagerOption {
	return func(m *Manager) { m.validator = v }
}

// WithDiscovery replaces the default discovery
func WithDiscovery(d *Discovery) ManagerOption {
	return func(m *Manager) { m.discovery = d }
}

// NewManager creates a skill manager. Without options it uses the
// default discovery directories and an empty trusted-paths list.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		registry:  NewRegistry(),
		validator: NewValidator(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.discovery == nil {
		d, err := NewDiscovery()
		if err != nil {
			return nil, err
		}
		m.discovery = d
	}
	return m, nil
}

// SetForkActivator installs the fork-mode activation callback
func (m *Manager) SetForkActivator(fn ForkActivator) {
	m.forkActivator = fn
}

// Discover scans the configured directories, registers every newly
// found skill that passes validation, and returns the registered
// descriptors. Already-registered names are skipped, so a second call
// with no intervening changes returns an empty list.
func (m *Manager) Discover(ctx context.Context) ([]*Descriptor, error) {
	found, err := m.discovery.Discover(ctx, m.registry.Has, m.validator)

	var merr *multierror.Error
	if err != nil {
		merr = multierror.Append(merr, err)
	}

	var registered []*Descriptor
	for _, desc := range found {
		outcome := m.validator.CheckDescriptor(desc)
		if !outcome.Valid {
			logger.G(ctx).WithFields(map[string]interface{}{
				"skill":  desc.Name,
				"errors": outcome.Errors,
			}).Warn("Discovered skill failed validation, skipping")
			continue
		}
		if err := m.registry.Register(NewInstance(*desc)); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		registered = append(registered, desc)
	}

	logger.G(ctx).WithField("count", len(registered)).Debug("Registered discovered skills")
	return registered, merr.ErrorOrNil()
}

// Register adds a skill from an explicit descriptor, gated by the same
// trust checks discovery applies
func (m *Manager) Register(desc Descriptor) error {
	if !ValidName(desc.Name) {
		return &ValidationError{Path: desc.Path, Reason: "name must be a lowercase identifier"}
	}
	if desc.Mode == "" {
		desc.Mode = ModeNormal
	}
	if desc.Trust == "" {
		desc.Trust = desc.Scope.DefaultTrust()
	}
	outcome := m.validator.CheckDescriptor(&desc)
	if !outcome.Valid {
		return &ValidationError{Path: desc.Path, Reason: strings.Join(outcome.Errors, "; ")}
	}
	return m.registry.Register(NewInstance(desc))
}

// Deregister removes a skill, deactivating it first
func (m *Manager) Deregister(name string) error {
	return m.registry.Deregister(name)
}

// Get returns a registered skill instance
func (m *Manager) Get(name string) (*Instance, error) {
	return m.registry.Get(name)
}

// Has reports whether a skill is registered
func (m *Manager) Has(name string) bool {
	return m.registry.Has(name)
}

// List returns all registered instances sorted by name
func (m *Manager) List() []*Instance {
	return m.registry.List()
}

// Validate runs the validator against a definition file
func (m *Manager) Validate(path string, scope Scope) *ValidationOutcome {
	return m.validator.Validate(path, scope)
}

// Body returns a skill's body, loading it on first access
func (m *Manager) Body(name string) (string, error) {
	inst, err := m.registry.Get(name)
	if err != nil {
		return "", err
	}
	return inst.Body()
}

// Activate invokes a skill: permission check, lazy body load, argument
// substitution, and activation. Fork-mode skills are routed through the
// fork activator and their delegation result becomes the activation
// result.
func (m *Manager) Activate(ctx context.Context, name, rawArgs string, source InvocationSource) (string, error) {
	inst, err := m.registry.Get(name)
	if err != nil {
		return "", err
	}

	if err := checkSource(&inst.Descriptor, source); err != nil {
		return "", err
	}

	args := ParseArguments(rawArgs)

	if inst.Descriptor.Mode == ModeFork {
		if m.forkActivator == nil {
			return "", &InvocationError{
				Name:   name,
				Source: source,
				Reason: "fork execution is not available: no subagent subsystem wired",
			}
		}
		inst.setActive(true)
		defer inst.setActive(false)

		logger.G(ctx).WithFields(map[string]interface{}{
			"skill": name,
			"agent": inst.Descriptor.Agent,
		}).Debug("Routing skill activation to fork bridge")
		return m.forkActivator(ctx, inst, args, source)
	}

	body, err := inst.Body()
	if err != nil {
		return "", err
	}

	inst.setActive(true)
	return Substitute(body, args), nil
}

// Deactivate marks a skill inactive. Deactivating an already-inactive
// or unknown skill is a no-op.
func (m *Manager) Deactivate(name string) {
	inst, err := m.registry.Get(name)
	if err != nil {
		return
	}
	inst.setActive(false)
}

// GetTools returns the runtime tools registered by a skill
func (m *Manager) GetTools(name string) ([]tooltypes.Tool, error) {
	inst, err := m.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return inst.Tools(), nil
}

// GetAllTools returns the runtime tools of every active skill
func (m *Manager) GetAllTools() []tooltypes.Tool {
	var out []tooltypes.Tool
	for _, inst := range m.registry.List() {
		if inst.Active() {
			out = append(out, inst.Tools()...)
		}
	}
	return out
}

// GetReferences lists the supplemental files shipped alongside a skill
// definition (tier 3), as paths relative to the skill directory
func (m *Manager) GetReferences(name string) ([]string, error) {
	inst, err := m.registry.Get(name)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(inst.Descriptor.Path)
	var refs []string
	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == SkillFileName {
			return nil
		}
		refs = append(refs, rel)
		return nil
	})
	if walkErr != nil {
		return nil, &LoadError{Path: dir, Cause: walkErr}
	}
	return refs, nil
}

// LoadReference reads one supplemental file from the skill directory.
// The relative path may not escape the directory.
func (m *Manager) LoadReference(name, rel string) (string, error) {
	inst, err := m.registry.Get(name)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(inst.Descriptor.Path)
	clean := filepath.Clean(rel)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", errors.Errorf("reference path '%s' escapes the skill directory", rel)
	}

	content, err := os.ReadFile(filepath.Join(dir, clean))
	if err != nil {
		return "", &LoadError{Path: filepath.Join(dir, clean), Cause: err}
	}
	return string(content), nil
}
