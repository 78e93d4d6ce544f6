// Package host provides the host-agent collaborator the capability
// subsystems hang off. Subsystems are initialized explicitly and
// idempotently; accessors fail with an actionable error when read
// before initialization, so nothing is created as a side effect of an
// attribute read.
package host

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/crewkit/crewkit/pkg/integration"
	"github.com/crewkit/crewkit/pkg/skills"
	"github.com/crewkit/crewkit/pkg/subagents"
	llmtypes "github.com/crewkit/crewkit/pkg/types/llm"
	tooltypes "github.com/crewkit/crewkit/pkg/types/tools"
	"github.com/crewkit/crewkit/pkg/usage"
)

// ThreadFactory creates the conversation thread a spawned child agent
// runs on. The factory owns actual model invocation.
type ThreadFactory func(ctx context.Context, cfg llmtypes.Config, systemPrompt string, tools []tooltypes.Tool) (llmtypes.Thread, error)

// Agent is the host agent. It owns the tool table, the usage tracker,
// and both capability subsystems, and wires the two managers together
// through the integration mediator rather than letting them reference
// each other.
type Agent struct {
	name       string
	model      string
	isSubagent bool

	mu            sync.RWMutex
	tools         map[string]tooltypes.Tool
	threadFactory ThreadFactory
	tracker       *usage.Tracker

	skillOpts    []skills.ManagerOption
	subagentOpts []subagents.LoaderOption

	skillMgr    *skills.Manager
	subagentMgr *subagents.Manager
}

// Option configures an Agent
type Option func(*Agent)

// WithModel sets the host model children inherit by default
func WithModel(model string) Option {
	return func(a *Agent) { a.model = model }
}

// WithTools registers tools on the host tool table
func WithTools(tools ...tooltypes.Tool) Option {
	return func(a *Agent) {
		for _, t := range tools {
			a.tools[t.Name()] = t
		}
	}
}

// WithThreadFactory sets the model-invocation collaborator
func WithThreadFactory(factory ThreadFactory) Option {
	return func(a *Agent) { a.threadFactory = factory }
}

// WithSkillOptions forwards options to the skill manager created by
// InitSkills
func WithSkillOptions(opts ...skills.ManagerOption) Option {
	return func(a *Agent) { a.skillOpts = opts }
}

// WithSubagentOptions forwards options to the subagent loader created by
// InitSubagents
func WithSubagentOptions(opts ...subagents.LoaderOption) Option {
	return func(a *Agent) { a.subagentOpts = opts }
}

// AsSubagent marks the agent as a spawned child, which forbids it from
// spawning further subagents
func AsSubagent() Option {
	return func(a *Agent) { a.isSubagent = true }
}

// New creates a host agent. Subsystems stay nil until their Init calls.
func New(name string, opts ...Option) *Agent {
	a := &Agent{
		name:    name,
		tools:   make(map[string]tooltypes.Tool),
		tracker: usage.NewTracker(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InitSkills initializes the skill subsystem. A second call is a no-op.
func (a *Agent) InitSkills() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.skillMgr != nil {
		return nil
	}
	mgr, err := skills.NewManager(a.skillOpts...)
	if err != nil {
		return errors.Wrap(err, "failed to initialize skill subsystem")
	}
	a.skillMgr = mgr
	a.wireForkBridge()
	return nil
}

// InitSubagents initializes the subagent subsystem. A second call is a
// no-op.
func (a *Agent) InitSubagents() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.subagentMgr != nil {
		return nil
	}
	mgr, err := subagents.NewManager(a, a.tracker, a.subagentOpts...)
	if err != nil {
		return errors.Wrap(err, "failed to initialize subagent subsystem")
	}
	a.subagentMgr = mgr
	a.wireForkBridge()
	return nil
}

// wireForkBridge connects fork-mode skill activation to subagent
// delegation once both subsystems exist. The skill manager only ever
// holds the opaque callback; neither facade references the other.
func (a *Agent) wireForkBridge() {
	if a.skillMgr == nil || a.subagentMgr == nil {
		return
	}

	skillMgr := a.skillMgr
	subagentMgr := a.subagentMgr
	lookup := func(name string) (*skills.Descriptor, bool) {
		inst, err := skillMgr.Get(name)
		if err != nil {
			return nil, false
		}
		return &inst.Descriptor, true
	}

	skillMgr.SetForkActivator(func(ctx context.Context, inst *skills.Instance, args skills.Arguments, source skills.InvocationSource) (string, error) {
		outcome, err := integration.ActivateWithFork(ctx, subagentMgr, inst, args, source, lookup)
		if err != nil {
			return "", err
		}
		if !outcome.Success {
			cause := outcome.Cause
			if cause == nil {
				cause = errors.New(outcome.Error)
			}
			return "", &subagents.DelegationError{
				Subagent: outcome.Subagent,
				Task:     inst.Descriptor.Name,
				Cause:    cause,
			}
		}
		return outcome.Output, nil
	})
}

// Skills returns the skill manager, failing if InitSkills has not run
func (a *Agent) Skills() (*skills.Manager, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.skillMgr == nil {
		return nil, errors.New("skill subsystem is not initialized: call InitSkills first")
	}
	return a.skillMgr, nil
}

// Subagents returns the subagent manager, failing if InitSubagents has
// not run
func (a *Agent) Subagents() (*subagents.Manager, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.subagentMgr == nil {
		return nil, errors.New("subagent subsystem is not initialized: call InitSubagents first")
	}
	return a.subagentMgr, nil
}

// UsageTracker returns the host's usage-tracking collaborator
func (a *Agent) UsageTracker() *usage.Tracker {
	return a.tracker
}

// Name implements subagents.Host
func (a *Agent) Name() string { return a.name }

// Model implements subagents.Host
func (a *Agent) Model() string { return a.model }

// IsSubagent implements subagents.Host
func (a *Agent) IsSubagent() bool { return a.isSubagent }

// Tool implements subagents.Host
func (a *Agent) Tool(name string) (tooltypes.Tool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tools[name]
	return t, ok
}

// Tools implements subagents.Host, sorted by name
func (a *Agent) Tools() []tooltypes.Tool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]tooltypes.Tool, 0, len(a.tools))
	for _, t := range a.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// RegisterTool adds a tool to the host tool table
func (a *Agent) RegisterTool(t tooltypes.Tool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tools[t.Name()] = t
}

// SkillBody implements subagents.Host: it resolves a pre-load skill
// name to its body through the skill registry
func (a *Agent) SkillBody(name string) (string, error) {
	mgr, err := a.Skills()
	if err != nil {
		return "", err
	}
	return mgr.Body(name)
}

// NewThread implements subagents.Host
func (a *Agent) NewThread(ctx context.Context, cfg llmtypes.Config, systemPrompt string, tools []tooltypes.Tool) (llmtypes.Thread, error) {
	a.mu.RLock()
	factory := a.threadFactory
	a.mu.RUnlock()

	if factory == nil {
		return nil, errors.New("no thread factory configured on host")
	}
	return factory(ctx, cfg, systemPrompt, tools)
}

// InvokeSkill activates a skill through the skill manager
func (a *Agent) InvokeSkill(ctx context.Context, name, rawArgs string, source skills.InvocationSource) (string, error) {
	mgr, err := a.Skills()
	if err != nil {
		return "", err
	}
	return mgr.Activate(ctx, name, rawArgs, source)
}

// InvokeSkillSync is the blocking convenience form of InvokeSkill for
// call sites outside any concurrent workflow
func (a *Agent) InvokeSkillSync(name, rawArgs string, source skills.InvocationSource) (string, error) {
	return a.InvokeSkill(context.Background(), name, rawArgs, source)
}

// RegisterSkill registers a skill descriptor
func (a *Agent) RegisterSkill(desc skills.Descriptor) error {
	mgr, err := a.Skills()
	if err != nil {
		return err
	}
	return mgr.Register(desc)
}

// DeregisterSkill removes a skill
func (a *Agent) DeregisterSkill(name string) error {
	mgr, err := a.Skills()
	if err != nil {
		return err
	}
	return mgr.Deregister(name)
}

// RegisterSubagent registers a subagent descriptor
func (a *Agent) RegisterSubagent(desc *subagents.Descriptor) error {
	mgr, err := a.Subagents()
	if err != nil {
		return err
	}
	return mgr.Register(desc)
}

// Delegate runs a task on a registered subagent
func (a *Agent) Delegate(ctx context.Context, name, task string) (*subagents.DelegationOutcome, error) {
	mgr, err := a.Subagents()
	if err != nil {
		return nil, err
	}
	return mgr.Delegate(ctx, name, task)
}

// DelegateSync is the blocking convenience form of Delegate
func (a *Agent) DelegateSync(name, task string) (*subagents.DelegationOutcome, error) {
	mgr, err := a.Subagents()
	if err != nil {
		return nil, err
	}
	return mgr.DelegateSync(name, task)
}

// DelegateAsync starts a fire-and-forget delegation
func (a *Agent) DelegateAsync(ctx context.Context, name, task string) (*subagents.DelegationHandle, error) {
	mgr, err := a.Subagents()
	if err != nil {
		return nil, err
	}
	return mgr.DelegateAsync(ctx, name, task)
}
