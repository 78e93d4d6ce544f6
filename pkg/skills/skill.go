// Package skills provides the skill subsystem of the capability
// extension layer: discovery, validation, registration, and invocation
// of named instruction bundles. Skills are packaged as directories
// containing a SKILL.md file with YAML frontmatter; the body is loaded
// lazily on first activation and reference files only on demand.
package skills

import (
	"regexp"
	"sync"

	tooltypes "github.com/crewkit/crewkit/pkg/types/tools"
)

// Scope identifies where a skill was discovered from
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeUser    Scope = "user"
	ScopeCustom  Scope = "custom"
)

// TrustLevel controls whether a skill may use fork execution or broad
// tool access
type TrustLevel string

const (
	TrustTrusted   TrustLevel = "trusted"
	TrustUntrusted TrustLevel = "untrusted"
)

// ExecutionMode selects how activation produces its result
type ExecutionMode string

const (
	// ModeNormal returns the substituted body directly
	ModeNormal ExecutionMode = "normal"
	// ModeFork delegates to a subagent and returns its outcome
	ModeFork ExecutionMode = "fork"
)

// InvocationSource identifies who initiated an activation
type InvocationSource string

const (
	SourceModel InvocationSource = "model"
	SourceUser  InvocationSource = "user"
)

// DefaultTrust maps a discovery scope to its default trust level.
// Custom paths start untrusted; the validator upgrades them when they
// match a trusted-paths pattern.
func (s Scope) DefaultTrust() TrustLevel {
	switch s {
	case ScopeProject, ScopeUser:
		return TrustTrusted
	default:
		return TrustUntrusted
	}
}

// AllowedForTrust reports whether a skill at the given trust level may
// declare this execution mode
func (m ExecutionMode) AllowedForTrust(t TrustLevel) bool {
	if m == ModeFork {
		return t == TrustTrusted
	}
	return true
}

var nameRe = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// ValidName reports whether name is a valid skill identifier
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// Descriptor is the immutable metadata captured at discovery time.
// The body is deliberately absent; see Instance.
type Descriptor struct {
	Name                   string
	Description            string
	Path                   string
	Scope                  Scope
	Trust                  TrustLevel
	AllowedTools           []string // nil means no declaration, not "no tools"
	Model                  string
	Mode                   ExecutionMode
	Agent                  string // fork target subagent name
	DisableModelInvocation bool
	UserInvocable          bool
	ArgumentHint           string
	Metadata               map[string]interface{}
}

// Instance wraps a descriptor with its lazily-loaded body and activation
// state. The registry exclusively owns instances; other components only
// read them through the manager.
type Instance struct {
	Descriptor Descriptor

	mu         sync.Mutex
	body       string
	bodyLoaded bool
	active     bool
	tools      []tooltypes.Tool
}

// NewInstance creates a registered-but-unloaded instance (tier 1)
func NewInstance(d Descriptor) *Instance {
	return &Instance{Descriptor: d}
}

// Body returns the skill body, reading the definition file on first call
// (tier 2)
func (i *Instance) Body() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.bodyLoaded {
		body, err := LoadBody(i.Descriptor.Path)
		if err != nil {
			return "", err
		}
		i.body = body
		i.bodyLoaded = true
	}
	return i.body, nil
}

// BodyLoaded reports whether the body has been read yet
func (i *Instance) BodyLoaded() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.bodyLoaded
}

// Active reports whether the skill is currently active
func (i *Instance) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

func (i *Instance) setActive(active bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.active = active
}

// AddTool attaches a runtime tool callable owned by this skill
func (i *Instance) AddTool(t tooltypes.Tool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tools = append(i.tools, t)
}

// Tools returns the tool callables this skill registered at runtime
func (i *Instance) Tools() []tooltypes.Tool {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]tooltypes.Tool, len(i.tools))
	copy(out, i.tools)
	return out
}
