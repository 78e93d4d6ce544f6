package subagents

import (
	"context"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/crewkit/crewkit/pkg/logger"
	llmtypes "github.com/crewkit/crewkit/pkg/types/llm"
	tooltypes "github.com/crewkit/crewkit/pkg/types/tools"
)

// Host is the host-agent collaborator the spawner builds children from.
// The host owns the registered tools, the skill bodies available for
// pre-loading, and the thread factory that performs actual model calls.
type Host interface {
	Name() string
	Model() string
	Tool(name string) (tooltypes.Tool, bool)
	Tools() []tooltypes.Tool
	IsSubagent() bool
	SkillBody(name string) (string, error)
	NewThread(ctx context.Context, cfg llmtypes.Config, systemPrompt string, tools []tooltypes.Tool) (llmtypes.Thread, error)
}

// ChildAgent is an isolated spawned agent. It is owned by the delegation
// call that created it and is discarded once the call completes.
type ChildAgent struct {
	Name         string
	SystemPrompt string
	Tools        []tooltypes.Tool
	Config       llmtypes.Config

	thread llmtypes.Thread
}

// Run sends the task into the child's thread and returns the output and
// accumulated usage
func (c *ChildAgent) Run(ctx context.Context, task string) (string, llmtypes.Usage, error) {
	out, err := c.thread.SendMessage(ctx, task, llmtypes.MessageOpt{
		PromptCache:        true,
		NoSaveConversation: true,
	})
	return out, c.thread.Usage(), err
}

// Spawner builds isolated child agents from descriptors
type Spawner struct {
	host Host
}

// NewSpawner creates a spawner bound to a host
func NewSpawner(host Host) *Spawner {
	return &Spawner{host: host}
}

// ValidateDescriptor checks a descriptor against the host at
// registration time so that configuration mistakes surface before any
// delegation is attempted. Glob entries are only checked for syntax;
// they may legitimately match zero tools.
func (s *Spawner) ValidateDescriptor(desc *Descriptor) error {
	if desc.Name == "" {
		return &ConfigError{Name: "(unnamed)", Reason: "name is required"}
	}
	if desc.Prompt == "" && desc.Config == nil {
		return &ConfigError{Name: desc.Name, Reason: "a system prompt is required"}
	}
	if desc.MaxTurns < 0 {
		return &ConfigError{Name: desc.Name, Reason: "max-turns must not be negative"}
	}

	for _, entry := range desc.Tools {
		if isGlobPattern(entry) {
			if _, err := glob.Compile(entry); err != nil {
				return &ConfigError{Name: desc.Name, Reason: fmt.Sprintf("invalid tool pattern '%s'", entry)}
			}
			continue
		}
		if _, ok := s.host.Tool(entry); !ok {
			return &ConfigError{Name: desc.Name, Reason: fmt.Sprintf("tool '%s' is not registered on the host", entry)}
		}
	}
	for _, entry := range desc.DisallowedTools {
		if _, err := glob.Compile(entry); err != nil {
			return &ConfigError{Name: desc.Name, Reason: fmt.Sprintf("invalid disallowed-tool pattern '%s'", entry)}
		}
	}
	return nil
}

// Spawn builds an isolated child agent. The no-nesting check runs
// before any other work: a host that is itself a spawned subagent may
// not spawn further children.
func (s *Spawner) Spawn(ctx context.Context, desc *Descriptor) (*ChildAgent, error) {
	if s.host.IsSubagent() {
		return nil, &NestingError{Name: desc.Name, Parent: s.host.Name()}
	}

	tools, err := s.resolveTools(desc)
	if err != nil {
		return nil, err
	}

	prompt, err := s.assemblePrompt(desc)
	if err != nil {
		return nil, err
	}

	cfg := s.childConfig(desc)

	thread, err := s.host.NewThread(ctx, cfg, prompt, tools)
	if err != nil {
		return nil, &DelegationError{Subagent: desc.Name, Cause: err}
	}

	logger.G(ctx).WithFields(map[string]interface{}{
		"subagent": desc.Name,
		"model":    cfg.Model,
		"tools":    len(tools),
	}).Debug("Spawned child agent")

	return &ChildAgent{
		Name:         desc.Name,
		SystemPrompt: prompt,
		Tools:        tools,
		Config:       cfg,
		thread:       thread,
	}, nil
}

// resolveTools turns the descriptor's allow/deny lists into concrete
// tool callables. A nil or empty allowlist yields zero tools.
func (s *Spawner) resolveTools(desc *Descriptor) ([]tooltypes.Tool, error) {
	var resolved []tooltypes.Tool
	seen := make(map[string]bool)

	for _, entry := range desc.Tools {
		if isGlobPattern(entry) {
			g, err := glob.Compile(entry)
			if err != nil {
				return nil, &ConfigError{Name: desc.Name, Reason: fmt.Sprintf("invalid tool pattern '%s'", entry)}
			}
			for _, t := range s.host.Tools() {
				if g.Match(t.Name()) && !seen[t.Name()] {
					seen[t.Name()] = true
					resolved = append(resolved, t)
				}
			}
			continue
		}

		t, ok := s.host.Tool(entry)
		if !ok {
			return nil, &ConfigError{Name: desc.Name, Reason: fmt.Sprintf("tool '%s' is not registered on the host", entry)}
		}
		if !seen[entry] {
			seen[entry] = true
			resolved = append(resolved, t)
		}
	}

	for _, t := range desc.ToolObjs {
		if !seen[t.Name()] {
			seen[t.Name()] = true
			resolved = append(resolved, t)
		}
	}

	// the denylist is subtracted after the allowlist
	if len(desc.DisallowedTools) > 0 {
		denied := make([]glob.Glob, 0, len(desc.DisallowedTools))
		for _, entry := range desc.DisallowedTools {
			g, err := glob.Compile(entry)
			if err != nil {
				return nil, &ConfigError{Name: desc.Name, Reason: fmt.Sprintf("invalid disallowed-tool pattern '%s'", entry)}
			}
			denied = append(denied, g)
		}

		kept := resolved[:0]
		for _, t := range resolved {
			blocked := false
			for _, g := range denied {
				if g.Match(t.Name()) {
					blocked = true
					break
				}
			}
			if !blocked {
				kept = append(kept, t)
			}
		}
		resolved = kept
	}

	return resolved, nil
}

// assemblePrompt builds the child's system prompt from the descriptor
// body, appending the bodies of any pre-loaded skills. Each named skill
// must already exist in the host's skill registry.
func (s *Spawner) assemblePrompt(desc *Descriptor) (string, error) {
	var sb strings.Builder
	sb.WriteString(desc.Prompt)

	for _, skillName := range desc.Skills {
		body, err := s.host.SkillBody(skillName)
		if err != nil {
			return "", err
		}
		sb.WriteString(fmt.Sprintf("\n\n# Skill: %s\n\n%s", skillName, body))
	}
	return sb.String(), nil
}

// childConfig derives the child's thread configuration: the full
// override when present, the host model unless overridden, and the
// subagent marker always set
func (s *Spawner) childConfig(desc *Descriptor) llmtypes.Config {
	var cfg llmtypes.Config
	if desc.Config != nil {
		cfg = *desc.Config
	}
	if desc.Model != "" {
		cfg.Model = desc.Model
	}
	if cfg.Model == "" {
		cfg.Model = s.host.Model()
	}
	if desc.MaxTurns > 0 {
		cfg.MaxTurns = desc.MaxTurns
	}
	cfg.IsSubagent = true
	return cfg
}

func isGlobPattern(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
