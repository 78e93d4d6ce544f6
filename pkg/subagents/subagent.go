// Package subagents provides the subagent subsystem: loading definition
// files, spawning isolated child agents, and delegating tasks to them
// through blocking, awaited, and fire-and-forget calling conventions.
// A spawned child owns nothing persistent; it lives for the duration of
// the delegation that created it.
package subagents

import (
	llmtypes "github.com/crewkit/crewkit/pkg/types/llm"
	tooltypes "github.com/crewkit/crewkit/pkg/types/tools"
)

// Descriptor declares how a subagent is spawned. A nil or empty Tools
// list is a deliberate isolation default meaning zero tools, never
// "inherit the host's tools".
type Descriptor struct {
	Name            string
	Description     string
	Model           string   // empty means inherit the host model
	Tools           []string // tool names or glob patterns resolved against host tools
	ToolObjs        []tooltypes.Tool
	DisallowedTools []string // subtracted after the allowlist
	Prompt          string   // literal system prompt (body of the definition file)
	Skills          []string // skill names whose bodies are pre-loaded into the prompt
	MaxTurns        int
	Config          *llmtypes.Config // full configuration override
	Path            string
}
