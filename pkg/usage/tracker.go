// Package usage provides the host's usage-tracking collaborator. Every
// delegation reports its token consumption here through a single public
// entry point so that the aggregate can only ever grow via one path.
package usage

import (
	"context"
	"sync"

	"github.com/crewkit/crewkit/pkg/logger"
	llmtypes "github.com/crewkit/crewkit/pkg/types/llm"
)

// SubagentUsage is the rollup for a single subagent name
type SubagentUsage struct {
	Usage    llmtypes.Usage
	Requests int
}

// Tracker aggregates subagent usage by name. All writes go through
// RecordSubagentUsage; readers receive copies.
type Tracker struct {
	mu         sync.Mutex
	total      llmtypes.Usage
	bySubagent map[string]*SubagentUsage
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		bySubagent: make(map[string]*SubagentUsage),
	}
}

// RecordSubagentUsage adds one delegation's usage to the rollup for the
// named subagent. This is the only write path into the aggregate.
func (t *Tracker) RecordSubagentUsage(name string, u llmtypes.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.bySubagent[name]
	if !ok {
		entry = &SubagentUsage{}
		t.bySubagent[name] = entry
	}
	entry.Usage.Add(u)
	entry.Requests++
	t.total.Add(u)
}

// Breakdown returns a copy of the per-subagent rollup
func (t *Tracker) Breakdown() map[string]SubagentUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]SubagentUsage, len(t.bySubagent))
	for name, entry := range t.bySubagent {
		out[name] = *entry
	}
	return out
}

// Total returns the accumulated usage across all subagents
func (t *Tracker) Total() llmtypes.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// LogDelegationUsage logs the usage of a completed delegation
func LogDelegationUsage(ctx context.Context, name string, u llmtypes.Usage, durationMs int64) {
	logger.G(ctx).WithFields(map[string]interface{}{
		"subagent":      name,
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"total_tokens":  u.TotalTokens(),
		"duration_ms":   durationMs,
	}).Debug("Delegation usage recorded")
}
