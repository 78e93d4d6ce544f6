// Package integration bridges fork-mode skill activation to subagent
// delegation. The bridge is stateless: it holds no reference to either
// facade and receives everything it needs per activation, which keeps
// the two managers free of any mutual dependency.
package integration

import (
	"context"
	"fmt"
	"strings"

	"github.com/crewkit/crewkit/pkg/logger"
	"github.com/crewkit/crewkit/pkg/skills"
	"github.com/crewkit/crewkit/pkg/subagents"
)

// SkillLookup resolves a skill name to its descriptor, or reports that
// no such skill exists. The skill manager's Get backs this in practice.
type SkillLookup func(name string) (*skills.Descriptor, bool)

// ActivateWithFork performs a fork-mode activation: trust gate, circular
// reference detection, task assembly, then delegation to the skill's
// target subagent. The delegation outcome becomes the skill's activation
// result. Both gates run before any model call, and a denial carries the
// source the activation came from.
func ActivateWithFork(ctx context.Context, mgr *subagents.Manager, inst *skills.Instance, args skills.Arguments, source skills.InvocationSource, getSkill SkillLookup) (*subagents.DelegationOutcome, error) {
	desc := &inst.Descriptor

	if desc.Trust != skills.TrustTrusted {
		return nil, &skills.InvocationError{
			Name:   desc.Name,
			Source: source,
			Reason: "untrusted skills may not use fork execution",
		}
	}
	if desc.Agent == "" {
		return nil, &skills.InvocationError{
			Name:   desc.Name,
			Source: source,
			Reason: "fork execution requires a target agent",
		}
	}

	if cycle := findCycle(desc.Name, desc.Agent, mgr, getSkill); cycle != nil {
		return nil, &skills.InvocationError{
			Name:   desc.Name,
			Source: source,
			Reason: fmt.Sprintf("circular reference: %s", strings.Join(cycle, " -> ")),
		}
	}

	body, err := inst.Body()
	if err != nil {
		return nil, err
	}
	task := skills.Substitute(body, args)

	logger.G(ctx).WithFields(map[string]interface{}{
		"skill":    desc.Name,
		"subagent": desc.Agent,
	}).Debug("Forking skill activation to subagent")

	return mgr.Delegate(ctx, desc.Agent, task)
}

// ActivateWithForkSync drives one dedicated context to completion. It is
// safe only for call sites that are not already inside a concurrent
// execution flow; such callers should use ActivateWithFork directly
// with their own context instead of nesting.
func ActivateWithForkSync(mgr *subagents.Manager, inst *skills.Instance, args skills.Arguments, source skills.InvocationSource, getSkill SkillLookup) (*subagents.DelegationOutcome, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	return ActivateWithFork(ctx, mgr, inst, args, source, getSkill)
}

// findCycle walks the reference chain skill -> subagent -> pre-loaded
// skills -> ... and returns the offending chain if it ever reaches a
// skill or subagent already on the current path. A nil return means the
// chain is acyclic. Nodes reachable through several sibling branches
// (diamonds) are not cycles: only the on-path sets decide, the done set
// merely skips re-walking subtrees already proven acyclic.
func findCycle(rootSkill, rootAgent string, mgr *subagents.Manager, getSkill SkillLookup) []string {
	onPathSkills := map[string]bool{rootSkill: true}
	onPathAgents := map[string]bool{}
	doneAgents := map[string]bool{}

	var walkAgent func(agent string, chain []string) []string
	walkAgent = func(agent string, chain []string) []string {
		chain = append(chain, fmt.Sprintf("agent:%s", agent))
		if onPathAgents[agent] {
			return chain
		}
		if doneAgents[agent] {
			return nil
		}
		onPathAgents[agent] = true
		defer delete(onPathAgents, agent)

		agentDesc, err := mgr.Get(agent)
		if err != nil {
			// an unregistered agent cannot close a cycle; delegation
			// will surface the missing name on its own
			doneAgents[agent] = true
			return nil
		}

		for _, preloaded := range agentDesc.Skills {
			next := append(chain, fmt.Sprintf("skill:%s", preloaded))
			if onPathSkills[preloaded] {
				return next
			}

			skillDesc, ok := getSkill(preloaded)
			if !ok || skillDesc.Mode != skills.ModeFork || skillDesc.Agent == "" {
				continue
			}

			onPathSkills[preloaded] = true
			found := walkAgent(skillDesc.Agent, next)
			delete(onPathSkills, preloaded)
			if found != nil {
				return found
			}
		}
		doneAgents[agent] = true
		return nil
	}

	return walkAgent(rootAgent, []string{fmt.Sprintf("skill:%s", rootSkill)})
}
