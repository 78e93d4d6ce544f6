package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewkit/crewkit/pkg/skills"
	"github.com/crewkit/crewkit/pkg/subagents"
	llmtypes "github.com/crewkit/crewkit/pkg/types/llm"
	tooltypes "github.com/crewkit/crewkit/pkg/types/tools"
	"github.com/crewkit/crewkit/pkg/usage"
)

type fakeThread struct {
	reply string
	usage llmtypes.Usage

	lastMessage string
}

func (f *fakeThread) SendMessage(_ context.Context, message string, _ llmtypes.MessageOpt) (string, error) {
	f.lastMessage = message
	return f.reply, nil
}

func (f *fakeThread) Usage() llmtypes.Usage      { return f.usage }
func (f *fakeThread) GetConfig() llmtypes.Config { return llmtypes.Config{} }

type fakeHost struct {
	thread  *fakeThread
	spawned atomic.Int32
}

func (h *fakeHost) Name() string     { return "host" }
func (h *fakeHost) Model() string    { return "host-model" }
func (h *fakeHost) IsSubagent() bool { return false }
func (h *fakeHost) Tool(string) (tooltypes.Tool, bool) {
	return nil, false
}
func (h *fakeHost) Tools() []tooltypes.Tool { return nil }
func (h *fakeHost) SkillBody(name string) (string, error) {
	return "skill body for " + name, nil
}
func (h *fakeHost) NewThread(context.Context, llmtypes.Config, string, []tooltypes.Tool) (llmtypes.Thread, error) {
	h.spawned.Add(1)
	return h.thread, nil
}

func newForkFixture(t *testing.T) (*fakeHost, *subagents.Manager) {
	t.Helper()
	host := &fakeHost{thread: &fakeThread{reply: "fork output"}}
	mgr, err := subagents.NewManager(host, usage.NewTracker(), subagents.WithProjectDir(t.TempDir()))
	require.NoError(t, err)
	return host, mgr
}

// forkInstance builds a fork-mode skill instance whose body is backed by
// a real file so lazy loading works
func forkInstance(t *testing.T, name, agent, body string) *skills.Instance {
	t.Helper()
	path := filepath.Join(t.TempDir(), skills.SkillFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return skills.NewInstance(skills.Descriptor{
		Name:          name,
		Description:   "fork skill",
		Path:          path,
		Scope:         skills.ScopeProject,
		Trust:         skills.TrustTrusted,
		Mode:          skills.ModeFork,
		Agent:         agent,
		UserInvocable: true,
	})
}

func noSkills(string) (*skills.Descriptor, bool) { return nil, false }

func TestActivateWithFork(t *testing.T) {
	host, mgr := newForkFixture(t)
	require.NoError(t, mgr.Register(&subagents.Descriptor{
		Name:   "reviewer",
		Prompt: "You review.",
	}))

	inst := forkInstance(t, "review-pr", "reviewer", "Review branch $1 carefully.")
	args := skills.ParseArguments("release-42")

	outcome, err := ActivateWithFork(context.Background(), mgr, inst, args, skills.SourceModel, noSkills)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "fork output", outcome.Output)
	assert.Equal(t, "reviewer", outcome.Subagent)

	// the substituted body becomes the delegated task
	assert.Equal(t, "Review branch release-42 carefully.", host.thread.lastMessage)
}

func TestActivateWithForkUntrusted(t *testing.T) {
	host, mgr := newForkFixture(t)

	inst := forkInstance(t, "sneaky", "reviewer", "body")
	inst.Descriptor.Trust = skills.TrustUntrusted

	_, err := ActivateWithFork(context.Background(), mgr, inst, skills.Arguments{}, skills.SourceUser, noSkills)
	var ierr *skills.InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Reason, "untrusted")
	assert.Equal(t, skills.SourceUser, ierr.Source, "denial carries the originating source")
	assert.Equal(t, int32(0), host.spawned.Load(), "gate fires before any spawn")
}

func TestActivateWithForkMissingAgent(t *testing.T) {
	_, mgr := newForkFixture(t)

	inst := forkInstance(t, "aimless", "", "body")
	_, err := ActivateWithFork(context.Background(), mgr, inst, skills.Arguments{}, skills.SourceModel, noSkills)
	var ierr *skills.InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Reason, "target agent")
	assert.Equal(t, skills.SourceModel, ierr.Source)
}

func TestActivateWithForkCircularReference(t *testing.T) {
	host, mgr := newForkFixture(t)

	// review-pr forks to reviewer, which pre-loads review-pr again
	require.NoError(t, mgr.Register(&subagents.Descriptor{
		Name:   "reviewer",
		Prompt: "You review.",
		Skills: []string{"review-pr"},
	}))

	inst := forkInstance(t, "review-pr", "reviewer", "body")
	lookup := func(name string) (*skills.Descriptor, bool) {
		if name == "review-pr" {
			return &inst.Descriptor, true
		}
		return nil, false
	}

	_, err := ActivateWithFork(context.Background(), mgr, inst, skills.Arguments{}, skills.SourceModel, lookup)
	var ierr *skills.InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Reason, "circular reference")
	assert.Contains(t, ierr.Reason, "skill:review-pr -> agent:reviewer -> skill:review-pr")
	assert.Equal(t, int32(0), host.spawned.Load(), "cycle detection fires before any model call")
}

func TestActivateWithForkIndirectCycle(t *testing.T) {
	host, mgr := newForkFixture(t)

	// a -> agent-x preloads b; b -> agent-y preloads a
	require.NoError(t, mgr.Register(&subagents.Descriptor{
		Name: "agent-x", Prompt: "x", Skills: []string{"skill-b"},
	}))
	require.NoError(t, mgr.Register(&subagents.Descriptor{
		Name: "agent-y", Prompt: "y", Skills: []string{"skill-a"},
	}))

	instA := forkInstance(t, "skill-a", "agent-x", "body a")
	instB := forkInstance(t, "skill-b", "agent-y", "body b")
	lookup := func(name string) (*skills.Descriptor, bool) {
		switch name {
		case "skill-a":
			return &instA.Descriptor, true
		case "skill-b":
			return &instB.Descriptor, true
		}
		return nil, false
	}

	_, err := ActivateWithFork(context.Background(), mgr, instA, skills.Arguments{}, skills.SourceModel, lookup)
	var ierr *skills.InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Reason, "circular reference")
	assert.Equal(t, int32(0), host.spawned.Load())
}

func TestActivateWithForkNonForkPreloadIsFine(t *testing.T) {
	_, mgr := newForkFixture(t)

	// the preloaded skill is normal-mode, so no cycle is possible
	require.NoError(t, mgr.Register(&subagents.Descriptor{
		Name:   "reviewer",
		Prompt: "You review.",
		Skills: []string{"style-guide"},
	}))

	inst := forkInstance(t, "review-pr", "reviewer", "body")
	styleGuide := skills.Descriptor{
		Name: "style-guide", Mode: skills.ModeNormal, Trust: skills.TrustTrusted,
	}
	lookup := func(name string) (*skills.Descriptor, bool) {
		if name == "style-guide" {
			return &styleGuide, true
		}
		return nil, false
	}

	outcome, err := ActivateWithFork(context.Background(), mgr, inst, skills.Arguments{}, skills.SourceModel, lookup)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}

func TestActivateWithForkDiamondIsAcyclic(t *testing.T) {
	_, mgr := newForkFixture(t)

	// root forks to agent-x; agent-x preloads skill-a and skill-b, which
	// both fork to agent-y; agent-y preloads nothing. agent-y is reached
	// twice through sibling branches but nothing points back up, so the
	// chain is acyclic and the activation must go through.
	require.NoError(t, mgr.Register(&subagents.Descriptor{
		Name: "agent-x", Prompt: "x", Skills: []string{"skill-a", "skill-b"},
	}))
	require.NoError(t, mgr.Register(&subagents.Descriptor{
		Name: "agent-y", Prompt: "y",
	}))

	root := forkInstance(t, "root", "agent-x", "body")
	instA := forkInstance(t, "skill-a", "agent-y", "body a")
	instB := forkInstance(t, "skill-b", "agent-y", "body b")
	lookup := func(name string) (*skills.Descriptor, bool) {
		switch name {
		case "skill-a":
			return &instA.Descriptor, true
		case "skill-b":
			return &instB.Descriptor, true
		}
		return nil, false
	}

	outcome, err := ActivateWithFork(context.Background(), mgr, root, skills.Arguments{}, skills.SourceModel, lookup)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}

func TestActivateWithForkSync(t *testing.T) {
	_, mgr := newForkFixture(t)
	require.NoError(t, mgr.Register(&subagents.Descriptor{
		Name:   "reviewer",
		Prompt: "You review.",
	}))

	inst := forkInstance(t, "review-pr", "reviewer", "body")
	outcome, err := ActivateWithForkSync(mgr, inst, skills.Arguments{}, skills.SourceUser, noSkills)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}
