package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	tooltypes "github.com/crewkit/crewkit/pkg/types/tools"
)

type fakeTool struct {
	name string
}

func (f *fakeTool) GenerateSchema() *jsonschema.Schema { return &jsonschema.Schema{} }
func (f *fakeTool) Name() string                       { return f.name }
func (f *fakeTool) Description() string                { return "fake tool for tests" }
func (f *fakeTool) ValidateInput(string) error         { return nil }
func (f *fakeTool) Execute(context.Context, string) tooltypes.ToolResult {
	return tooltypes.ToolResult{Result: "ok"}
}
func (f *fakeTool) TracingKVs(string) ([]attribute.KeyValue, error) { return nil, nil }

func newTestManager(t *testing.T, projectDir string) *Manager {
	t.Helper()
	d, err := NewDiscovery(WithProjectDir(projectDir))
	require.NoError(t, err)
	mgr, err := NewManager(WithDiscovery(d))
	require.NoError(t, err)
	return mgr
}

func TestManagerDiscoverIdempotent(t *testing.T) {
	projectDir := t.TempDir()
	writeSkill(t, projectDir, "greeter", `---
name: greeter
description: Greets people
---
Hello, $1!
`)

	mgr := newTestManager(t, projectDir)

	first, err := mgr.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, mgr.Has("greeter"))

	second, err := mgr.Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second, "second discovery finds nothing new")
}

func TestManagerDiscoverSkipsInvalid(t *testing.T) {
	projectDir := t.TempDir()
	// loads fine but fails descriptor validation: fork with no agent
	writeSkill(t, projectDir, "half-fork", `---
name: half-fork
description: Fork mode without a target
execution-mode: fork
---
Body.
`)

	mgr := newTestManager(t, projectDir)
	found, err := mgr.Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.False(t, mgr.Has("half-fork"))
}

func TestManagerRegisterGated(t *testing.T) {
	mgr := newTestManager(t, t.TempDir())

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, mgr.Register(testDescriptor("manual")))
		assert.True(t, mgr.Has("manual"))
	})

	t.Run("defaults applied", func(t *testing.T) {
		require.NoError(t, mgr.Register(Descriptor{
			Name:          "bare",
			Description:   "minimal descriptor",
			Scope:         ScopeProject,
			UserInvocable: true,
		}))
		inst, err := mgr.Get("bare")
		require.NoError(t, err)
		assert.Equal(t, ModeNormal, inst.Descriptor.Mode)
		assert.Equal(t, TrustTrusted, inst.Descriptor.Trust)
	})

	t.Run("invalid name", func(t *testing.T) {
		err := mgr.Register(Descriptor{Name: "Bad Name", Description: "x"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("untrusted fork rejected", func(t *testing.T) {
		desc := testDescriptor("sneaky-fork")
		desc.Trust = TrustUntrusted
		desc.Mode = ModeFork
		desc.Agent = "reviewer"
		err := mgr.Register(desc)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestManagerActivateNormal(t *testing.T) {
	projectDir := t.TempDir()
	writeSkill(t, projectDir, "greeter", `---
name: greeter
description: Greets people
---
Hello, $1! Raw: $ARGUMENTS
`)

	mgr := newTestManager(t, projectDir)
	_, err := mgr.Discover(context.Background())
	require.NoError(t, err)

	inst, err := mgr.Get("greeter")
	require.NoError(t, err)
	assert.False(t, inst.BodyLoaded(), "body stays unloaded until activation")

	out, err := mgr.Activate(context.Background(), "greeter", "world", SourceModel)
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, world!")
	assert.Contains(t, out, "Raw: world")

	assert.True(t, inst.BodyLoaded())
	assert.True(t, inst.Active())

	mgr.Deactivate("greeter")
	assert.False(t, inst.Active())

	// deactivating again, or a name that does not exist, is a no-op
	mgr.Deactivate("greeter")
	mgr.Deactivate("no-such-skill")
}

func TestManagerActivatePermissions(t *testing.T) {
	projectDir := t.TempDir()
	writeSkill(t, projectDir, "user-only", `---
name: user-only
description: Model may not trigger this
disable-model-invocation: true
---
Manual instructions.
`)

	mgr := newTestManager(t, projectDir)
	_, err := mgr.Discover(context.Background())
	require.NoError(t, err)

	_, err = mgr.Activate(context.Background(), "user-only", "", SourceModel)
	var ierr *InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, SourceModel, ierr.Source)

	out, err := mgr.Activate(context.Background(), "user-only", "", SourceUser)
	require.NoError(t, err)
	assert.Contains(t, out, "Manual instructions.")
}

func TestManagerActivateUnknown(t *testing.T) {
	mgr := newTestManager(t, t.TempDir())
	_, err := mgr.Activate(context.Background(), "ghost", "", SourceUser)
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestManagerActivateFork(t *testing.T) {
	projectDir := t.TempDir()
	writeSkill(t, projectDir, "delegating", `---
name: delegating
description: Hands work to a subagent
execution-mode: fork
agent: worker
---
Do the task: $ARGUMENTS
`)

	mgr := newTestManager(t, projectDir)
	_, err := mgr.Discover(context.Background())
	require.NoError(t, err)

	t.Run("no activator wired", func(t *testing.T) {
		_, err := mgr.Activate(context.Background(), "delegating", "x", SourceUser)
		var ierr *InvocationError
		require.ErrorAs(t, err, &ierr)
	})

	t.Run("routed through activator", func(t *testing.T) {
		var gotArgs Arguments
		var gotSource InvocationSource
		var activeDuringFork bool
		mgr.SetForkActivator(func(_ context.Context, inst *Instance, args Arguments, source InvocationSource) (string, error) {
			gotArgs = args
			gotSource = source
			activeDuringFork = inst.Active()
			return "fork result", nil
		})

		out, err := mgr.Activate(context.Background(), "delegating", "build it", SourceUser)
		require.NoError(t, err)
		assert.Equal(t, "fork result", out)
		assert.Equal(t, "build it", gotArgs.Raw)
		assert.Equal(t, SourceUser, gotSource)
		assert.True(t, activeDuringFork)

		inst, err := mgr.Get("delegating")
		require.NoError(t, err)
		assert.False(t, inst.Active(), "fork skill deactivates when delegation returns")
	})
}

func TestManagerReferences(t *testing.T) {
	projectDir := t.TempDir()
	writeSkill(t, projectDir, "documented", `---
name: documented
description: Ships reference files
---
See references for details.
`)
	skillDir := filepath.Join(projectDir, "documented")
	require.NoError(t, os.MkdirAll(filepath.Join(skillDir, "references"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "references", "guide.md"), []byte("deep dive"), 0o644))

	mgr := newTestManager(t, projectDir)
	_, err := mgr.Discover(context.Background())
	require.NoError(t, err)

	refs, err := mgr.GetReferences("documented")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("references", "guide.md")}, refs)

	content, err := mgr.LoadReference("documented", filepath.Join("references", "guide.md"))
	require.NoError(t, err)
	assert.Equal(t, "deep dive", content)

	t.Run("traversal rejected", func(t *testing.T) {
		_, err := mgr.LoadReference("documented", "../outside.md")
		require.Error(t, err)
	})

	t.Run("absolute rejected", func(t *testing.T) {
		_, err := mgr.LoadReference("documented", "/etc/passwd")
		require.Error(t, err)
	})
}

func TestManagerToolsFromActiveSkills(t *testing.T) {
	projectDir := t.TempDir()
	writeSkill(t, projectDir, "tooled", `---
name: tooled
description: Registers a runtime tool
---
Body.
`)

	mgr := newTestManager(t, projectDir)
	_, err := mgr.Discover(context.Background())
	require.NoError(t, err)

	inst, err := mgr.Get("tooled")
	require.NoError(t, err)
	inst.AddTool(&fakeTool{name: "skill_helper"})

	assert.Empty(t, mgr.GetAllTools(), "inactive skills contribute no tools")

	_, err = mgr.Activate(context.Background(), "tooled", "", SourceUser)
	require.NoError(t, err)

	all := mgr.GetAllTools()
	require.Len(t, all, 1)
	assert.Equal(t, "skill_helper", all[0].Name())

	tools, err := mgr.GetTools("tooled")
	require.NoError(t, err)
	assert.Len(t, tools, 1)
}
