package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverPriorityOrder(t *testing.T) {
	projectDir := t.TempDir()
	userDir := t.TempDir()
	customDir := t.TempDir()

	// the same name exists in all three tiers; project must win
	writeSkill(t, projectDir, "shared", `---
name: shared
description: project copy
---
Project body.
`)
	writeSkill(t, userDir, "shared", `---
name: shared
description: user copy
---
User body.
`)
	writeSkill(t, customDir, "shared", `---
name: shared
description: custom copy
---
Custom body.
`)
	writeSkill(t, userDir, "user-only", `---
name: user-only
description: only in the user tier
---
Body.
`)
	writeSkill(t, customDir, "custom-only", `---
name: custom-only
description: only in the custom tier
---
Body.
`)

	d, err := NewDiscovery(
		WithProjectDir(projectDir),
		WithUserDir(userDir),
		WithCustomDirs(customDir),
	)
	require.NoError(t, err)

	found, err := d.Discover(context.Background(), nil, NewValidator())
	require.NoError(t, err)
	require.Len(t, found, 3)

	byName := make(map[string]*Descriptor)
	for _, desc := range found {
		byName[desc.Name] = desc
	}

	assert.Equal(t, "project copy", byName["shared"].Description)
	assert.Equal(t, ScopeProject, byName["shared"].Scope)
	assert.Equal(t, TrustTrusted, byName["shared"].Trust)

	assert.Equal(t, ScopeUser, byName["user-only"].Scope)
	assert.Equal(t, TrustTrusted, byName["user-only"].Trust)

	assert.Equal(t, ScopeCustom, byName["custom-only"].Scope)
	assert.Equal(t, TrustUntrusted, byName["custom-only"].Trust)
}

func TestDiscoverSkipsRegistered(t *testing.T) {
	projectDir := t.TempDir()
	writeSkill(t, projectDir, "known", `---
name: known
description: already registered
---
Body.
`)

	d, err := NewDiscovery(WithProjectDir(projectDir))
	require.NoError(t, err)

	registered := func(name string) bool { return name == "known" }
	found, err := d.Discover(context.Background(), registered, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDiscoverAggregatesBrokenDefinitions(t *testing.T) {
	projectDir := t.TempDir()
	writeSkill(t, projectDir, "good", `---
name: good
description: loads fine
---
Body.
`)
	writeSkill(t, projectDir, "broken", `---
description: missing the name field
---
Body.
`)

	d, err := NewDiscovery(WithProjectDir(projectDir))
	require.NoError(t, err)

	found, err := d.Discover(context.Background(), nil, nil)
	require.Error(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "good", found[0].Name)
}

func TestDiscoverIgnoresNonSkillDirectories(t *testing.T) {
	projectDir := t.TempDir()
	// a directory without SKILL.md is not a skill
	notSkill := filepath.Join(projectDir, "not-a-skill")
	require.NoError(t, os.MkdirAll(notSkill, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(notSkill, "README.md"), []byte("hello"), 0o644))

	d, err := NewDiscovery(WithProjectDir(projectDir))
	require.NoError(t, err)

	found, err := d.Discover(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}
