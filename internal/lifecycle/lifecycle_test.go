package lifecycle

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/model"
)

func TestNewAgentID_SixLowercaseHexChars(t *testing.T) {
	hexID := regexp.MustCompile(`^[0-9a-f]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := newAgentID()
		assert.Regexp(t, hexID, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestParseAgentSession(t *testing.T) {
	s, ok := parseAgentSession("forge__alpha__a1b2c3")
	require.True(t, ok)
	assert.Equal(t, "alpha", s.Project)
	assert.Equal(t, "a1b2c3", s.AgentID)

	for _, name := range []string{"main", "forge__alpha", "forge____", "notforge__a__b"} {
		_, ok := parseAgentSession(name)
		assert.False(t, ok, "name: %q", name)
	}
}

func TestComposeInstructions_LayersInOrder(t *testing.T) {
	projectDir := t.TempDir()
	worktreeDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "ARCHITECTURE.md"), []byte("modules live in internal/"), 0o644))

	project := model.Project{
		Path:              projectDir,
		AgentInstructions: "project rules",
		ContextFiles:      []string{"ARCHITECTURE.md"},
	}
	profile := model.Profile{Instructions: "profile rules"}

	got, err := composeInstructions("global rules", project, profile, worktreeDir)
	require.NoError(t, err)
	assert.Equal(t, "global rules\n\nproject rules\n\nprofile rules\n\n## ARCHITECTURE.md\n\nmodules live in internal/", got)
}

func TestComposeInstructions_PreservesExistingFile(t *testing.T) {
	worktreeDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(worktreeDir, "CLAUDE.md"), []byte("committed instructions"), 0o644))

	got, err := composeInstructions("global rules", model.Project{Path: t.TempDir()}, model.Profile{}, worktreeDir)
	require.NoError(t, err)
	assert.Equal(t, "global rules\n\n---\n\ncommitted instructions", got)
}

func TestComposeInstructions_AllLayersEmptyWritesNothing(t *testing.T) {
	got, err := composeInstructions("", model.Project{Path: t.TempDir()}, model.Profile{}, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestComposeInstructions_MissingContextFileSkipped(t *testing.T) {
	project := model.Project{Path: t.TempDir(), ContextFiles: []string{"nope.md"}}
	got, err := composeInstructions("global", project, model.Profile{}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "global", got)
}

func TestComposeLaunchCommand_PlainCommand(t *testing.T) {
	assert.Equal(t, "claude", composeLaunchCommand("claude", nil, ""))
}

func TestComposeLaunchCommand_AppendsSystemPrompt(t *testing.T) {
	got := composeLaunchCommand("claude", nil, "you're a reviewer")
	assert.Equal(t, `claude --append-system-prompt 'you'\''re a reviewer'`, got)
}

func TestComposeLaunchCommand_ExportsEnvSorted(t *testing.T) {
	got := composeLaunchCommand("claude", map[string]string{"B_VAR": "2", "A_VAR": "1"}, "")
	assert.Equal(t, "export A_VAR='1' && export B_VAR='2' && claude", got)
}

func TestCopyEnvFiles_OnlyDotEnvPrefixed(t *testing.T) {
	projectDir := t.TempDir()
	worktreeDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".env"), []byte("A=1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".env.local"), []byte("B=2"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "README.md"), []byte("no"), 0o644))

	require.NoError(t, copyEnvFiles(projectDir, worktreeDir))

	data, err := os.ReadFile(filepath.Join(worktreeDir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "A=1", string(data))
	data, err = os.ReadFile(filepath.Join(worktreeDir, ".env.local"))
	require.NoError(t, err)
	assert.Equal(t, "B=2", string(data))
	_, err = os.Stat(filepath.Join(worktreeDir, "README.md"))
	assert.True(t, os.IsNotExist(err))
}
