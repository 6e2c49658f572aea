package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  host: 127.0.0.1
  port: 9000
defaults:
  max_agents_per_project: 2
  claude_command: claude --dangerously-skip-permissions
  agent_instructions: "Be concise."
connectors:
  tg:
    type: telegram
    enabled: true
    credentials:
      bot_token: "123:abc"
profiles:
  reviewer:
    description: Reviews code
    system_prompt: "You review diffs."
    start_sequence:
      - action: wait
        value: "5"
      - action: send
        value: "{task}"
projects:
  alpha:
    path: /repos/alpha
    default_branch: main
    max_agents: 3
    channels:
      - connector_id: tg
        channel_id: "100"
        inbound: true
        outbound: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadWithPath_ParsesFullDocument(t *testing.T) {
	cfg, err := LoadWithPath(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Defaults.MaxAgentsPerProject)
	assert.Equal(t, "Be concise.", cfg.Defaults.AgentInstructions)

	tg, ok := cfg.Connectors["tg"]
	require.True(t, ok)
	assert.True(t, tg.Enabled)
	assert.Equal(t, "123:abc", tg.Credentials["bot_token"])

	prof, ok := cfg.Profile("reviewer")
	require.True(t, ok)
	require.Len(t, prof.StartSequence, 2)
	assert.Equal(t, "wait", prof.StartSequence[0].Action)
	assert.Equal(t, "5", prof.StartSequence[0].Value)

	proj, ok := cfg.Project("alpha")
	require.True(t, ok)
	assert.Equal(t, "/repos/alpha", proj.Path)
	assert.Equal(t, 3, proj.MaxAgents)
	require.Len(t, proj.Channels, 1)
	assert.Equal(t, "tg", proj.Channels[0].ConnectorID)
	assert.Equal(t, "100", proj.Channels[0].ChannelID)
	assert.True(t, proj.Channels[0].Inbound)
	assert.True(t, proj.Channels[0].Outbound)
}

func TestLoadWithPath_AppliesDefaults(t *testing.T) {
	cfg, err := LoadWithPath(writeConfig(t, "projects: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8420, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Defaults.MaxAgentsPerProject)
	assert.Equal(t, "claude", cfg.Defaults.ClaudeCommand)
	assert.Equal(t, 5.0, cfg.Defaults.PollIntervalSeconds)
	assert.Equal(t, 10.0, cfg.Defaults.Summary.TimeoutSeconds)
	assert.Equal(t, 15.0, cfg.Defaults.ResponseRelay.TimeoutSeconds)
	assert.True(t, cfg.Defaults.Metrics.Enabled)
}

func TestLoadWithPath_RejectsInvalidPort(t *testing.T) {
	_, err := LoadWithPath(writeConfig(t, "server:\n  port: 99999\n"))
	assert.Error(t, err)
}

func TestReload_PicksUpChanges(t *testing.T) {
	dir := writeConfig(t, sampleYAML)
	cfg, err := LoadWithPath(dir)
	require.NoError(t, err)

	updated := sampleYAML + `
  beta:
    path: /repos/beta
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(updated), 0o644))

	fresh, err := cfg.Reload()
	require.NoError(t, err)
	_, ok := fresh.Project("beta")
	assert.True(t, ok)
	_, ok = cfg.Project("beta")
	assert.False(t, ok, "original document must be unchanged")
}
