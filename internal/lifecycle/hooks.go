package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// hookCommand shells out to curl to POST the hook event to the local
// server as a single inline shell command, so the hook needs no helper
// script installed alongside the tool.
func hookCommand(hookURL, agentID, event string) string {
	payload := fmt.Sprintf(`{"agent_id":"%s","hook_event":"%s"}`, agentID, event)
	return fmt.Sprintf(
		"curl -s -m 5 -X POST -H 'Content-Type: application/json' -d '%s' %s >/dev/null 2>&1 || true",
		payload, hookURL+"/api/hooks/event")
}

type hookEntry struct {
	Matcher string       `json:"matcher"`
	Hooks   []hookAction `json:"hooks"`
}

type hookAction struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

type hooksConfig struct {
	Hooks map[string][]hookEntry `json:"hooks"`
}

// installHooks writes .claude/settings.local.json in the worktree so the
// coding tool POSTs SubagentStart/SubagentStop events to the local hook
// endpoint.
func installHooks(worktreeDir, hookURL, agentID string) error {
	cfg := hooksConfig{
		Hooks: map[string][]hookEntry{
			"SubagentStart": {{Matcher: "", Hooks: []hookAction{{Type: "command", Command: hookCommand(hookURL, agentID, "SubagentStart")}}}},
			"SubagentStop":  {{Matcher: "", Hooks: []hookAction{{Type: "command", Command: hookCommand(hookURL, agentID, "SubagentStop")}}}},
		},
	}

	claudeDir := filepath.Join(worktreeDir, ".claude")
	if err := os.MkdirAll(claudeDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(claudeDir, "settings.local.json"), data, 0o644)
}
