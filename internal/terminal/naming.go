package terminal

import (
	"context"
	"strings"
)

const sessionPrefix = "forge__"

// ParseSessionName extracts (project, id) from a session name matching
// forge__{project}__{id}. ok is false for any session not matching this pattern.
func ParseSessionName(name string) (project, id string, ok bool) {
	if !strings.HasPrefix(name, sessionPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(name, sessionPrefix)
	idx := strings.LastIndex(rest, "__")
	if idx < 0 {
		return "", "", false
	}
	project, id = rest[:idx], rest[idx+2:]
	if project == "" || id == "" {
		return "", "", false
	}
	return project, id, true
}

// AgentSession is a live tmux session matching the forge__ naming
// convention, with its parsed (project, id) pair alongside the raw
// SessionInfo.
type AgentSession struct {
	SessionInfo
	Project string
	AgentID string
}

// ListAgentSessions returns every live tmux session recognized as an agent
// session.
func (d *Driver) ListAgentSessions(ctx context.Context) []AgentSession {
	var out []AgentSession
	for _, s := range d.ListSessions(ctx) {
		project, id, ok := ParseSessionName(s.Name)
		if !ok {
			continue
		}
		out = append(out, AgentSession{SessionInfo: s, Project: project, AgentID: id})
	}
	return out
}
