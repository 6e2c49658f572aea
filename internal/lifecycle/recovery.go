package lifecycle

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/model"
	"github.com/agentforge/agentforge/internal/status"
)

const recoveryCaptureLines = 5000

// recoverableSession is a parsed forge__{project}__{id} session name —
// the single source of truth for which tmux sessions are live agents
//.
type recoverableSession struct {
	Name    string
	Project string
	AgentID string
}

// parseAgentSession extracts (project, agent id) from a session name,
// returning ok=false for anything not matching the forge__ pattern.
func parseAgentSession(name string) (recoverableSession, bool) {
	const prefix = "forge__"
	if !strings.HasPrefix(name, prefix) {
		return recoverableSession{}, false
	}
	rest := strings.TrimPrefix(name, prefix)
	parts := strings.SplitN(rest, "__", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return recoverableSession{}, false
	}
	return recoverableSession{Name: name, Project: parts[0], AgentID: parts[1]}, true
}

// Recover runs on process startup: it enumerates every live forge__-prefixed
// tmux session, reattaches it to an in-memory Agent, merges any persisted
// snapshot, and seeds the Status Monitor's "previous pane" with the current
// pane so the first poll can never observe a spurious WORKING->IDLE
// transition. Sessions whose project is no longer
// configured are left running but untracked and logged as skipped.
func (m *Manager) Recover(ctx context.Context) int {
	var sessions []recoverableSession
	for _, s := range m.terminal.ListSessions(ctx) {
		if sess, ok := parseAgentSession(s.Name); ok {
			sessions = append(sessions, sess)
		}
	}
	recovered := 0

	for _, sess := range sessions {
		if m.agents.Exists(sess.AgentID) {
			continue
		}
		project, ok := m.registry.Project(sess.Project)
		if !ok {
			m.log.Warn("recovery: skipping session for unconfigured project",
				zap.String("session", sess.Name), zap.String("project", sess.Project))
			continue
		}

		agent := &model.Agent{
			ID:       sess.AgentID,
			Project:  sess.Project,
			Session:  sess.Name,
			Worktree: model.WorktreePath(project.Path, sess.AgentID),
		}

		if snap, ok, err := m.snaps.GetSnapshot(ctx, sess.AgentID); err == nil && ok {
			if snap.WorktreePath != "" {
				agent.Worktree = snap.WorktreePath
			}
			agent.Branch = snap.BranchName
			snap.MergeInto(agent)
		}
		agent.PipeLog = filepath.Join(agent.Worktree, ".agent_output.log")

		pane, ok := m.terminal.CapturePane(ctx, sess.Name, recoveryCaptureLines)
		if ok {
			agent.Status = status.DetectStatus(pane, pane)
			agent.LastOutput = pane
		} else {
			agent.Status = model.StatusIdle
		}

		m.agents.Put(agent)
		_ = m.snaps.AppendEventJSON(ctx, agent.ID, agent.Project, model.EventStatusChange, map[string]string{"reason": "recovered"})
		recovered++
	}

	m.log.Info("recovery sweep complete", zap.Int("recovered", recovered), zap.Int("sessions_seen", len(sessions)))
	return recovered
}
