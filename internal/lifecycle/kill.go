package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/model"
)

// Kill disables the pipe, deletes the pipe-log (best-effort), kills the
// terminal session, removes the worktree --force, deletes the branch,
// removes the agent from the store, and emits a killed event. Every
// cleanup step is best-effort and logged; the agent is still removed from
// the store even if some steps fail.
func (m *Manager) Kill(ctx context.Context, agentID string) error {
	agent := m.agents.Get(agentID)
	if agent == nil {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}

	if cancel := m.popCancel(agentID); cancel != nil {
		cancel()
	}

	project, ok := m.registry.Project(agent.Project)

	m.terminal.DisablePipe(ctx, agent.Session)
	if err := removeFile(agent.PipeLog); err != nil {
		m.log.Warn("kill: failed to remove pipe log", zap.String("agent_id", agentID), zap.Error(err))
	}
	if !m.terminal.KillSession(ctx, agent.Session) {
		m.log.Warn("kill: failed to kill terminal session", zap.String("agent_id", agentID))
	}

	if ok {
		if err := m.worktree.RemoveWorktree(ctx, project.Path, agent.Worktree, true); err != nil {
			m.log.Warn("kill: failed to remove worktree", zap.String("agent_id", agentID), zap.Error(err))
		}
		if err := m.worktree.DeleteBranch(ctx, project.Path, agent.Branch); err != nil {
			m.log.Warn("kill: failed to delete branch", zap.String("agent_id", agentID), zap.Error(err))
		}
	}

	m.agents.Remove(agentID)
	_ = m.snaps.DeleteSnapshot(ctx, agentID)
	_ = m.snaps.AppendEventJSON(ctx, agentID, agent.Project, model.EventKilled, nil)

	m.log.Info("killed agent", zap.String("agent_id", agentID))
	return nil
}
