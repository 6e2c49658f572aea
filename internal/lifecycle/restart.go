package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/model"
)

// Restart captures {project, task, profile} from the existing agent, kills
// it, spawns a new one with the same inputs, and emits agent_restarted
// carrying the previous id.
func (m *Manager) Restart(ctx context.Context, agentID string) (*model.Agent, error) {
	agent := m.agents.Get(agentID)
	if agent == nil {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}

	prefix := "agent"
	if parts := strings.SplitN(agent.Branch, "/", 2); len(parts) == 2 {
		prefix = parts[0]
	}

	if err := m.Kill(ctx, agentID); err != nil {
		return nil, fmt.Errorf("restart: kill: %w", err)
	}

	newAgent, err := m.Spawn(ctx, SpawnRequest{
		Project: agent.Project,
		Task:    agent.TaskDescription,
		Prefix:  prefix,
		Profile: agent.Profile,
	})
	if err != nil {
		return nil, fmt.Errorf("restart: spawn: %w", err)
	}

	_ = m.snaps.AppendEventJSON(ctx, newAgent.ID, newAgent.Project, model.EventAgentRestarted, map[string]string{"previous_id": agentID})
	m.log.Info("restarted agent", zap.String("previous_id", agentID), zap.String("new_id", newAgent.ID))

	return newAgent, nil
}
