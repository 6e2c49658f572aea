package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/model"
	"github.com/agentforge/agentforge/internal/worktree"
)

// SpawnRequest is the input to Spawn.
type SpawnRequest struct {
	Project string
	Task    string
	Prefix  string // default "agent"
	Profile string // optional
}

// Spawn creates a new agent: worktree, prepared files, tmux session,
// store entry, then the asynchronous start sequence.
func (m *Manager) Spawn(ctx context.Context, req SpawnRequest) (*model.Agent, error) {
	project, ok := m.registry.Project(req.Project)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, req.Project)
	}

	maxAgents := project.EffectiveMaxAgents(m.registry.Defaults().MaxAgentsPerProject)
	if m.agents.CountActive(req.Project) >= maxAgents {
		return nil, ErrAgentLimitReached
	}

	var profile model.Profile
	if req.Profile != "" {
		p, ok := m.registry.Profile(req.Profile)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, req.Profile)
		}
		profile = p
	}

	prefix := req.Prefix
	if prefix == "" {
		prefix = "agent"
	}

	id := newAgentID()
	slug := worktree.SanitizeSlug(req.Task)
	branch := model.BranchName(prefix, id, slug)
	session := model.SessionName(req.Project, id)
	worktreePath := model.WorktreePath(project.Path, id)

	if err := m.worktree.CreateWorktree(ctx, project.Path, branch, project.DefaultBranch, worktreePath); err != nil {
		return nil, fmt.Errorf("create worktree: %w", err)
	}

	if err := m.prepareWorktree(ctx, project, profile, worktreePath, id); err != nil {
		m.rollbackWorktree(ctx, project, branch, worktreePath)
		return nil, err
	}

	claudeCmd := composeLaunchCommand(m.registry.Defaults().ClaudeCommand, m.registry.Defaults().ClaudeEnv, profile.SystemPrompt)
	launchCmd := fmt.Sprintf("cd %s && %s", shellEscape(worktreePath), claudeCmd)

	if !m.terminal.CreateSession(ctx, session, worktreePath, launchCmd) {
		m.rollbackWorktree(ctx, project, branch, worktreePath)
		return nil, fmt.Errorf("create terminal session: %s", session)
	}

	pipeLog := filepath.Join(worktreePath, ".agent_output.log")
	m.terminal.EnablePipe(ctx, session, pipeLog)

	now := time.Now()
	agent := &model.Agent{
		ID:              id,
		Project:         req.Project,
		Branch:          branch,
		Worktree:        worktreePath,
		Session:         session,
		PipeLog:         pipeLog,
		Profile:         req.Profile,
		Status:          model.StatusStarting,
		CreatedAt:       now,
		LastActivity:    now,
		TaskDescription: req.Task,
	}
	m.agents.Put(agent)
	_ = m.snaps.AppendEventJSON(ctx, id, req.Project, model.EventSpawned, map[string]string{"branch": branch, "task": req.Task})
	_ = m.snaps.UpsertSnapshot(ctx, agent.ToSnapshot())

	m.runStartSequenceAsync(agent.ID, agent.Session, req.Task, profile)

	m.log.Info("spawned agent", zap.String("agent_id", id), zap.String("project", req.Project), zap.String("branch", branch))

	return agent.Clone(), nil
}

// prepareWorktree sets up everything the tool expects inside a fresh
// worktree: .media/ dir, copied .env* files, installed hooks, composed
// instructions.
func (m *Manager) prepareWorktree(ctx context.Context, project model.Project, profile model.Profile, worktreePath, agentID string) error {
	if err := os.MkdirAll(filepath.Join(worktreePath, ".media"), 0o755); err != nil {
		return fmt.Errorf("create .media: %w", err)
	}
	if err := copyEnvFiles(project.Path, worktreePath); err != nil {
		m.log.Warn("failed to copy .env files", zap.Error(err))
	}
	if err := installHooks(worktreePath, m.hookURL, agentID); err != nil {
		return fmt.Errorf("install hooks: %w", err)
	}

	instructions, err := composeInstructions(m.registry.Defaults().AgentInstructions, project, profile, worktreePath)
	if err != nil {
		return fmt.Errorf("compose instructions: %w", err)
	}
	if err := writeInstructions(worktreePath, instructions); err != nil {
		return fmt.Errorf("write instructions: %w", err)
	}
	return nil
}

// rollbackWorktree undoes a partially-completed spawn.
func (m *Manager) rollbackWorktree(ctx context.Context, project model.Project, branch, worktreePath string) {
	if err := m.worktree.RemoveWorktree(ctx, project.Path, worktreePath, true); err != nil {
		m.log.Warn("rollback: failed to remove worktree", zap.Error(err))
	}
	if err := m.worktree.DeleteBranch(ctx, project.Path, branch); err != nil {
		m.log.Warn("rollback: failed to delete branch", zap.Error(err))
	}
}

// SpawnComparisonRequest is the input to SpawnComparison.
type SpawnComparisonRequest struct {
	Project  string
	Task     string
	Profiles []string
	Count    int // 0 means len(Profiles)
}

// SpawnComparison spawns Count agents cycling through Profiles with the
// constant branch prefix "compare". Bounded by the same max cap; on
// failure, already-spawned agents are left in place and the caller
// observes the returned prefix of successful spawns.
func (m *Manager) SpawnComparison(ctx context.Context, req SpawnComparisonRequest) ([]*model.Agent, error) {
	count := req.Count
	if count <= 0 {
		count = len(req.Profiles)
	}
	if len(req.Profiles) == 0 {
		return nil, fmt.Errorf("spawn comparison: no profiles given")
	}

	var spawned []*model.Agent
	for i := 0; i < count; i++ {
		profile := req.Profiles[i%len(req.Profiles)]
		agent, err := m.Spawn(ctx, SpawnRequest{
			Project: req.Project,
			Task:    req.Task,
			Prefix:  "compare",
			Profile: profile,
		})
		if err != nil {
			return spawned, fmt.Errorf("spawn comparison: agent %d: %w", i, err)
		}
		spawned = append(spawned, agent)
	}
	return spawned, nil
}
