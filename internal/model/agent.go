// Package model holds the shared data types of the Agent Supervision &
// Routing Engine: agents, projects, profiles, channel bindings, connectors,
// messages, snapshots and events. None of these types own behavior beyond
// small helpers — they are passed between the lifecycle manager, status
// monitor, router and stores.
package model

import "time"

// Status is the lifecycle state of an Agent, inferred by the Status Monitor.
type Status string

const (
	StatusStarting     Status = "STARTING"
	StatusWorking      Status = "WORKING"
	StatusWaitingInput Status = "WAITING_INPUT"
	StatusIdle         Status = "IDLE"
	StatusStopped      Status = "STOPPED"
	StatusError        Status = "ERROR"
)

// Agent is one long-running coding session owned by the supervisor.
type Agent struct {
	ID       string
	Project  string
	Branch   string
	Worktree string
	Session  string
	PipeLog  string
	Profile  string

	Status Status

	CreatedAt    time.Time
	LastActivity time.Time

	TaskDescription string
	SubAgentCount   int

	NeedsAttention bool
	Parked         bool

	LastOutput      string
	LastResponse    string
	LastUserMessage string
	LastRelayOffset int64
}

// SessionName builds the terminal session name that is the single source of
// truth for recovery: forge__{project}__{id}.
func SessionName(project, id string) string {
	return "forge__" + project + "__" + id
}

// BranchName builds a branch of the form {prefix}/{id}/{slug}.
func BranchName(prefix, id, slug string) string {
	if slug == "" {
		slug = "task"
	}
	return prefix + "/" + id + "/" + slug
}

// WorktreePath is the on-disk location of an agent's worktree.
func WorktreePath(projectPath, id string) string {
	return projectPath + "/.worktrees/" + id
}

// IsLive reports whether the agent is anything other than STOPPED — i.e.
// whether it still counts against a project's max_agents cap.
func (a *Agent) IsLive() bool {
	return a.Status != StatusStopped
}

// Clone returns a deep-enough copy of the agent for safe concurrent reads
// (no pointer fields need deep copying; all fields are value types).
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}
