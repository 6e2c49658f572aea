package model

import "time"

// AgentSnapshot is the persisted form of an Agent, sufficient to reconstruct
// the in-memory view at startup.
type AgentSnapshot struct {
	AgentID         string
	Project         string
	SessionName     string
	WorktreePath    string
	BranchName      string
	Status          Status
	TaskDescription string
	CreatedAt       time.Time
	LastActivity    time.Time
	LastOutput      string
	NeedsAttention  bool
	Parked          bool
	LastResponse    string
	LastUserMessage string
	Profile         string
}

// ToSnapshot converts a live Agent into its persisted form.
func (a *Agent) ToSnapshot() AgentSnapshot {
	return AgentSnapshot{
		AgentID:         a.ID,
		Project:         a.Project,
		SessionName:     a.Session,
		WorktreePath:    a.Worktree,
		BranchName:      a.Branch,
		Status:          a.Status,
		TaskDescription: a.TaskDescription,
		CreatedAt:       a.CreatedAt,
		LastActivity:    a.LastActivity,
		LastOutput:      a.LastOutput,
		NeedsAttention:  a.NeedsAttention,
		Parked:          a.Parked,
		LastResponse:    a.LastResponse,
		LastUserMessage: a.LastUserMessage,
		Profile:         a.Profile,
	}
}

// MergeInto copies the snapshot's recoverable fields onto a skeleton Agent
// built purely from a recovered terminal session.
func (s *AgentSnapshot) MergeInto(a *Agent) {
	a.TaskDescription = s.TaskDescription
	a.Profile = s.Profile
	a.NeedsAttention = s.NeedsAttention
	a.Parked = s.Parked
	a.LastResponse = s.LastResponse
	a.LastUserMessage = s.LastUserMessage
	if !s.CreatedAt.IsZero() {
		a.CreatedAt = s.CreatedAt
	}
	if !s.LastActivity.IsZero() {
		a.LastActivity = s.LastActivity
	}
	if s.LastOutput != "" {
		a.LastOutput = s.LastOutput
	}
}

// EventType enumerates the append-only event log's event_type column.
type EventType string

const (
	EventSpawned        EventType = "spawned"
	EventKilled         EventType = "killed"
	EventStatusChange   EventType = "status_change"
	EventMessageSent    EventType = "message_sent"
	EventControlSent    EventType = "control_sent"
	EventAgentRestarted EventType = "agent_restarted"
)

// Event is one row of the append-only event log.
type Event struct {
	ID        int64
	Timestamp time.Time
	AgentID   string
	Project   string
	Type      EventType
	Payload   string // JSON-encoded, optional
}

// EventFilter narrows an event log query.
type EventFilter struct {
	AgentID string
	Project string
	Type    EventType
	Limit   int
}
