package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionAndBranchNaming(t *testing.T) {
	assert.Equal(t, "forge__alpha__a1b2c3", SessionName("alpha", "a1b2c3"))
	assert.Equal(t, "agent/a1b2c3/fix-bug", BranchName("agent", "a1b2c3", "fix-bug"))
	assert.Equal(t, "compare/a1b2c3/task", BranchName("compare", "a1b2c3", ""))
	assert.Equal(t, "/repos/p/.worktrees/a1b2c3", WorktreePath("/repos/p", "a1b2c3"))
}

func TestEffectiveMaxAgents(t *testing.T) {
	p := Project{MaxAgents: 0}
	assert.Equal(t, 4, p.EffectiveMaxAgents(4))
	p.MaxAgents = 2
	assert.Equal(t, 2, p.EffectiveMaxAgents(4))
}

func TestSnapshotRoundTripThroughAgent(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	a := &Agent{
		ID:              "a1b2c3",
		Project:         "alpha",
		Branch:          "agent/a1b2c3/fix",
		Worktree:        "/repos/alpha/.worktrees/a1b2c3",
		Session:         "forge__alpha__a1b2c3",
		Profile:         "reviewer",
		Status:          StatusWorking,
		CreatedAt:       now,
		LastActivity:    now,
		TaskDescription: "fix",
		NeedsAttention:  true,
		Parked:          true,
		LastOutput:      "out",
		LastResponse:    "resp",
		LastUserMessage: "msg",
	}

	snap := a.ToSnapshot()
	restored := &Agent{ID: a.ID, Project: a.Project, Session: a.Session}
	snap.MergeInto(restored)

	assert.Equal(t, a.TaskDescription, restored.TaskDescription)
	assert.Equal(t, a.Profile, restored.Profile)
	assert.Equal(t, a.NeedsAttention, restored.NeedsAttention)
	assert.Equal(t, a.Parked, restored.Parked)
	assert.Equal(t, a.LastResponse, restored.LastResponse)
	assert.Equal(t, a.LastUserMessage, restored.LastUserMessage)
	assert.Equal(t, a.CreatedAt.Unix(), restored.CreatedAt.Unix())
	assert.Equal(t, a.LastActivity.Unix(), restored.LastActivity.Unix())
	assert.Equal(t, a.LastOutput, restored.LastOutput)
}

func TestIsLive(t *testing.T) {
	for _, s := range []Status{StatusStarting, StatusWorking, StatusWaitingInput, StatusIdle, StatusError} {
		assert.True(t, (&Agent{Status: s}).IsLive(), "status: %s", s)
	}
	assert.False(t, (&Agent{Status: StatusStopped}).IsLive())
}
