package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot() model.AgentSnapshot {
	now := time.Now().Truncate(time.Second)
	return model.AgentSnapshot{
		AgentID:         "a1b2c3",
		Project:         "alpha",
		SessionName:     "forge__alpha__a1b2c3",
		WorktreePath:    "/repos/alpha/.worktrees/a1b2c3",
		BranchName:      "agent/a1b2c3/fix-login-bug",
		Status:          model.StatusWorking,
		TaskDescription: "fix login bug",
		CreatedAt:       now.Add(-time.Hour),
		LastActivity:    now,
		LastOutput:      "compiling...",
		NeedsAttention:  true,
		Parked:          true,
		LastResponse:    "done with step 1",
		LastUserMessage: "please fix it",
		Profile:         "reviewer",
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := sampleSnapshot()
	require.NoError(t, s.UpsertSnapshot(ctx, want))

	got, ok, err := s.GetSnapshot(ctx, want.AgentID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, want.AgentID, got.AgentID)
	assert.Equal(t, want.Project, got.Project)
	assert.Equal(t, want.SessionName, got.SessionName)
	assert.Equal(t, want.WorktreePath, got.WorktreePath)
	assert.Equal(t, want.BranchName, got.BranchName)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.TaskDescription, got.TaskDescription)
	assert.Equal(t, want.CreatedAt.Unix(), got.CreatedAt.Unix())
	assert.Equal(t, want.LastActivity.Unix(), got.LastActivity.Unix())
	assert.Equal(t, want.LastOutput, got.LastOutput)
	assert.Equal(t, want.NeedsAttention, got.NeedsAttention)
	assert.Equal(t, want.Parked, got.Parked)
	assert.Equal(t, want.LastResponse, got.LastResponse)
	assert.Equal(t, want.LastUserMessage, got.LastUserMessage)
	assert.Equal(t, want.Profile, got.Profile)
}

func TestUpsertSnapshot_SecondWriteReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot()
	require.NoError(t, s.UpsertSnapshot(ctx, snap))

	snap.Status = model.StatusIdle
	snap.NeedsAttention = false
	require.NoError(t, s.UpsertSnapshot(ctx, snap))

	got, ok, err := s.GetSnapshot(ctx, snap.AgentID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.StatusIdle, got.Status)
	assert.False(t, got.NeedsAttention)

	all, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot()
	require.NoError(t, s.UpsertSnapshot(ctx, snap))
	require.NoError(t, s.DeleteSnapshot(ctx, snap.AgentID))

	_, ok, err := s.GetSnapshot(ctx, snap.AgentID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing snapshot is not an error.
	assert.NoError(t, s.DeleteSnapshot(ctx, "nope"))
}

func TestListEvents_FiltersAndOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendEventJSON(ctx, "a1", "alpha", model.EventSpawned, nil))
	require.NoError(t, s.AppendEventJSON(ctx, "a1", "alpha", model.EventStatusChange, map[string]string{"to": "IDLE"}))
	require.NoError(t, s.AppendEventJSON(ctx, "b2", "beta", model.EventKilled, nil))

	events, err := s.ListEvents(ctx, model.EventFilter{AgentID: "a1"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventStatusChange, events[0].Type)
	assert.Equal(t, model.EventSpawned, events[1].Type)

	events, err = s.ListEvents(ctx, model.EventFilter{Project: "beta"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventKilled, events[0].Type)

	events, err = s.ListEvents(ctx, model.EventFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

// oldSnapshotSchema is the agent_snapshots table as the first release
// created it, before parked/last_response/last_user_message/profile were
// added.
const oldSnapshotSchema = `
CREATE TABLE agent_snapshots (
	agent_id TEXT PRIMARY KEY,
	project TEXT NOT NULL,
	session_name TEXT NOT NULL,
	worktree_path TEXT NOT NULL,
	branch_name TEXT NOT NULL,
	status TEXT NOT NULL,
	task_description TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	last_activity DATETIME NOT NULL,
	last_output TEXT NOT NULL DEFAULT '',
	needs_attention INTEGER NOT NULL DEFAULT 0
);`

func TestOpen_MigratesOldSnapshotSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	ctx := context.Background()

	raw, err := sqlx.Connect("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(oldSnapshotSchema)
	require.NoError(t, err)
	_, err = raw.Exec(`
		INSERT INTO agent_snapshots (agent_id, project, session_name, worktree_path,
			branch_name, status, created_at, last_activity)
		VALUES ('old001', 'alpha', 'forge__alpha__old001', '/w', 'agent/old001/t', 'IDLE', ?, ?)`,
		time.Now(), time.Now())
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, col := range []string{"parked", "last_response", "last_user_message", "profile"} {
		exists, err := s.columnExists("agent_snapshots", col)
		require.NoError(t, err)
		assert.True(t, exists, "column %s must be added on open", col)
	}

	// The pre-migration row reads back with zero values for the new columns.
	got, ok, err := s.GetSnapshot(ctx, "old001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Project)
	assert.False(t, got.Parked)
	assert.Empty(t, got.LastResponse)
	assert.Empty(t, got.Profile)

	// And the migrated table accepts writes to the new columns.
	require.NoError(t, s.UpsertSnapshot(ctx, sampleSnapshot()))
}

func TestReopen_MigrationIsAdditiveAndIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertSnapshot(ctx, sampleSnapshot()))
	require.NoError(t, s.Close())

	// Second open re-runs the migration sweep against an already-current
	// schema; every ensureColumn must be a no-op and data must survive.
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	for _, col := range migratedSnapshotColumns {
		exists, err := reopened.columnExists("agent_snapshots", col.name)
		require.NoError(t, err)
		assert.True(t, exists)
	}

	got, ok, err := reopened.GetSnapshot(ctx, "a1b2c3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Project)
	assert.Equal(t, "reviewer", got.Profile)
}
