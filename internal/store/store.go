// Package store persists events and agent snapshots to SQLite via
// github.com/jmoiron/sqlx, with schema changes applied only as additive
// ALTER TABLE statements on open.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agentforge/agentforge/internal/model"
)

// Store is a single SQLite-backed connection handling both the append-only
// events table and the upsertable agent_snapshots table. Writes are
// serialized internally by SQLite's own single-writer semantics.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the SQLite database at path and runs
// schema initialization/migration.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer; one connection avoids SQLITE_BUSY
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		agent_id TEXT NOT NULL,
		project TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_events_agent_id ON events(agent_id);
	CREATE INDEX IF NOT EXISTS idx_events_project ON events(project);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);

	CREATE TABLE IF NOT EXISTS agent_snapshots (
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
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.runMigrations()
}

// migratedSnapshotColumns lists every agent_snapshots column added after
// the original schema. They live here instead of the CREATE TABLE above so
// databases created before a column existed upgrade in place on open.
var migratedSnapshotColumns = []struct {
	name       string
	definition string
}{
	{"parked", "INTEGER NOT NULL DEFAULT 0"},
	{"last_response", "TEXT NOT NULL DEFAULT ''"},
	{"last_user_message", "TEXT NOT NULL DEFAULT ''"},
	{"profile", "TEXT NOT NULL DEFAULT ''"},
}

// runMigrations reconciles agent_snapshots against the current column set:
// each missing column is ALTERed in additively, nothing is ever dropped or
// rewritten.
func (s *Store) runMigrations() error {
	for _, col := range migratedSnapshotColumns {
		if err := s.ensureColumn("agent_snapshots", col.name, col.definition); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureColumn(table, column, definition string) error {
	exists, err := s.columnExists(table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

func (s *Store) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var defaultValue *string
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// AppendEvent inserts one row into the append-only event log.
func (s *Store) AppendEvent(ctx context.Context, ev model.Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (timestamp, agent_id, project, event_type, payload)
		VALUES (?, ?, ?, ?, ?)
	`, ev.Timestamp, ev.AgentID, ev.Project, string(ev.Type), ev.Payload)
	return err
}

// AppendEventJSON is a convenience wrapper that JSON-encodes payload.
func (s *Store) AppendEventJSON(ctx context.Context, agentID, project string, typ model.EventType, payload any) error {
	var encoded string
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		encoded = string(b)
	}
	return s.AppendEvent(ctx, model.Event{
		AgentID: agentID,
		Project: project,
		Type:    typ,
		Payload: encoded,
	})
}

// ListEvents queries the event log with an optional filter.
func (s *Store) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	query := "SELECT id, timestamp, agent_id, project, event_type, payload FROM events WHERE 1=1"
	var args []any
	if f.AgentID != "" {
		query += " AND agent_id = ?"
		args = append(args, f.AgentID)
	}
	if f.Project != "" {
		query += " AND project = ?"
		args = append(args, f.Project)
	}
	if f.Type != "" {
		query += " AND event_type = ?"
		args = append(args, string(f.Type))
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows := []eventRow{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.Event, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

type eventRow struct {
	ID        int64     `db:"id"`
	Timestamp time.Time `db:"timestamp"`
	AgentID   string    `db:"agent_id"`
	Project   string    `db:"project"`
	EventType string    `db:"event_type"`
	Payload   string    `db:"payload"`
}

func (r eventRow) toModel() model.Event {
	return model.Event{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		AgentID:   r.AgentID,
		Project:   r.Project,
		Type:      model.EventType(r.EventType),
		Payload:   r.Payload,
	}
}

// snapshotRow mirrors agent_snapshots' column set for sqlx scanning.
type snapshotRow struct {
	AgentID         string    `db:"agent_id"`
	Project         string    `db:"project"`
	SessionName     string    `db:"session_name"`
	WorktreePath    string    `db:"worktree_path"`
	BranchName      string    `db:"branch_name"`
	Status          string    `db:"status"`
	TaskDescription string    `db:"task_description"`
	CreatedAt       time.Time `db:"created_at"`
	LastActivity    time.Time `db:"last_activity"`
	LastOutput      string    `db:"last_output"`
	NeedsAttention  bool      `db:"needs_attention"`
	Parked          bool      `db:"parked"`
	LastResponse    string    `db:"last_response"`
	LastUserMessage string    `db:"last_user_message"`
	Profile         string    `db:"profile"`
}

func (r snapshotRow) toModel() model.AgentSnapshot {
	return model.AgentSnapshot{
		AgentID:         r.AgentID,
		Project:         r.Project,
		SessionName:     r.SessionName,
		WorktreePath:    r.WorktreePath,
		BranchName:      r.BranchName,
		Status:          model.Status(r.Status),
		TaskDescription: r.TaskDescription,
		CreatedAt:       r.CreatedAt,
		LastActivity:    r.LastActivity,
		LastOutput:      r.LastOutput,
		NeedsAttention:  r.NeedsAttention,
		Parked:          r.Parked,
		LastResponse:    r.LastResponse,
		LastUserMessage: r.LastUserMessage,
		Profile:         r.Profile,
	}
}

// UpsertSnapshot inserts or overwrites the persisted snapshot for one agent.
func (s *Store) UpsertSnapshot(ctx context.Context, snap model.AgentSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_snapshots (
			agent_id, project, session_name, worktree_path, branch_name, status,
			task_description, created_at, last_activity, last_output,
			needs_attention, parked, last_response, last_user_message, profile
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			project = excluded.project,
			session_name = excluded.session_name,
			worktree_path = excluded.worktree_path,
			branch_name = excluded.branch_name,
			status = excluded.status,
			task_description = excluded.task_description,
			last_activity = excluded.last_activity,
			last_output = excluded.last_output,
			needs_attention = excluded.needs_attention,
			parked = excluded.parked,
			last_response = excluded.last_response,
			last_user_message = excluded.last_user_message,
			profile = excluded.profile
	`, snap.AgentID, snap.Project, snap.SessionName, snap.WorktreePath, snap.BranchName,
		string(snap.Status), snap.TaskDescription, snap.CreatedAt, snap.LastActivity,
		snap.LastOutput, snap.NeedsAttention, snap.Parked, snap.LastResponse,
		snap.LastUserMessage, snap.Profile)
	return err
}

// DeleteSnapshot removes a persisted snapshot, e.g. on kill.
func (s *Store) DeleteSnapshot(ctx context.Context, agentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM agent_snapshots WHERE agent_id = ?`, agentID)
	return err
}

// GetSnapshot fetches one persisted snapshot, returning (zero, false) if
// absent.
func (s *Store) GetSnapshot(ctx context.Context, agentID string) (model.AgentSnapshot, bool, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM agent_snapshots WHERE agent_id = ?`, agentID)
	if err == sql.ErrNoRows {
		return model.AgentSnapshot{}, false, nil
	}
	if err != nil {
		return model.AgentSnapshot{}, false, err
	}
	return row.toModel(), true, nil
}

// ListSnapshots returns every persisted snapshot, used for startup recovery.
func (s *Store) ListSnapshots(ctx context.Context) ([]model.AgentSnapshot, error) {
	var rows []snapshotRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM agent_snapshots`); err != nil {
		return nil, err
	}
	out := make([]model.AgentSnapshot, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
