package status

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/broadcast"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/model"
)

const capturePaneLines = 5000

// TerminalDriver is the subset of terminal.Driver the monitor needs.
type TerminalDriver interface {
	SessionExists(ctx context.Context, name string) bool
	CapturePane(ctx context.Context, name string, lines int) (string, bool)
	ResizeSession(ctx context.Context, name string) bool
}

// AgentStore is the subset of agentstore.Store the monitor needs.
type AgentStore interface {
	All() []*model.Agent
	Mutate(id string, fn func(a *model.Agent)) bool
}

// SnapshotStore persists per-poll agent snapshots and lifecycle events.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, snap model.AgentSnapshot) error
	AppendEventJSON(ctx context.Context, agentID, project string, typ model.EventType, payload any) error
}

// Broadcaster emits typed frames to dashboard/log subscribers.
type Broadcaster interface {
	Broadcast(kind broadcast.FrameKind, data any)
}

// Notifier delivers plain and rich notifications to a project's bound
// channels. Deliberately NOT the router package's concrete type, to avoid
// status <-> router becoming a dependency cycle (router needs lifecycle,
// lifecycle needs status for recovery's DetectStatus call).
type Notifier interface {
	SendToProjectChannels(ctx context.Context, project, text string)
	SendToProjectChannelsRich(ctx context.Context, project, text string, buttons []model.ActionButton)
}

// Extractor runs the Response Extraction pipeline.
type Extractor interface {
	Extract(ctx context.Context, rawTail string) string
}

// MetricsCollector samples system/per-agent resource usage.
type MetricsCollector interface {
	Collect(ctx context.Context, agents []*model.Agent) any
}

// Config tunes the monitor's poll cadence.
type Config struct {
	PollInterval    time.Duration
	MetricsInterval time.Duration
}

// Monitor runs the background status-polling loop over every live agent.
type Monitor struct {
	cfg Config

	terminal   TerminalDriver
	agents     AgentStore
	snapshots  SnapshotStore
	broadcast  Broadcaster
	notifier   Notifier
	extractor  Extractor
	summarizer *Summarizer
	metrics    MetricsCollector

	log *logging.Logger

	mu      sync.Mutex
	resized map[string]bool // agents already resized once (first-sight only)
}

// New builds a Monitor. summarizer/metrics may be nil to disable those
// features.
func New(cfg Config, terminal TerminalDriver, agents AgentStore, snapshots SnapshotStore,
	broadcast Broadcaster, notifier Notifier, extractor Extractor, summarizer *Summarizer,
	metrics MetricsCollector, log *logging.Logger) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = 5 * time.Second
	}
	if log == nil {
		log = logging.Default()
	}
	return &Monitor{
		cfg:        cfg,
		terminal:   terminal,
		agents:     agents,
		snapshots:  snapshots,
		broadcast:  broadcast,
		notifier:   notifier,
		extractor:  extractor,
		summarizer: summarizer,
		metrics:    metrics,
		log:        log.With(zap.String("component", "status_monitor")),
		resized:    make(map[string]bool),
	}
}

// Run drives the poll loop and the independent metrics loop until ctx is
// canceled.
func (m *Monitor) Run(ctx context.Context) {
	pollTicker := time.NewTicker(m.cfg.PollInterval)
	defer pollTicker.Stop()
	metricsTicker := time.NewTicker(m.cfg.MetricsInterval)
	defer metricsTicker.Stop()

	m.log.Info("status monitor started")
	defer m.log.Info("status monitor stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			m.pollOnce(ctx)
		case <-metricsTicker.C:
			m.collectMetrics(ctx)
		}
	}
}

// pollOnce processes every non-STOPPED agent, one at a time, serialized per
// so per-agent transitions are never interleaved.
func (m *Monitor) pollOnce(ctx context.Context) {
	for _, a := range m.agents.All() {
		if a.Status == model.StatusStopped {
			continue
		}
		m.pollAgent(ctx, a)
	}
}

func (m *Monitor) pollAgent(ctx context.Context, a *model.Agent) {
	m.mu.Lock()
	if !m.resized[a.ID] {
		m.terminal.ResizeSession(ctx, a.Session)
		m.resized[a.ID] = true
	}
	m.mu.Unlock()

	current, ok := m.terminal.CapturePane(ctx, a.Session, capturePaneLines)

	if !m.terminal.SessionExists(ctx, a.Session) {
		m.handleSessionGone(ctx, a)
		return
	}
	if !ok {
		return // capture failed transiently; try again next poll
	}

	previous := a.LastOutput
	next := DetectStatus(current, previous)

	var changed bool
	m.agents.Mutate(a.ID, func(live *model.Agent) {
		live.LastOutput = current
		live.LastActivity = time.Now()
		changed = live.Status != next
		if changed {
			m.applyTransition(ctx, live, next)
		}
	})

	m.persistAndBroadcast(ctx, a.ID)
}

func (m *Monitor) handleSessionGone(ctx context.Context, a *model.Agent) {
	wasWorking := a.Status == model.StatusWorking
	m.agents.Mutate(a.ID, func(live *model.Agent) {
		live.Status = model.StatusStopped
		live.NeedsAttention = true
		live.Parked = false
	})

	if wasWorking {
		m.relayResponse(ctx, a, a.LastOutput)
	} else {
		text := "agent " + a.ID + " stopped"
		if m.summarizer != nil {
			text += ": " + m.summarizer.Summarize(ctx, a.LastOutput)
		}
		m.notifier.SendToProjectChannels(ctx, a.Project, text)
	}

	_ = m.snapshots.AppendEventJSON(ctx, a.ID, a.Project, model.EventStatusChange, map[string]string{"status": string(model.StatusStopped)})
	m.persistAndBroadcast(ctx, a.ID)
}

// applyTransition runs the side effects for a.Status -> next; caller holds
// the agent store's write lock via Mutate.
func (m *Monitor) applyTransition(ctx context.Context, live *model.Agent, next model.Status) {
	prev := live.Status
	live.Status = next

	switch {
	case next == model.StatusWaitingInput:
		promptCtx := ExtractPromptContext(live.LastOutput)
		buttons := []model.ActionButton{
			{Label: "Approve", Action: "approve", AgentID: live.ID},
			{Label: "Reject", Action: "reject", AgentID: live.ID},
			{Label: "Interrupt", Action: "interrupt", AgentID: live.ID},
		}
		m.notifier.SendToProjectChannelsRich(ctx, live.Project, promptCtx, buttons)
	case prev == model.StatusWorking && next == model.StatusIdle:
		// Same gating as relayResponse, applied to live directly: the store
		// lock is already held here and Mutate is not reentrant.
		if m.extractor != nil {
			if text := m.extractor.Extract(ctx, live.LastOutput); text != "" && text != live.LastResponse {
				live.LastResponse = text
				m.notifier.SendToProjectChannels(ctx, live.Project, text)
			}
		}
	case !(prev == model.StatusWorking && next == model.StatusWorking):
		text := "agent " + live.ID + " is now " + string(next)
		if m.summarizer != nil {
			text += ": " + m.summarizer.Summarize(ctx, live.LastOutput)
		}
		m.notifier.SendToProjectChannels(ctx, live.Project, text)
	}

	switch next {
	case model.StatusIdle, model.StatusWaitingInput, model.StatusError:
		live.NeedsAttention = true
		live.Parked = false
	case model.StatusWorking:
		live.NeedsAttention = false
	}

	_ = m.snapshots.AppendEventJSON(ctx, live.ID, live.Project, model.EventStatusChange,
		map[string]string{"from": string(prev), "to": string(next)})
}

// relayResponse runs extraction and, if it produces new text, broadcasts it
// — gated against the agent's last_response to dedup repeated extracts
// across rapid transitions.
func (m *Monitor) relayResponse(ctx context.Context, a *model.Agent, rawTail string) {
	if m.extractor == nil {
		return
	}
	text := m.extractor.Extract(ctx, rawTail)
	if text == "" {
		return
	}
	var shouldSend bool
	m.agents.Mutate(a.ID, func(live *model.Agent) {
		if text != live.LastResponse {
			live.LastResponse = text
			shouldSend = true
		}
	})
	if shouldSend {
		m.notifier.SendToProjectChannels(ctx, a.Project, text)
	}
}

func (m *Monitor) persistAndBroadcast(ctx context.Context, agentID string) {
	var snap model.AgentSnapshot
	m.agents.Mutate(agentID, func(live *model.Agent) {
		snap = live.ToSnapshot()
	})
	if err := m.snapshots.UpsertSnapshot(ctx, snap); err != nil {
		m.log.Warn("failed to persist snapshot", zap.String("agent_id", agentID), zap.Error(err))
	}
	if m.broadcast != nil {
		m.broadcast.Broadcast(broadcast.FrameAgentUpdate, snap)
	}
}

func (m *Monitor) collectMetrics(ctx context.Context) {
	if m.metrics == nil || m.broadcast == nil {
		return
	}
	data := m.metrics.Collect(ctx, m.agents.All())
	m.broadcast.Broadcast(broadcast.FrameMetricsUpdate, data)
}
