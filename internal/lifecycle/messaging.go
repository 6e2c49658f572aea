package lifecycle

import (
	"context"
	"os"
	"time"

	"github.com/agentforge/agentforge/internal/model"
)

// controlKeys maps a control action name onto the named keys sent via
// send_raw.
var controlKeys = map[string][]string{
	"approve":     {"Enter"},
	"approve_all": {"Down", "Enter"},
	"reject":      {"Escape"},
	"interrupt":   {"C-c"},
	"up":          {"Up"},
	"down":        {"Down"},
}

// SendMessage locates the agent, sends text, stamps last_activity, and
// records the pipe-log's current byte size into last_relay_offset so the
// Response Extractor can detect new content after a user prompt. Returns
// false without side effects if the agent does not exist.
func (m *Manager) SendMessage(ctx context.Context, agentID, text string) bool {
	agent := m.agents.Get(agentID)
	if agent == nil {
		return false
	}
	if !m.terminal.SendText(ctx, agent.Session, text) {
		return false
	}
	m.agents.Mutate(agentID, func(a *model.Agent) {
		a.LastActivity = time.Now()
		a.LastUserMessage = text
		a.LastRelayOffset = pipeLogSize(a.PipeLog)
		a.NeedsAttention = false
	})
	_ = m.snaps.AppendEventJSON(ctx, agentID, agent.Project, model.EventMessageSent, map[string]string{"text": text})
	return true
}

// SendMessageWithMedia appends a media reference sentence to text and
// sends the combined message.
func (m *Manager) SendMessageWithMedia(ctx context.Context, agentID, text, mediaReference string) bool {
	combined := text
	if mediaReference != "" {
		if combined != "" {
			combined += "\n\n"
		}
		combined += mediaReference
	}
	return m.SendMessage(ctx, agentID, combined)
}

// SendControl maps a named action onto send_raw keystrokes; an unknown
// action is a reported failure, not a crash.
func (m *Manager) SendControl(ctx context.Context, agentID, action string) bool {
	agent := m.agents.Get(agentID)
	if agent == nil {
		return false
	}
	keys, ok := controlKeys[action]
	if !ok {
		return false
	}
	ok = m.terminal.SendRaw(ctx, agent.Session, keys...)
	if ok {
		m.agents.Mutate(agentID, func(a *model.Agent) { a.LastActivity = time.Now() })
		_ = m.snaps.AppendEventJSON(ctx, agentID, agent.Project, model.EventControlSent, map[string]string{"action": action})
	}
	return ok
}

// ClearContext sends literal "/clear" and sleeps 1s, intended only for an
// already-idle agent (the Router enforces that precondition).
func (m *Manager) ClearContext(ctx context.Context, agentID string) bool {
	agent := m.agents.Get(agentID)
	if agent == nil {
		return false
	}
	if !m.terminal.SendText(ctx, agent.Session, "/clear") {
		return false
	}
	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
	}
	return true
}

func pipeLogSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
