package lifecycle

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/model"
)

var barePromptPattern = regexp.MustCompile(`^>\s*$`)

const (
	defaultWaitSeconds        = 3
	defaultIdleTimeoutSeconds = 120
	idlePollInterval          = 2 * time.Second
)

var idleBoxGlyph = "╭" // the tool's top-of-box glyph, checked as a substring
const idleQuestionPrefix = "What would you"

// runStartSequenceAsync schedules the agent's start sequence on a
// background goroutine keyed to the agent id so Kill can cancel it.
func (m *Manager) runStartSequenceAsync(agentID, session, task string, profile model.Profile) {
	seq := profile.StartSequence
	if len(seq) == 0 {
		seq = model.DefaultStartSequence()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.setCancel(agentID, cancel)

	go func() {
		defer m.popCancel(agentID)
		m.executeStartSequence(ctx, agentID, session, task, seq)
	}()
}

func (m *Manager) executeStartSequence(ctx context.Context, agentID, session, task string, seq []model.StartSequenceStep) {
	for _, step := range seq {
		if ctx.Err() != nil {
			return
		}
		if !m.agents.Exists(agentID) {
			return // agent killed mid-sequence; abort silently
		}

		switch step.Action {
		case "wait":
			m.waitStep(ctx, step.Value)
		case "send":
			text := strings.ReplaceAll(step.Value, "{task}", task)
			if !m.terminal.SendText(ctx, session, text) {
				m.log.Warn("start sequence send failed", zap.String("agent_id", agentID))
			}
		case "wait_for_idle":
			m.waitForIdleStep(ctx, session, step.Value)
		}
	}
}

func (m *Manager) waitStep(ctx context.Context, value string) {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		seconds = defaultWaitSeconds
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(seconds) * time.Second):
	}
}

// waitForIdleStep polls capture_pane every ~2s until a bare prompt, the
// tool's top-of-box glyph, or its idle question prefix appears in the
// tail, giving up silently after the timeout.
func (m *Manager) waitForIdleStep(ctx context.Context, session, value string) {
	timeoutSeconds, err := strconv.Atoi(value)
	if err != nil || timeoutSeconds <= 0 {
		timeoutSeconds = defaultIdleTimeoutSeconds
	}
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return
		}
		pane, ok := m.terminal.CapturePane(ctx, session, 200)
		if ok && looksIdle(pane) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func looksIdle(pane string) bool {
	lines := strings.Split(strings.TrimRight(pane, "\n"), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			last = strings.TrimRight(lines[i], "\r")
			break
		}
	}
	if barePromptPattern.MatchString(last) {
		return true
	}
	return strings.Contains(pane, idleBoxGlyph) || strings.Contains(pane, idleQuestionPrefix)
}
