package connector

import (
	"strings"

	"github.com/agentforge/agentforge/internal/model"
)

// ApplyCommandFields inspects an inbound message's text for a leading
// slash command and fills IsCommand/CommandName/CommandArgs, flipping Kind
// to InboundCommand. Connectors call this once per received message so the
// Router never re-parses platform text.
func ApplyCommandFields(m *model.InboundMessage) {
	trimmed := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(trimmed, "/") {
		return
	}
	fields := strings.Fields(trimmed)
	name := strings.TrimPrefix(fields[0], "/")
	// Telegram addresses group commands as /cmd@botname.
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return
	}
	m.IsCommand = true
	m.CommandName = name
	m.CommandArgs = fields[1:]
	m.Kind = model.InboundCommand
}

// ButtonHint renders the textual fallback appended by connectors that
// cannot draw interactive buttons, e.g. "Reply: /approve | /reject |
// /interrupt".
func ButtonHint(buttons []model.ActionButton) string {
	if len(buttons) == 0 {
		return ""
	}
	parts := make([]string, len(buttons))
	for i, b := range buttons {
		parts[i] = "/" + b.Action
	}
	return "Reply: " + strings.Join(parts, " | ")
}

// AppendButtonHint combines an outbound text with the ButtonHint for its
// buttons, for connectors without interactive-button support.
func AppendButtonHint(text string, buttons []model.ActionButton) string {
	hint := ButtonHint(buttons)
	if hint == "" {
		return text
	}
	if text == "" {
		return hint
	}
	return text + "\n\n" + hint
}
