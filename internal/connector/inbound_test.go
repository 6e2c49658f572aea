package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentforge/agentforge/internal/model"
)

func TestApplyCommandFields_ParsesSlashCommand(t *testing.T) {
	m := model.InboundMessage{Kind: model.InboundText, Text: "/spawn alpha fix the bug"}
	ApplyCommandFields(&m)

	assert.True(t, m.IsCommand)
	assert.Equal(t, "spawn", m.CommandName)
	assert.Equal(t, []string{"alpha", "fix", "the", "bug"}, m.CommandArgs)
	assert.Equal(t, model.InboundCommand, m.Kind)
}

func TestApplyCommandFields_StripsBotMention(t *testing.T) {
	m := model.InboundMessage{Kind: model.InboundText, Text: "/status@forgebot"}
	ApplyCommandFields(&m)

	assert.True(t, m.IsCommand)
	assert.Equal(t, "status", m.CommandName)
	assert.Empty(t, m.CommandArgs)
}

func TestApplyCommandFields_PlainTextUntouched(t *testing.T) {
	m := model.InboundMessage{Kind: model.InboundText, Text: "please /approve this later"}
	ApplyCommandFields(&m)

	assert.False(t, m.IsCommand)
	assert.Equal(t, model.InboundText, m.Kind)
}

func TestAppendButtonHint(t *testing.T) {
	buttons := []model.ActionButton{
		{Label: "Approve", Action: "approve"},
		{Label: "Reject", Action: "reject"},
		{Label: "Interrupt", Action: "interrupt"},
	}
	got := AppendButtonHint("Allow edit?", buttons)
	assert.Equal(t, "Allow edit?\n\nReply: /approve | /reject | /interrupt", got)

	assert.Equal(t, "no buttons", AppendButtonHint("no buttons", nil))
}
