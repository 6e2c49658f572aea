package model

// Project is a configured git repository the agents work on.
type Project struct {
	Name          string
	Path          string
	DefaultBranch string
	MaxAgents     int // 0 means "use the server default"

	Description       string
	AgentInstructions string
	ContextFiles      []string
	Channels          []ChannelBinding

	// Allow is an opaque, per-project sandbox/allow-list; the core never
	// interprets its contents, only threads it through to collaborators
	// (e.g. a sandboxing executor) that are out of this module's scope.
	Allow map[string]string
}

// EffectiveMaxAgents resolves the project's cap against a server default.
func (p *Project) EffectiveMaxAgents(serverDefault int) int {
	if p.MaxAgents > 0 {
		return p.MaxAgents
	}
	return serverDefault
}

// ChannelBinding attaches a chat channel to a project as a valid
// inbound/outbound endpoint.
type ChannelBinding struct {
	ConnectorID string `mapstructure:"connector_id"`
	ChannelID   string `mapstructure:"channel_id"`
	ChannelName string `mapstructure:"channel_name"`
	Inbound     bool   `mapstructure:"inbound"`
	Outbound    bool   `mapstructure:"outbound"`
}

// StartSequenceStep is one step of a Profile's post-spawn priming sequence.
type StartSequenceStep struct {
	Action string // "wait" | "send" | "wait_for_idle"
	Value  string
}

// Profile is a named preset applied at spawn.
type Profile struct {
	Name          string
	Description   string
	SystemPrompt  string
	Instructions  string
	StartSequence []StartSequenceStep
}

// DefaultStartSequence is used when a profile declares none: wait 3s, then
// send the task text.
func DefaultStartSequence() []StartSequenceStep {
	return []StartSequenceStep{
		{Action: "wait", Value: "3"},
		{Action: "send", Value: "{task}"},
	}
}
