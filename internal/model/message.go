package model

// InboundKind tags the shape of an InboundMessage so the Router never has to
// type-switch on a dynamic payload the way a scripting-language connector
// would.
type InboundKind string

const (
	InboundText    InboundKind = "text"
	InboundCommand InboundKind = "command"
	InboundMedia   InboundKind = "media"
	InboundButton  InboundKind = "button"
)

// InboundMessage is populated by a connector before handing off to the
// Router. Only the fields relevant to Kind are expected to be set, but all
// are plain fields (no map[string]any) so the compiler enforces shape.
type InboundMessage struct {
	ConnectorID string
	ChannelID   string
	SenderID    string
	SenderName  string

	Kind InboundKind

	Text       string
	MediaPaths []string

	ProjectName string
	AgentID     string

	IsCommand   bool
	CommandName string
	CommandArgs []string

	// ButtonAction/ButtonAgentID are populated when Kind == InboundButton,
	// i.e. the user pressed an action button rendered for a control prompt.
	ButtonAction  string
	ButtonAgentID string

	Raw any
}

// ActionButton is a single interactive button attached to an OutboundMessage
// for platforms that can render them (OutboundMessage.ActionButtons).
type ActionButton struct {
	Label   string
	Action  string
	AgentID string
}

// OutboundMessage is handed to a Connector's SendMessage method.
type OutboundMessage struct {
	ChannelID  string
	Text       string
	MediaPaths []string
	ParseMode  string

	ActionButtons []ActionButton
}

// ChannelInfo describes a channel as reported by a connector.
type ChannelInfo struct {
	ID   string
	Name string
	Type string
}

// HealthStatus is the result of a Connector health check.
type HealthStatus struct {
	Connected bool
	Detail    string
}
