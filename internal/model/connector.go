package model

// ConnectorType enumerates the supported chat platform adapters.
type ConnectorType string

const (
	ConnectorTelegram ConnectorType = "telegram"
	ConnectorDiscord  ConnectorType = "discord"
	ConnectorSlack    ConnectorType = "slack"
	ConnectorWhatsApp ConnectorType = "whatsapp"
	ConnectorSignal   ConnectorType = "signal"
)

// ConnectorConfig is the runtime instance configuration for one connector,
// keyed by ID in the root config document.
type ConnectorConfig struct {
	ID          string
	Type        ConnectorType
	Enabled     bool
	Credentials map[string]string
	Settings    map[string]string
}

// KnownChat is a chat the connector has observed and persisted so it
// survives a restart.
type KnownChat struct {
	ChannelID string
	Name      string
}
