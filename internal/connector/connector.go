// Package connector defines the Connector Contract: the interface every
// chat-platform adapter implements, and the outbound chunking helper shared
// by all of them.
package connector

import (
	"context"

	"github.com/agentforge/agentforge/internal/model"
)

// MessageCallback is invoked by a Connector whenever it receives an inbound
// message. A direct callback rather than a bus type: the Router is this
// module's only subscriber, so fan-out machinery would buy nothing.
type MessageCallback func(ctx context.Context, msg model.InboundMessage)

// Connector is implemented by every chat-platform adapter
// (telegram/discord/slack/whatsapp/signal).
type Connector interface {
	ID() string
	Type() model.ConnectorType

	// Start begins listening for inbound messages; non-blocking after setup.
	Start(ctx context.Context) error
	// Stop gracefully shuts the connector down.
	Stop(ctx context.Context) error

	// SendMessage chunks and delivers an outbound message, returning false
	// on any delivery failure (logged by the caller, never propagated as a
	// panic).
	SendMessage(ctx context.Context, msg model.OutboundMessage) bool

	ValidateChannel(ctx context.Context, channelID string) bool
	GetChannelInfo(ctx context.Context, channelID string) (model.ChannelInfo, bool)
	ListChannels(ctx context.Context) []model.ChannelInfo
	HealthCheck(ctx context.Context) model.HealthStatus

	SetMessageCallback(cb MessageCallback)
}

// KnownChatTracker is implemented by connectors that persist observed chats
// into their settings map so they survive a process restart.
type KnownChatTracker interface {
	KnownChats() []model.KnownChat
	RememberChat(chat model.KnownChat)
}
