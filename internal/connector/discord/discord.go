// Package discord adapts the Discord gateway to the Connector Contract
// via a gateway session and an AddHandler-registered message callback.
package discord

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/connector"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/model"
)

const messageLimit = 2000 // Discord's per-message character limit

// Connector is the Discord implementation of connector.Connector.
type Connector struct {
	id      string
	session *discordgo.Session
	log     *logging.Logger

	mu         sync.RWMutex
	knownChats map[string]model.KnownChat
	running    bool

	callback connector.MessageCallback
}

// New creates a Discord connector from a bot token.
func New(id, token string, log *logging.Logger) (*Connector, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	if log == nil {
		log = logging.Default()
	}
	c := &Connector{
		id:         id,
		session:    session,
		log:        log.With(zap.String("component", "connector.discord"), zap.String("connector_id", id)),
		knownChats: make(map[string]model.KnownChat),
	}
	session.AddHandler(c.handleMessage)
	return c, nil
}

func (c *Connector) ID() string                                      { return c.id }
func (c *Connector) Type() model.ConnectorType                       { return model.ConnectorDiscord }
func (c *Connector) SetMessageCallback(cb connector.MessageCallback) { c.callback = cb }

func (c *Connector) Start(ctx context.Context) error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	return nil
}

func (c *Connector) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return c.session.Close()
}

func (c *Connector) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author != nil && m.Author.Bot {
		return
	}

	name := m.ChannelID
	if m.GuildID == "" {
		name = "dm:" + m.ChannelID
	}
	c.RememberChat(model.KnownChat{ChannelID: m.ChannelID, Name: name})

	if c.callback == nil {
		return
	}

	var mediaPaths []string
	for _, att := range m.Attachments {
		mediaPaths = append(mediaPaths, att.URL)
	}

	senderName := ""
	senderID := ""
	if m.Author != nil {
		senderID = m.Author.ID
		senderName = m.Author.Username
	}

	inbound := model.InboundMessage{
		ConnectorID: c.id,
		ChannelID:   m.ChannelID,
		SenderID:    senderID,
		SenderName:  senderName,
		Kind:        model.InboundText,
		Text:        m.Content,
		MediaPaths:  mediaPaths,
		Raw:         m,
	}
	connector.ApplyCommandFields(&inbound)
	c.callback(context.Background(), inbound)
}

func (c *Connector) SendMessage(ctx context.Context, msg model.OutboundMessage) bool {
	chunks := connector.ChunkText(connector.AppendButtonHint(msg.Text, msg.ActionButtons), messageLimit)
	ok := true
	for i, chunk := range chunks {
		if _, err := c.session.ChannelMessageSend(msg.ChannelID, chunk); err != nil {
			c.log.Warn("discord send failed", zap.Error(err))
			ok = false
		}
		if i == len(chunks)-1 {
			c.sendMedia(msg.ChannelID, msg.MediaPaths)
		}
	}
	return ok
}

func (c *Connector) sendMedia(channelID string, paths []string) {
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			c.log.Warn("discord media open failed", zap.String("path", p), zap.Error(err))
			continue
		}
		_, err = c.session.ChannelFileSend(channelID, p, f)
		f.Close()
		if err != nil {
			c.log.Warn("discord media send failed", zap.String("path", p), zap.Error(err))
		}
	}
}

func (c *Connector) ValidateChannel(ctx context.Context, channelID string) bool {
	_, err := c.session.Channel(channelID)
	return err == nil
}

func (c *Connector) GetChannelInfo(ctx context.Context, channelID string) (model.ChannelInfo, bool) {
	ch, err := c.session.Channel(channelID)
	if err != nil {
		return model.ChannelInfo{}, false
	}
	return model.ChannelInfo{ID: channelID, Name: ch.Name, Type: "discord"}, true
}

func (c *Connector) ListChannels(ctx context.Context) []model.ChannelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ChannelInfo, 0, len(c.knownChats))
	for _, chat := range c.knownChats {
		out = append(out, model.ChannelInfo{ID: chat.ChannelID, Name: chat.Name, Type: "discord"})
	}
	return out
}

func (c *Connector) HealthCheck(ctx context.Context) model.HealthStatus {
	c.mu.RLock()
	running := c.running
	c.mu.RUnlock()
	return model.HealthStatus{Connected: running}
}

func (c *Connector) KnownChats() []model.KnownChat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.KnownChat, 0, len(c.knownChats))
	for _, chat := range c.knownChats {
		out = append(out, chat)
	}
	return out
}

func (c *Connector) RememberChat(chat model.KnownChat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.knownChats[chat.ChannelID] = chat
}
