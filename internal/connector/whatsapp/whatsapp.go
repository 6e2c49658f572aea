// Package whatsapp adapts a WhatsApp bridge (e.g. a whatsapp-web.js
// process) over a WebSocket JSON protocol to the Connector Contract, not a
// vendored WhatsApp protocol stack — the bridge process owns the account
// session and this connector only speaks its JSON wire format.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/connector"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/model"
)

const (
	messageLimit   = 4096
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	dialTimeout    = 10 * time.Second
)

// Connector bridges WhatsApp via a local WebSocket bridge process.
type Connector struct {
	id        string
	bridgeURL string
	log       *logging.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc

	knownChatsMu sync.RWMutex
	knownChats   map[string]model.KnownChat

	callback connector.MessageCallback
}

// New creates a WhatsApp bridge connector. bridgeURL is a ws:// or wss://
// endpoint exposed by the bridge process.
func New(id, bridgeURL string, log *logging.Logger) (*Connector, error) {
	if bridgeURL == "" {
		return nil, fmt.Errorf("whatsapp: bridge_url is required")
	}
	if log == nil {
		log = logging.Default()
	}
	return &Connector{
		id:         id,
		bridgeURL:  bridgeURL,
		log:        log.With(zap.String("component", "connector.whatsapp"), zap.String("connector_id", id)),
		knownChats: make(map[string]model.KnownChat),
	}, nil
}

func (c *Connector) ID() string                                      { return c.id }
func (c *Connector) Type() model.ConnectorType                       { return model.ConnectorWhatsApp }
func (c *Connector) SetMessageCallback(cb connector.MessageCallback) { c.callback = cb }

// Start connects to the bridge and begins the read/reconnect loop;
// connection failure at startup is logged, not fatal, since the reconnect
// loop keeps retrying; a dead bridge never fails Start outright.
func (c *Connector) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if err := c.connect(); err != nil {
		c.log.Warn("initial bridge connection failed, will retry", zap.Error(err))
	}

	go c.listenLoop(runCtx)
	return nil
}

func (c *Connector) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	return nil
}

func (c *Connector) connect() error {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = dialTimeout

	conn, _, err := dialer.Dial(c.bridgeURL, nil)
	if err != nil {
		return fmt.Errorf("whatsapp: dial bridge %s: %w", c.bridgeURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	return nil
}

func (c *Connector) listenLoop(ctx context.Context) {
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if err := c.connect(); err != nil {
				c.log.Warn("bridge reconnect failed", zap.Error(err))
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = initialBackoff
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.log.Warn("bridge read error, will reconnect", zap.Error(err))
			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.connected = false
			c.mu.Unlock()
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.log.Warn("invalid bridge message JSON", zap.Error(err))
			continue
		}
		if msgType, _ := payload["type"].(string); msgType == "message" {
			c.handleIncoming(ctx, payload)
		}
	}
}

func (c *Connector) handleIncoming(ctx context.Context, payload map[string]any) {
	senderID, _ := payload["from"].(string)
	if senderID == "" {
		return
	}
	chatID, _ := payload["chat"].(string)
	if chatID == "" {
		chatID = senderID
	}
	text, _ := payload["content"].(string)
	senderName, _ := payload["from_name"].(string)

	name := senderName
	if strings.HasSuffix(chatID, "@g.us") {
		name = chatID
	}
	c.RememberChat(model.KnownChat{ChannelID: chatID, Name: name})

	if c.callback == nil {
		return
	}

	var mediaPaths []string
	if rawMedia, ok := payload["media"].([]any); ok {
		for _, m := range rawMedia {
			if s, ok := m.(string); ok {
				mediaPaths = append(mediaPaths, s)
			}
		}
	}

	inbound := model.InboundMessage{
		ConnectorID: c.id,
		ChannelID:   chatID,
		SenderID:    senderID,
		SenderName:  senderName,
		Kind:        model.InboundText,
		Text:        text,
		MediaPaths:  mediaPaths,
		Raw:         payload,
	}
	connector.ApplyCommandFields(&inbound)
	c.callback(ctx, inbound)
}

func (c *Connector) SendMessage(ctx context.Context, msg model.OutboundMessage) bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.log.Warn("whatsapp bridge not connected")
		return false
	}

	chunks := connector.ChunkText(connector.AppendButtonHint(msg.Text, msg.ActionButtons), messageLimit)
	ok := true
	for i, chunk := range chunks {
		payload := map[string]any{"type": "message", "to": msg.ChannelID, "content": chunk}
		if i == len(chunks)-1 && len(msg.MediaPaths) > 0 {
			payload["media"] = msg.MediaPaths
		}
		data, err := json.Marshal(payload)
		if err != nil {
			ok = false
			continue
		}
		c.mu.Lock()
		err = c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			c.log.Warn("whatsapp bridge send failed", zap.Error(err))
			ok = false
		}
	}
	return ok
}

func (c *Connector) ValidateChannel(ctx context.Context, channelID string) bool {
	c.knownChatsMu.RLock()
	defer c.knownChatsMu.RUnlock()
	_, ok := c.knownChats[channelID]
	return ok
}

func (c *Connector) GetChannelInfo(ctx context.Context, channelID string) (model.ChannelInfo, bool) {
	c.knownChatsMu.RLock()
	defer c.knownChatsMu.RUnlock()
	chat, ok := c.knownChats[channelID]
	if !ok {
		return model.ChannelInfo{}, false
	}
	return model.ChannelInfo{ID: chat.ChannelID, Name: chat.Name, Type: "whatsapp"}, true
}

func (c *Connector) ListChannels(ctx context.Context) []model.ChannelInfo {
	c.knownChatsMu.RLock()
	defer c.knownChatsMu.RUnlock()
	out := make([]model.ChannelInfo, 0, len(c.knownChats))
	for _, chat := range c.knownChats {
		out = append(out, model.ChannelInfo{ID: chat.ChannelID, Name: chat.Name, Type: "whatsapp"})
	}
	return out
}

func (c *Connector) HealthCheck(ctx context.Context) model.HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.HealthStatus{Connected: c.connected}
}

func (c *Connector) KnownChats() []model.KnownChat {
	c.knownChatsMu.RLock()
	defer c.knownChatsMu.RUnlock()
	out := make([]model.KnownChat, 0, len(c.knownChats))
	for _, chat := range c.knownChats {
		out = append(out, chat)
	}
	return out
}

func (c *Connector) RememberChat(chat model.KnownChat) {
	c.knownChatsMu.Lock()
	defer c.knownChatsMu.Unlock()
	c.knownChats[chat.ChannelID] = chat
}
