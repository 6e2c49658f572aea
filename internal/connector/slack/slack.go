// Package slack adapts Slack's Socket Mode to the Connector Contract. No
// dedicated Slack SDK is carried, so this is built directly
// on net/http (REST calls) plus github.com/gorilla/websocket (the Socket
// Mode event stream) — the same websocket library the WhatsApp bridge
// connector already depends on.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/connector"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/model"
)

const (
	messageLimit       = 4000
	openConnectionsURL = "https://slack.com/api/apps.connections.open"
	postMessageURL     = "https://slack.com/api/chat.postMessage"
	reconnectBackoff   = 2 * time.Second
)

// Connector is the Slack Socket Mode implementation of connector.Connector.
type Connector struct {
	id       string
	appToken string // xapp-... token used to open the Socket Mode connection
	botToken string // xoxb-... token used for REST calls
	log      *logging.Logger
	client   *http.Client

	mu      sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	running bool

	knownChatsMu sync.RWMutex
	knownChats   map[string]model.KnownChat

	callback connector.MessageCallback
}

// New creates a Slack Socket Mode connector from an app-level and a bot
// token.
func New(id, appToken, botToken string, log *logging.Logger) *Connector {
	if log == nil {
		log = logging.Default()
	}
	return &Connector{
		id:         id,
		appToken:   appToken,
		botToken:   botToken,
		log:        log.With(zap.String("component", "connector.slack"), zap.String("connector_id", id)),
		client:     &http.Client{Timeout: 15 * time.Second},
		knownChats: make(map[string]model.KnownChat),
	}
}

func (c *Connector) ID() string                                      { return c.id }
func (c *Connector) Type() model.ConnectorType                       { return model.ConnectorSlack }
func (c *Connector) SetMessageCallback(cb connector.MessageCallback) { c.callback = cb }

type socketModeEnvelope struct {
	EnvelopeID string          `json:"envelope_id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
}

type eventsAPIPayload struct {
	Event struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
		User    string `json:"user"`
		Text    string `json:"text"`
		BotID   string `json:"bot_id"`
	} `json:"event"`
}

// Start opens a Socket Mode connection and begins reading events, with a
// reconnect loop the same shape as the WhatsApp bridge connector's.
func (c *Connector) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	wsURL, err := c.openConnection(runCtx)
	if err != nil {
		return fmt.Errorf("slack: open socket mode connection: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(runCtx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("slack: dial socket mode: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.running = true
	c.mu.Unlock()

	go c.readLoop(runCtx)
	return nil
}

func (c *Connector) openConnection(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openConnectionsURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.appToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		OK    bool   `json:"ok"`
		URL   string `json:"url"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if !out.OK {
		return "", fmt.Errorf("slack api error: %s", out.Error)
	}
	return out.URL, nil
}

func (c *Connector) readLoop(ctx context.Context) {
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
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.log.Warn("slack socket mode read error, reconnecting", zap.Error(err))
			c.reconnect(ctx)
			continue
		}

		var env socketModeEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if env.EnvelopeID != "" {
			c.ack(env.EnvelopeID)
		}
		if env.Type == "events_api" {
			c.handleEventsAPI(ctx, env.Payload)
		}
	}
}

func (c *Connector) reconnect(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(reconnectBackoff):
	}
	wsURL, err := c.openConnection(ctx)
	if err != nil {
		c.log.Warn("slack reconnect failed to open connection", zap.Error(err))
		return
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		c.log.Warn("slack reconnect dial failed", zap.Error(err))
		return
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Connector) ack(envelopeID string) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	data, _ := json.Marshal(map[string]string{"envelope_id": envelopeID})
	c.mu.Lock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
	c.mu.Unlock()
}

func (c *Connector) handleEventsAPI(ctx context.Context, raw json.RawMessage) {
	var payload eventsAPIPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if payload.Event.Type != "message" || payload.Event.BotID != "" {
		return
	}

	c.RememberChat(model.KnownChat{ChannelID: payload.Event.Channel})

	if c.callback == nil {
		return
	}
	inbound := model.InboundMessage{
		ConnectorID: c.id,
		ChannelID:   payload.Event.Channel,
		SenderID:    payload.Event.User,
		Kind:        model.InboundText,
		Text:        payload.Event.Text,
		Raw:         payload,
	}
	connector.ApplyCommandFields(&inbound)
	c.callback(ctx, inbound)
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
	c.running = false
	return nil
}

func (c *Connector) SendMessage(ctx context.Context, msg model.OutboundMessage) bool {
	chunks := connector.ChunkText(connector.AppendButtonHint(msg.Text, msg.ActionButtons), messageLimit)
	ok := true
	for _, chunk := range chunks {
		if err := c.postMessage(ctx, msg.ChannelID, chunk); err != nil {
			c.log.Warn("slack post message failed", zap.Error(err))
			ok = false
		}
	}
	return ok
}

func (c *Connector) postMessage(ctx context.Context, channelID, text string) error {
	body, err := json.Marshal(map[string]string{"channel": channelID, "text": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postMessageURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("slack api error: %s", out.Error)
	}
	return nil
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
	return model.ChannelInfo{ID: chat.ChannelID, Name: chat.Name, Type: "slack"}, true
}

func (c *Connector) ListChannels(ctx context.Context) []model.ChannelInfo {
	c.knownChatsMu.RLock()
	defer c.knownChatsMu.RUnlock()
	out := make([]model.ChannelInfo, 0, len(c.knownChats))
	for _, chat := range c.knownChats {
		out = append(out, model.ChannelInfo{ID: chat.ChannelID, Name: chat.Name, Type: "slack"})
	}
	return out
}

func (c *Connector) HealthCheck(ctx context.Context) model.HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.HealthStatus{Connected: c.running}
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
