// Package signal adapts a local signal-cli daemon (JSON-RPC over HTTP) to
// the Connector Contract. No Signal SDK appears anywhere in the example
// pack, so this is built directly on net/http, polling signal-cli's
// `receive` RPC method on an interval — the same REST-polling shape the
// other connectors use for their health checks.
package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/connector"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/model"
)

const (
	messageLimit   = 2000
	pollInterval   = 3 * time.Second
	requestTimeout = 15 * time.Second
)

// Connector talks to a local signal-cli `daemon --http` JSON-RPC endpoint.
type Connector struct {
	id      string
	rpcURL  string // e.g. http://localhost:8080/api/v1/rpc
	account string // the signal-cli registered number this connector sends from
	log     *logging.Logger
	client  *http.Client

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool

	knownChatsMu sync.RWMutex
	knownChats   map[string]model.KnownChat

	callback connector.MessageCallback
}

// New creates a Signal connector against a signal-cli JSON-RPC daemon.
func New(id, rpcURL, account string, log *logging.Logger) *Connector {
	if log == nil {
		log = logging.Default()
	}
	return &Connector{
		id:         id,
		rpcURL:     rpcURL,
		account:    account,
		log:        log.With(zap.String("component", "connector.signal"), zap.String("connector_id", id)),
		client:     &http.Client{Timeout: requestTimeout},
		knownChats: make(map[string]model.KnownChat),
	}
}

func (c *Connector) ID() string                                      { return c.id }
func (c *Connector) Type() model.ConnectorType                       { return model.ConnectorSignal }
func (c *Connector) SetMessageCallback(cb connector.MessageCallback) { c.callback = cb }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type receiveEnvelope struct {
	Envelope struct {
		Source      string `json:"source"`
		SourceName  string `json:"sourceName"`
		DataMessage *struct {
			Message     string `json:"message"`
			Attachments []struct {
				ID string `json:"id"`
			} `json:"attachments"`
		} `json:"dataMessage"`
	} `json:"envelope"`
}

// Start begins polling signal-cli's `receive` method on an interval; unlike
// the websocket-based connectors there is no persistent connection to
// establish, so Start always succeeds once the poll loop is launched.
func (c *Connector) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	go c.pollLoop(runCtx)
	return nil
}

func (c *Connector) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return nil
}

func (c *Connector) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *Connector) pollOnce(ctx context.Context) {
	result, err := c.call(ctx, "receive", map[string]string{"account": c.account})
	if err != nil {
		c.log.Warn("signal receive failed", zap.Error(err))
		return
	}

	var envelopes []receiveEnvelope
	if err := json.Unmarshal(result, &envelopes); err != nil {
		return
	}
	for _, env := range envelopes {
		c.handleEnvelope(ctx, env)
	}
}

func (c *Connector) handleEnvelope(ctx context.Context, env receiveEnvelope) {
	if env.Envelope.DataMessage == nil {
		return
	}
	chatID := env.Envelope.Source
	c.RememberChat(model.KnownChat{ChannelID: chatID, Name: env.Envelope.SourceName})

	if c.callback == nil {
		return
	}

	var mediaPaths []string
	for _, att := range env.Envelope.DataMessage.Attachments {
		mediaPaths = append(mediaPaths, att.ID)
	}

	inbound := model.InboundMessage{
		ConnectorID: c.id,
		ChannelID:   chatID,
		SenderID:    env.Envelope.Source,
		SenderName:  env.Envelope.SourceName,
		Kind:        model.InboundText,
		Text:        env.Envelope.DataMessage.Message,
		MediaPaths:  mediaPaths,
		Raw:         env,
	}
	connector.ApplyCommandFields(&inbound)
	c.callback(ctx, inbound)
}

func (c *Connector) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("signal-cli rpc error: %s", out.Error.Message)
	}
	return out.Result, nil
}

func (c *Connector) SendMessage(ctx context.Context, msg model.OutboundMessage) bool {
	chunks := connector.ChunkText(connector.AppendButtonHint(msg.Text, msg.ActionButtons), messageLimit)
	ok := true
	for _, chunk := range chunks {
		params := map[string]any{
			"account":    c.account,
			"recipient":  []string{msg.ChannelID},
			"message":    chunk,
			"attachment": msg.MediaPaths,
		}
		if _, err := c.call(ctx, "send", params); err != nil {
			c.log.Warn("signal send failed", zap.Error(err))
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
	return model.ChannelInfo{ID: chat.ChannelID, Name: chat.Name, Type: "signal"}, true
}

func (c *Connector) ListChannels(ctx context.Context) []model.ChannelInfo {
	c.knownChatsMu.RLock()
	defer c.knownChatsMu.RUnlock()
	out := make([]model.ChannelInfo, 0, len(c.knownChats))
	for _, chat := range c.knownChats {
		out = append(out, model.ChannelInfo{ID: chat.ChannelID, Name: chat.Name, Type: "signal"})
	}
	return out
}

func (c *Connector) HealthCheck(ctx context.Context) model.HealthStatus {
	if _, err := c.call(ctx, "getUsage", nil); err != nil {
		return model.HealthStatus{Connected: false, Detail: err.Error()}
	}
	return model.HealthStatus{Connected: true}
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
