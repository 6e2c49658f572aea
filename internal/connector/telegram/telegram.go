// Package telegram adapts Telegram Bot API long polling to the Connector
// Contract, with inline-keyboard buttons for control prompts.
package telegram

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/connector"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/model"
)

const messageLimit = 4096

// Connector is the Telegram implementation of connector.Connector.
type Connector struct {
	id  string
	bot *telego.Bot
	log *logging.Logger

	mu         sync.RWMutex
	knownChats map[string]model.KnownChat
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}

	callback connector.MessageCallback
}

// New creates a Telegram connector from a bot token.
func New(id, token string, log *logging.Logger) (*Connector, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	if log == nil {
		log = logging.Default()
	}
	return &Connector{
		id:         id,
		bot:        bot,
		log:        log.With(zap.String("component", "connector.telegram"), zap.String("connector_id", id)),
		knownChats: make(map[string]model.KnownChat),
	}, nil
}

func (c *Connector) ID() string                                      { return c.id }
func (c *Connector) Type() model.ConnectorType                       { return model.ConnectorTelegram }
func (c *Connector) SetMessageCallback(cb connector.MessageCallback) { c.callback = cb }

// Start begins long polling for updates, dispatching each message to the
// registered callback as a model.InboundMessage.
func (c *Connector) Start(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{Timeout: 30})
	if err != nil {
		cancel()
		return fmt.Errorf("telegram: start long polling: %w", err)
	}

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil {
					c.handleMessage(pollCtx, update.Message)
				}
				if update.CallbackQuery != nil {
					c.handleCallback(pollCtx, update.CallbackQuery)
				}
			}
		}
	}()

	return nil
}

func (c *Connector) handleMessage(ctx context.Context, msg *telego.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	senderID := ""
	senderName := ""
	if msg.From != nil {
		senderID = strconv.FormatInt(msg.From.ID, 10)
		senderName = msg.From.Username
	}

	c.RememberChat(model.KnownChat{ChannelID: chatID, Name: msg.Chat.Title})

	if c.callback == nil {
		return
	}

	inbound := model.InboundMessage{
		ConnectorID: c.id,
		ChannelID:   chatID,
		SenderID:    senderID,
		SenderName:  senderName,
		Kind:        model.InboundText,
		Text:        msg.Text,
		Raw:         msg,
	}
	connector.ApplyCommandFields(&inbound)
	c.callback(ctx, inbound)
}

// handleCallback turns an inline-button press into a control command for
// the Router, so /approve via button and via typed command share one path.
func (c *Connector) handleCallback(ctx context.Context, q *telego.CallbackQuery) {
	_ = c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: q.ID})

	if c.callback == nil || q.Message == nil {
		return
	}
	action, agentID, ok := strings.Cut(q.Data, ":")
	if !ok || action == "" {
		return
	}

	inbound := model.InboundMessage{
		ConnectorID:   c.id,
		ChannelID:     strconv.FormatInt(q.Message.GetChat().ID, 10),
		SenderID:      strconv.FormatInt(q.From.ID, 10),
		SenderName:    q.From.Username,
		Kind:          model.InboundButton,
		IsCommand:     true,
		CommandName:   action,
		CommandArgs:   []string{agentID},
		ButtonAction:  action,
		ButtonAgentID: agentID,
		Raw:           q,
	}
	c.callback(ctx, inbound)
}

// Stop cancels the polling context and waits for the polling goroutine
// to exit, so Telegram releases the getUpdates lock before any restart.
func (c *Connector) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if c.done != nil {
		select {
		case <-c.done:
		case <-ctx.Done():
		}
	}
	return nil
}

// SendMessage chunks text to Telegram's 4096-char limit and sends each
// chunk in order; media paths are attached to the final chunk.
func (c *Connector) SendMessage(ctx context.Context, msg model.OutboundMessage) bool {
	chatID, err := strconv.ParseInt(msg.ChannelID, 10, 64)
	if err != nil {
		c.log.Warn("invalid telegram chat id", zap.String("channel_id", msg.ChannelID))
		return false
	}

	chunks := connector.ChunkText(msg.Text, messageLimit)
	ok := true
	for i, chunk := range chunks {
		sendMsg := tu.Message(tu.ID(chatID), chunk)
		if i == len(chunks)-1 && len(msg.ActionButtons) > 0 {
			sendMsg = sendMsg.WithReplyMarkup(inlineKeyboard(msg.ActionButtons))
		}
		if _, err := c.bot.SendMessage(ctx, sendMsg); err != nil {
			c.log.Warn("telegram send failed", zap.Error(err))
			ok = false
		}
		if i == len(chunks)-1 {
			c.sendMedia(ctx, chatID, msg.MediaPaths)
		}
	}
	return ok
}

// inlineKeyboard renders action buttons as one row of callback buttons,
// with callback data "action:agent_id" mirrored back by handleCallback.
func inlineKeyboard(buttons []model.ActionButton) *telego.InlineKeyboardMarkup {
	row := make([]telego.InlineKeyboardButton, len(buttons))
	for i, b := range buttons {
		row[i] = tu.InlineKeyboardButton(b.Label).WithCallbackData(b.Action + ":" + b.AgentID)
	}
	return tu.InlineKeyboard(row)
}

func (c *Connector) sendMedia(ctx context.Context, chatID int64, paths []string) {
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			c.log.Warn("telegram media open failed", zap.String("path", p), zap.Error(err))
			continue
		}
		doc := tu.Document(tu.ID(chatID), tu.File(f))
		if _, err := c.bot.SendDocument(ctx, doc); err != nil {
			c.log.Warn("telegram media send failed", zap.String("path", p), zap.Error(err))
		}
		f.Close()
	}
}

func (c *Connector) ValidateChannel(ctx context.Context, channelID string) bool {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return false
	}
	_, err = c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(chatID)})
	return err == nil
}

func (c *Connector) GetChannelInfo(ctx context.Context, channelID string) (model.ChannelInfo, bool) {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return model.ChannelInfo{}, false
	}
	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(chatID)})
	if err != nil {
		return model.ChannelInfo{}, false
	}
	return model.ChannelInfo{ID: channelID, Name: chat.Title, Type: "telegram"}, true
}

func (c *Connector) ListChannels(ctx context.Context) []model.ChannelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ChannelInfo, 0, len(c.knownChats))
	for _, chat := range c.knownChats {
		out = append(out, model.ChannelInfo{ID: chat.ChannelID, Name: chat.Name, Type: "telegram"})
	}
	return out
}

func (c *Connector) HealthCheck(ctx context.Context) model.HealthStatus {
	if _, err := c.bot.GetMe(ctx); err != nil {
		return model.HealthStatus{Connected: false, Detail: err.Error()}
	}
	return model.HealthStatus{Connected: true}
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
