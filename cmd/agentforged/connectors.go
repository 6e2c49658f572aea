package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/connector"
	"github.com/agentforge/agentforge/internal/connector/discord"
	"github.com/agentforge/agentforge/internal/connector/signal"
	"github.com/agentforge/agentforge/internal/connector/slack"
	"github.com/agentforge/agentforge/internal/connector/telegram"
	"github.com/agentforge/agentforge/internal/connector/whatsapp"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/model"
	"github.com/agentforge/agentforge/internal/registry"
	"github.com/agentforge/agentforge/internal/router"
)

// buildConnector constructs one platform adapter from its config entry.
func buildConnector(id string, cc model.ConnectorConfig, log *logging.Logger) (connector.Connector, error) {
	switch cc.Type {
	case model.ConnectorTelegram:
		return telegram.New(id, cc.Credentials["bot_token"], log)
	case model.ConnectorDiscord:
		return discord.New(id, cc.Credentials["bot_token"], log)
	case model.ConnectorSlack:
		return slack.New(id, cc.Credentials["app_token"], cc.Credentials["bot_token"], log), nil
	case model.ConnectorWhatsApp:
		return whatsapp.New(id, cc.Settings["bridge_url"], log)
	case model.ConnectorSignal:
		return signal.New(id, cc.Settings["rpc_url"], cc.Credentials["account"], log), nil
	default:
		return nil, fmt.Errorf("unknown connector type %q", cc.Type)
	}
}

// startConnectors builds, registers and starts every enabled connector.
// A connector that fails to construct or start is logged and omitted from
// the running set; it never takes the supervisor down with it.
func startConnectors(ctx context.Context, reg *registry.Registry, rtr *router.Router, log *logging.Logger) []connector.Connector {
	var running []connector.Connector
	for id, cc := range reg.Connectors() {
		if !cc.Enabled {
			continue
		}
		c, err := buildConnector(id, cc, log)
		if err != nil {
			log.Warn("skipping connector", zap.String("connector_id", id), zap.Error(err))
			continue
		}
		rtr.RegisterConnector(c)
		if err := c.Start(ctx); err != nil {
			log.Warn("connector failed to start", zap.String("connector_id", id), zap.Error(err))
			continue
		}
		log.Info("connector started",
			zap.String("connector_id", id),
			zap.String("type", string(cc.Type)))
		running = append(running, c)
	}
	return running
}

func stopConnectors(running []connector.Connector, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, c := range running {
		if err := c.Stop(ctx); err != nil {
			log.Warn("connector stop failed", zap.String("connector_id", c.ID()), zap.Error(err))
		}
	}
}
