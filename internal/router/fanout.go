package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/model"
)

// outboundChannelsFor collects every channel that should receive fan-out
// traffic for project: every binding marked Outbound, plus every reply
// channel recorded by a prior inbound delivery that isn't already covered
// by a binding.
func (r *Router) outboundChannelsFor(project string) []channelKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[channelKey]bool)
	var keys []channelKey

	for key, bindings := range r.bindings {
		for _, b := range bindings {
			if b.project == project && b.binding.Outbound && !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}

	for key := range r.replies[project] {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	return keys
}

// SendToProjectChannels fans text out to every outbound channel bound to
// project plus every tracked reply channel. Per-recipient
// failures are logged and never propagated to the caller.
func (r *Router) SendToProjectChannels(ctx context.Context, project, text string) {
	r.SendToProjectChannelsRich(ctx, project, text, nil)
}

// SendToProjectChannelsRich is SendToProjectChannels with optional action
// buttons for connectors that can render them.
func (r *Router) SendToProjectChannelsRich(ctx context.Context, project, text string, buttons []model.ActionButton) {
	for _, key := range r.outboundChannelsFor(project) {
		c, ok := r.connector(key.ConnectorID)
		if !ok {
			continue
		}
		ok = c.SendMessage(ctx, model.OutboundMessage{
			ChannelID:     key.ChannelID,
			Text:          text,
			ActionButtons: buttons,
		})
		if !ok {
			r.log.Warn("fan-out send failed",
				zap.String("project", project),
				zap.String("connector_id", key.ConnectorID),
				zap.String("channel_id", key.ChannelID))
		}
	}
}
