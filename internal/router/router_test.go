package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/agentstore"
	"github.com/agentforge/agentforge/internal/config"
	"github.com/agentforge/agentforge/internal/connector"
	"github.com/agentforge/agentforge/internal/model"
	"github.com/agentforge/agentforge/internal/registry"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	cfg := &config.Config{
		Defaults: config.DefaultsConfig{MaxAgentsPerProject: 4},
		Projects: map[string]config.ProjectConfig{
			"alpha": {
				Path:        "/repos/alpha",
				Description: "Alpha project",
				Channels: []model.ChannelBinding{
					{ConnectorID: "tg", ChannelID: "100", Inbound: true, Outbound: true},
				},
			},
			"beta": {
				Path:        "/repos/beta",
				Description: "Beta project",
				Channels: []model.ChannelBinding{
					{ConnectorID: "tg", ChannelID: "200", Inbound: true, Outbound: false},
				},
			},
		},
	}
	return registry.New(cfg)
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	return &Router{
		registry:   newTestRegistry(t),
		agents:     agentstore.New(),
		connectors: make(map[string]connector.Connector),
		bindings:   make(map[channelKey][]projectBinding),
		sticky:     make(map[channelKey]string),
		replies:    make(map[string]map[channelKey]bool),
	}
}

func TestRebuildBindings_ReflectsConfiguredChannels(t *testing.T) {
	r := newTestRouter(t)
	r.RebuildBindings()

	alphaKey := channelKey{ConnectorID: "tg", ChannelID: "100"}
	bindings := r.bindingsFor(alphaKey)
	require.Len(t, bindings, 1)
	assert.Equal(t, "alpha", bindings[0].project)
	assert.True(t, bindings[0].binding.Outbound)

	betaKey := channelKey{ConnectorID: "tg", ChannelID: "200"}
	bindings = r.bindingsFor(betaKey)
	require.Len(t, bindings, 1)
	assert.Equal(t, "beta", bindings[0].project)
	assert.False(t, bindings[0].binding.Outbound)
}

func TestParseAtPrefix_ExtractsProjectAgentAndRemainder(t *testing.T) {
	project, agent, remainder, ok := parseAtPrefix("@alpha:abc123 do the thing\nmore text")
	require.True(t, ok)
	assert.Equal(t, "alpha", project)
	assert.Equal(t, "abc123", agent)
	assert.Equal(t, "do the thing\nmore text", remainder)
}

func TestParseAtPrefix_ProjectOnly(t *testing.T) {
	project, agent, remainder, ok := parseAtPrefix("@alpha please build it")
	require.True(t, ok)
	assert.Equal(t, "alpha", project)
	assert.Equal(t, "", agent)
	assert.Equal(t, "please build it", remainder)
}

func TestParseAtPrefix_NoPrefixReturnsFalse(t *testing.T) {
	_, _, _, ok := parseAtPrefix("just a plain message")
	assert.False(t, ok)
}

func TestResolveControlTarget_ExplicitArgWins(t *testing.T) {
	r := &Router{agents: agentstore.New(), sticky: make(map[channelKey]string), bindings: make(map[channelKey][]projectBinding)}
	got := resolveControlTarget(r, channelKey{ConnectorID: "tg", ChannelID: "1"}, []string{"explicit-id"})
	assert.Equal(t, "explicit-id", got)
}

func TestResolveControlTarget_FallsBackToStickyWhenAgentExists(t *testing.T) {
	r := &Router{agents: agentstore.New(), sticky: make(map[channelKey]string), bindings: make(map[channelKey][]projectBinding)}
	key := channelKey{ConnectorID: "tg", ChannelID: "1"}
	r.agents.Put(&model.Agent{ID: "sticky-agent", Project: "alpha", Status: model.StatusIdle})
	r.setSticky(key, "sticky-agent")

	got := resolveControlTarget(r, key, nil)
	assert.Equal(t, "sticky-agent", got)
}

func TestResolveControlTarget_SingleLiveAgentShortcut(t *testing.T) {
	r := &Router{
		agents:   agentstore.New(),
		sticky:   make(map[channelKey]string),
		bindings: make(map[channelKey][]projectBinding),
	}
	key := channelKey{ConnectorID: "tg", ChannelID: "100"}
	r.bindings[key] = []projectBinding{{project: "alpha"}}
	r.agents.Put(&model.Agent{ID: "only-agent", Project: "alpha", Status: model.StatusWorking})

	got := resolveControlTarget(r, key, nil)
	assert.Equal(t, "only-agent", got)
}

func TestResolveControlTarget_AmbiguousReturnsEmpty(t *testing.T) {
	r := &Router{
		agents:   agentstore.New(),
		sticky:   make(map[channelKey]string),
		bindings: make(map[channelKey][]projectBinding),
	}
	key := channelKey{ConnectorID: "tg", ChannelID: "100"}
	r.bindings[key] = []projectBinding{{project: "alpha"}}
	r.agents.Put(&model.Agent{ID: "agent-1", Project: "alpha", Status: model.StatusWorking})
	r.agents.Put(&model.Agent{ID: "agent-2", Project: "alpha", Status: model.StatusWorking})

	got := resolveControlTarget(r, key, nil)
	assert.Equal(t, "", got)
}

func TestOutboundChannelsFor_IncludesOutboundBindingAndReplyChannelNotDuplicated(t *testing.T) {
	r := &Router{
		bindings: make(map[channelKey][]projectBinding),
		replies:  make(map[string]map[channelKey]bool),
	}
	boundKey := channelKey{ConnectorID: "tg", ChannelID: "100"}
	r.bindings[boundKey] = []projectBinding{{project: "alpha", binding: model.ChannelBinding{Outbound: true}}}
	r.registerReplyChannel("alpha", boundKey)

	replyOnlyKey := channelKey{ConnectorID: "discord", ChannelID: "999"}
	r.registerReplyChannel("alpha", replyOnlyKey)

	got := r.outboundChannelsFor("alpha")
	assert.Len(t, got, 2)
	assert.Contains(t, got, boundKey)
	assert.Contains(t, got, replyOnlyKey)
}

func TestOutboundChannelsFor_ExcludesNonOutboundBindingUnlessReplyChannel(t *testing.T) {
	r := &Router{
		bindings: make(map[channelKey][]projectBinding),
		replies:  make(map[string]map[channelKey]bool),
	}
	key := channelKey{ConnectorID: "tg", ChannelID: "200"}
	r.bindings[key] = []projectBinding{{project: "beta", binding: model.ChannelBinding{Outbound: false}}}

	got := r.outboundChannelsFor("beta")
	assert.Empty(t, got)
}

func TestClearStickyIfGone_RemovesEntryForMissingAgent(t *testing.T) {
	r := &Router{agents: agentstore.New(), sticky: make(map[channelKey]string)}
	key := channelKey{ConnectorID: "tg", ChannelID: "1"}
	r.sticky[key] = "gone-agent"

	r.clearStickyIfGone(key)

	_, ok := r.getSticky(key)
	assert.False(t, ok)
}

func TestClearStickyIfGone_KeepsEntryForLiveAgent(t *testing.T) {
	r := &Router{agents: agentstore.New(), sticky: make(map[channelKey]string)}
	key := channelKey{ConnectorID: "tg", ChannelID: "1"}
	r.agents.Put(&model.Agent{ID: "live-agent", Project: "alpha", Status: model.StatusIdle, CreatedAt: time.Now()})
	r.sticky[key] = "live-agent"

	r.clearStickyIfGone(key)

	got, ok := r.getSticky(key)
	assert.True(t, ok)
	assert.Equal(t, "live-agent", got)
}
