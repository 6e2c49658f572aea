// Package router implements the Connector Router: channel-binding table,
// sticky context, reply-channel tracking, inbound command dispatch, smart
// routing, and outbound fan-out.
package router

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/agentstore"
	"github.com/agentforge/agentforge/internal/connector"
	"github.com/agentforge/agentforge/internal/lifecycle"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/media"
	"github.com/agentforge/agentforge/internal/model"
	"github.com/agentforge/agentforge/internal/registry"
)

// channelKey identifies one (connector, channel) pair.
type channelKey struct {
	ConnectorID string
	ChannelID   string
}

// projectBinding pairs a project name with the binding that admits it for
// a given channel.
type projectBinding struct {
	project string
	binding model.ChannelBinding
}

// Router owns the channel-binding table, sticky context and reply-channel
// tracking for inbound message resolution. It structurally satisfies
// status.Notifier, so the status package depends only on that interface
// and never imports router.
type Router struct {
	registry  *registry.Registry
	agents    *agentstore.Store
	lifecycle *lifecycle.Manager
	stager    *media.Stager
	log       *logging.Logger

	mu         sync.RWMutex
	connectors map[string]connector.Connector
	bindings   map[channelKey][]projectBinding
	sticky     map[channelKey]string          // (connector, channel) -> agent id
	replies    map[string]map[channelKey]bool // project -> set of reply channels
}

// New builds a Router and performs the first binding-table build.
func New(reg *registry.Registry, agents *agentstore.Store, lc *lifecycle.Manager, stager *media.Stager, log *logging.Logger) *Router {
	if log == nil {
		log = logging.Default()
	}
	r := &Router{
		registry:   reg,
		agents:     agents,
		lifecycle:  lc,
		stager:     stager,
		log:        log.With(zap.String("component", "router")),
		connectors: make(map[string]connector.Connector),
		bindings:   make(map[channelKey][]projectBinding),
		sticky:     make(map[channelKey]string),
		replies:    make(map[string]map[channelKey]bool),
	}
	r.RebuildBindings()
	return r
}

// RegisterConnector wires a connector into the router and points its
// inbound callback at HandleInbound.
func (r *Router) RegisterConnector(c connector.Connector) {
	r.mu.Lock()
	r.connectors[c.ID()] = c
	r.mu.Unlock()
	c.SetMessageCallback(r.HandleInbound)
}

// RebuildBindings recomputes the (connector_id, channel_id) -> projects
// table from the current configuration; it is a pure function of project
// configuration, rebuilt on every config change.
func (r *Router) RebuildBindings() {
	fresh := make(map[channelKey][]projectBinding)
	for name, project := range r.registry.Projects() {
		for _, binding := range project.Channels {
			key := channelKey{ConnectorID: binding.ConnectorID, ChannelID: binding.ChannelID}
			fresh[key] = append(fresh[key], projectBinding{project: name, binding: binding})
		}
	}
	r.mu.Lock()
	r.bindings = fresh
	r.mu.Unlock()
}

func (r *Router) bindingsFor(key channelKey) []projectBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bindings[key]
}

func (r *Router) getSticky(key channelKey) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sticky[key]
	return id, ok
}

func (r *Router) setSticky(key channelKey, agentID string) {
	r.mu.Lock()
	r.sticky[key] = agentID
	r.mu.Unlock()
}

// clearStickyIfGone drops a sticky entry whose agent no longer exists,
// keeping sticky context alive no longer than its agent.
func (r *Router) clearStickyIfGone(key channelKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.sticky[key]; ok && !r.agents.Exists(id) {
		delete(r.sticky, key)
	}
}

func (r *Router) registerReplyChannel(project string, key channelKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replies[project] == nil {
		r.replies[project] = make(map[channelKey]bool)
	}
	r.replies[project][key] = true
}

// HandleInbound is the single entry point every connector's callback is
// pointed at.
func (r *Router) HandleInbound(ctx context.Context, msg model.InboundMessage) {
	key := channelKey{ConnectorID: msg.ConnectorID, ChannelID: msg.ChannelID}
	r.clearStickyIfGone(key)

	if msg.IsCommand {
		r.dispatchCommand(ctx, key, msg)
		return
	}

	// Each connector remembers newly observed chats itself (into its own
	// knownChats map) as part of receiving the message, so restart
	// survival needs no further action here.

	project, agentID, ok := r.resolveProjectAndAgentID(ctx, key, &msg)
	if !ok {
		return // resolution already sent a reply
	}

	proj, exists := r.registry.Project(project)
	if !exists {
		r.replyAvailableProjects(ctx, key)
		return
	}

	agent, ok := r.resolveAgent(ctx, key, proj, agentID, msg)
	if !ok {
		return
	}

	r.deliver(ctx, key, proj, agent, msg)

	r.setSticky(key, agent.ID)
	r.registerReplyChannel(project, key)
}

// resolveProjectAndAgentID resolves (project, agent_id) from explicit
// fields, binding cardinality, the @project prefix, or sticky context.
// When the @project prefix is used, msg.Text is rewritten to the
// remainder so the prefix never reaches the agent.
func (r *Router) resolveProjectAndAgentID(ctx context.Context, key channelKey, msg *model.InboundMessage) (project, agentID string, ok bool) {
	if msg.ProjectName != "" {
		return msg.ProjectName, msg.AgentID, true
	}

	bindings := r.bindingsFor(key)
	atProject, atAgent, remainder, hasAt := parseAtPrefix(msg.Text)

	switch len(bindings) {
	case 1:
		return bindings[0].project, msg.AgentID, true
	case 0:
		if hasAt {
			msg.Text = strings.TrimSpace(remainder)
			return atProject, atAgent, true
		}
		if id, ok := r.getSticky(key); ok {
			if agent := r.agents.Get(id); agent != nil {
				return agent.Project, id, true
			}
		}
		r.replyUsageHint(ctx, key)
		return "", "", false
	default:
		if hasAt {
			msg.Text = strings.TrimSpace(remainder)
			return atProject, atAgent, true
		}
		if id, ok := r.getSticky(key); ok {
			if agent := r.agents.Get(id); agent != nil {
				return agent.Project, id, true
			}
		}
		if msg.AgentID != "" {
			return "", msg.AgentID, true
		}
		r.replyDisambiguation(ctx, key, bindings)
		return "", "", false
	}
}

// resolveAgent targets an explicit id when given, else smart-routes.
func (r *Router) resolveAgent(ctx context.Context, key channelKey, proj model.Project, agentID string, msg model.InboundMessage) (*model.Agent, bool) {
	if agentID != "" {
		agent := r.agents.Get(agentID)
		if agent == nil {
			r.reply(ctx, key, "Agent not found: "+agentID)
			return nil, false
		}
		return agent, true
	}
	return r.smartRoute(ctx, key, proj, msg)
}

const taskDescriptionMaxChars = 200

// smartRoute prefers a live, most-recently-active IDLE agent (clearing its
// context first), else auto-spawns if the project is below its cap, else
// reports a busy list.
func (r *Router) smartRoute(ctx context.Context, key channelKey, proj model.Project, msg model.InboundMessage) (*model.Agent, bool) {
	live := r.agents.ByProject(proj.Name)

	var idle []*model.Agent
	active := 0
	for _, a := range live {
		if a.IsLive() {
			active++
		}
		if a.Status == model.StatusIdle {
			idle = append(idle, a)
		}
	}
	if len(idle) > 0 {
		sort.Slice(idle, func(i, j int) bool { return idle[i].LastActivity.After(idle[j].LastActivity) })
		chosen := idle[0]
		r.lifecycle.ClearContext(ctx, chosen.ID)
		task := msg.Text
		if len(task) > taskDescriptionMaxChars {
			task = task[:taskDescriptionMaxChars]
		}
		r.agents.Mutate(chosen.ID, func(a *model.Agent) { a.TaskDescription = task })
		return r.agents.Get(chosen.ID), true
	}

	maxAgents := proj.EffectiveMaxAgents(r.registry.Defaults().MaxAgentsPerProject)
	if active >= maxAgents {
		r.replyBusy(ctx, key, live)
		return nil, false
	}

	agent, err := r.lifecycle.Spawn(ctx, lifecycle.SpawnRequest{Project: proj.Name, Task: msg.Text, Prefix: "agent"})
	if err != nil {
		r.log.Warn("auto-spawn failed", zap.String("project", proj.Name), zap.Error(err))
		r.reply(ctx, key, "Failed to spawn an agent for "+proj.Name+".")
		return nil, false
	}
	r.reply(ctx, key, "Spawned agent `"+agent.ID+"` for "+proj.Name)
	return agent, true
}

// deliver stages any media and sends the text.
func (r *Router) deliver(ctx context.Context, key channelKey, proj model.Project, agent *model.Agent, msg model.InboundMessage) {
	justSpawned := time.Since(agent.CreatedAt) < 2*time.Second

	if len(msg.MediaPaths) > 0 && r.stager != nil {
		staged := r.stager.ProcessAndStageAll(msg.MediaPaths, agent.Worktree)
		reference := media.BuildMediaReferenceAll(staged)
		r.lifecycle.SendMessageWithMedia(ctx, agent.ID, msg.Text, reference)

		if justSpawned && reference != "" {
			go func(agentID, ref string) {
				time.Sleep(5 * time.Second)
				r.lifecycle.SendMessage(context.Background(), agentID, ref)
			}(agent.ID, reference)
		}
		return
	}

	r.lifecycle.SendMessage(ctx, agent.ID, msg.Text)
}

func (r *Router) connector(id string) (connector.Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[id]
	return c, ok
}

func (r *Router) reply(ctx context.Context, key channelKey, text string) {
	c, ok := r.connector(key.ConnectorID)
	if !ok {
		return
	}
	c.SendMessage(ctx, model.OutboundMessage{ChannelID: key.ChannelID, Text: text})
}

func (r *Router) replyUsageHint(ctx context.Context, key channelKey) {
	r.reply(ctx, key, "Usage: @project[:agent_id] your message, or use /spawn project task")
}

func (r *Router) replyDisambiguation(ctx context.Context, key channelKey, bindings []projectBinding) {
	var names []string
	seen := map[string]bool{}
	for _, b := range bindings {
		if !seen[b.project] {
			seen[b.project] = true
			names = append(names, b.project)
		}
	}
	r.reply(ctx, key, "This channel is bound to multiple projects: "+strings.Join(names, ", ")+". Prefix your message with @project.")
}

func (r *Router) replyAvailableProjects(ctx context.Context, key channelKey) {
	var names []string
	for name := range r.registry.Projects() {
		names = append(names, name)
	}
	sort.Strings(names)
	r.reply(ctx, key, "Unknown project. Available projects: "+strings.Join(names, ", "))
}

func (r *Router) replyBusy(ctx context.Context, key channelKey, agents []*model.Agent) {
	var lines []string
	for _, a := range agents {
		if a.IsLive() {
			lines = append(lines, a.ID+": "+string(a.Status))
		}
	}
	r.reply(ctx, key, "All agents are busy:\n"+strings.Join(lines, "\n"))
}
