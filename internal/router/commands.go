package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agentforge/agentforge/internal/lifecycle"
	"github.com/agentforge/agentforge/internal/model"
)

const helpText = `Agent Forge commands:
/help, /commands, /start - show this text
/status - list agents grouped by project
/projects - list configured projects
/spawn project [task...] - spawn an agent
/kill agent_id - kill an agent
/approve, /approve_all, /reject, /interrupt - control the targeted agent`

// commandHandler executes one command; args is the command line split on
// whitespace after the command name itself.
type commandHandler func(ctx context.Context, r *Router, key channelKey, msg model.InboundMessage, args []string)

var commandTable = map[string]commandHandler{
	"help":        handleHelp,
	"commands":    handleHelp,
	"start":       handleHelp,
	"status":      handleStatus,
	"projects":    handleProjects,
	"spawn":       handleSpawn,
	"kill":        handleKill,
	"approve":     handleControl("approve"),
	"approve_all": handleControl("approve_all"),
	"reject":      handleControl("reject"),
	"interrupt":   handleControl("interrupt"),
}

// dispatchCommand looks the command up in commandTable and runs it; an
// unknown command gets the help text.
func (r *Router) dispatchCommand(ctx context.Context, key channelKey, msg model.InboundMessage) {
	handler, ok := commandTable[msg.CommandName]
	if !ok {
		r.reply(ctx, key, helpText)
		return
	}
	handler(ctx, r, key, msg, msg.CommandArgs)
}

func handleHelp(ctx context.Context, r *Router, key channelKey, msg model.InboundMessage, args []string) {
	r.reply(ctx, key, helpText)
}

func handleStatus(ctx context.Context, r *Router, key channelKey, msg model.InboundMessage, args []string) {
	projects := r.registry.Projects()
	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		agents := r.agents.ByProject(name)
		if len(agents) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", name)
		for _, a := range agents {
			fmt.Fprintf(&b, "  %s [%s] %s\n", a.ID, a.Status, a.TaskDescription)
		}
	}
	if b.Len() == 0 {
		r.reply(ctx, key, "No agents running.")
		return
	}
	r.reply(ctx, key, b.String())
}

func handleProjects(ctx context.Context, r *Router, key channelKey, msg model.InboundMessage, args []string) {
	projects := r.registry.Projects()
	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, projects[name].Description)
	}
	if b.Len() == 0 {
		r.reply(ctx, key, "No projects configured.")
		return
	}
	r.reply(ctx, key, b.String())
}

func handleSpawn(ctx context.Context, r *Router, key channelKey, msg model.InboundMessage, args []string) {
	if len(args) == 0 {
		r.reply(ctx, key, "Usage: /spawn project [task...]")
		return
	}
	project := args[0]
	task := strings.Join(args[1:], " ")

	if _, ok := r.registry.Project(project); !ok {
		r.replyAvailableProjects(ctx, key)
		return
	}

	agent, err := r.lifecycle.Spawn(ctx, lifecycle.SpawnRequest{Project: project, Task: task, Prefix: "agent"})
	if err != nil {
		r.reply(ctx, key, "Spawn failed: "+err.Error())
		return
	}

	r.setSticky(key, agent.ID)
	r.registerReplyChannel(project, key)
	r.reply(ctx, key, "Spawned agent `"+agent.ID+"` for "+project)
}

func handleKill(ctx context.Context, r *Router, key channelKey, msg model.InboundMessage, args []string) {
	if len(args) == 0 {
		r.reply(ctx, key, "Usage: /kill agent_id")
		return
	}
	if err := r.lifecycle.Kill(ctx, args[0]); err != nil {
		r.reply(ctx, key, "Kill failed: "+err.Error())
		return
	}
	r.reply(ctx, key, "Killed agent "+args[0]+".")
}

// handleControl resolves the target agent in strict order: explicit arg
// -> sticky context -> single-agent shortcut (this channel binds exactly
// one project with exactly one live agent) -> usage error. It returns a
// commandHandler closed over the control action name.
func handleControl(action string) commandHandler {
	return func(ctx context.Context, r *Router, key channelKey, msg model.InboundMessage, args []string) {
		agentID := resolveControlTarget(r, key, args)
		if agentID == "" {
			r.reply(ctx, key, "Usage: /"+action+" [agent_id]")
			return
		}
		if !r.lifecycle.SendControl(ctx, agentID, action) {
			r.reply(ctx, key, "Control action failed for "+agentID+".")
			return
		}
		r.reply(ctx, key, "Sent `"+action+"` to agent `"+agentID+"`")
	}
}

func resolveControlTarget(r *Router, key channelKey, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if id, ok := r.getSticky(key); ok && r.agents.Exists(id) {
		return id
	}

	bindings := r.bindingsFor(key)
	projectSet := map[string]bool{}
	for _, b := range bindings {
		projectSet[b.project] = true
	}
	if len(projectSet) != 1 {
		return ""
	}
	var project string
	for p := range projectSet {
		project = p
	}

	var live []*model.Agent
	for _, a := range r.agents.ByProject(project) {
		if a.IsLive() {
			live = append(live, a)
		}
	}
	if len(live) != 1 {
		return ""
	}
	return live[0].ID
}
