// Package hooks implements the loopback-only hook endpoint coding-tool
// instances POST SubagentStart/SubagentStop events to, mounted on a gin
// router supplied by the caller.
package hooks

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/agentstore"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/model"
)

// eventRequest is the body posted by the inline curl command installed by
// lifecycle.installHooks.
type eventRequest struct {
	AgentID   string `json:"agent_id" binding:"required"`
	HookEvent string `json:"hook_event" binding:"required"`
}

// Handler serves POST /api/hooks/event.
type Handler struct {
	agents *agentstore.Store
	log    *logging.Logger
}

// New builds a Handler bound to the live agent store.
func New(agents *agentstore.Store, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Default()
	}
	return &Handler{agents: agents, log: log.With(zap.String("component", "hooks"))}
}

// Routes registers the hook endpoint on a gin.Engine, kept separate from
// whatever owns the rest of the control surface since that HTTP/WS layer
// is out of this module's scope.
func (h *Handler) Routes(r gin.IRouter) {
	r.POST("/api/hooks/event", h.handleEvent)
}

func (h *Handler) handleEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid"})
		return
	}

	ok := h.agents.Mutate(req.AgentID, func(a *model.Agent) {
		switch req.HookEvent {
		case "SubagentStart":
			a.SubAgentCount++
		case "SubagentStop":
			if a.SubAgentCount > 0 {
				a.SubAgentCount--
			}
		}
	})

	if !ok {
		// Unknown agent id never blocks the hook script.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	h.log.Debug("hook event", zap.String("agent_id", req.AgentID), zap.String("hook_event", req.HookEvent))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
